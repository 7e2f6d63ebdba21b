package models

// Settlement represents a real-world payment between two users that reduces
// the payer's debt to the payee. Settlements are append-only; once recorded
// they are never edited. Either party's view must see the same row; the
// amount's sign is derived at read time, never stored per viewer.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// FromUserID is the user who paid (debtor settling up).
	FromUserID string

	// ToUserID is the user who received payment (creditor being paid).
	ToUserID string

	// Amount is the payment amount.
	Amount float64

	// Currency is the ISO 4217 code of the amount.
	Currency string

	// GroupID is the group this settlement belongs to, or empty.
	GroupID string

	// Date is the Unix timestamp of the payment.
	Date int64

	// Note is an optional description for the settlement.
	Note string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}
