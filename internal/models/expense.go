package models

// Expense represents a recorded shared expense.
//
// Expenses are never physically deleted: the Deleted flag excludes them from
// every balance computation while keeping historical balances reconstructible.
// Edits go through an explicit edit path that records an ExpenseEdit revision.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Description is a human-readable label (e.g., "Dinner at Luigi's").
	Description string

	// Amount is the total expense amount.
	Amount float64

	// Currency is the ISO 4217 code of the amount (e.g., "USD").
	Currency string

	// Category is a free-form classification (e.g., "food", "travel").
	Category string

	// CreatedBy is the user ID that recorded the expense.
	CreatedBy string

	// GroupID is the owning group, or empty for a non-group expense.
	GroupID string

	// Date is the Unix timestamp of when the expense occurred.
	Date int64

	// Deleted marks the expense as soft-deleted. Deleted expenses and their
	// participant rows are excluded from all balance computations.
	Deleted bool

	// CreatedAt / UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64

	// Participants holds the per-person paid/owed rows, when loaded.
	Participants []ExpenseParticipant
}

// ExpenseParticipant is one person's stake in one expense.
//
// Invariant: for a non-deleted expense, sum(PaidAmount) == sum(OwedAmount) ==
// Expense.Amount across its rows, so the rows are a zero-sum transfer.
type ExpenseParticipant struct {
	ExpenseID string
	UserID    string

	// PaidAmount is what this person actually paid toward the expense.
	PaidAmount float64

	// OwedAmount is this person's share of the expense.
	OwedAmount float64

	// IsSettled flips to true once the row is resolved by a settlement or
	// group closure; settled rows do not count toward balances.
	IsSettled bool
}

// Net is the participant's net position on this expense: positive means the
// ledger owes them, negative means they owe the ledger.
func (p ExpenseParticipant) Net() float64 {
	return p.PaidAmount - p.OwedAmount
}

// ExpenseEdit is one revision in an expense's edit history, recording the
// values prior to the edit.
type ExpenseEdit struct {
	ID          string
	ExpenseID   string
	EditedBy    string
	EditedAt    int64
	PrevAmount   float64
	PrevDesc     string
	PrevCategory string
}
