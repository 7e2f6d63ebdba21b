// Package splitter turns one recorded expense into per-participant paid/owed
// amounts. It is pure: it only returns values and never persists anything.
package splitter

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Method selects how an expense amount is divided among participants.
type Method string

const (
	// MethodEqual divides the amount per head; any leftover cents land on
	// the first participant in the supplied order.
	MethodEqual Method = "equal"

	// MethodExact uses caller-supplied owed amounts, which must sum to the
	// expense amount.
	MethodExact Method = "exact"

	// MethodPercentage uses caller-supplied percentages summing to 100; the
	// last participant in order absorbs the rounding residual.
	MethodPercentage Method = "percentage"

	// MethodShares uses caller-supplied weights; the last participant in
	// order absorbs the rounding residual.
	MethodShares Method = "shares"
)

// Share is the calculated paid/owed pair for one participant.
type Share struct {
	UserID string
	Paid   float64
	Owed   float64
}

// Options carries the per-method inputs, keyed by participant ID.
type Options struct {
	ExactAmounts map[string]float64
	Percentages  map[string]float64
	Shares       map[string]float64
}

// ValidationError reports a split input that fails conservation or shape
// checks. It is never retried and never silently corrected.
type ValidationError struct {
	Constraint string
}

func (e *ValidationError) Error() string {
	return "split validation: " + e.Constraint
}

func validationf(format string, args ...any) error {
	return &ValidationError{Constraint: fmt.Sprintf(format, args...)}
}

// tolerance for caller-supplied sums (exact amounts, percentages).
const sumTolerance = 0.01

// Compute calculates one Share per participant such that
// sum(Paid) == sum(Owed) == amount exactly. Only the payer's Paid equals the
// full amount; everyone else's Paid is zero. The participant order matters:
// it decides who absorbs leftover cents (equal) or the rounding residual
// (percentage, shares).
func Compute(amount float64, participantIDs []string, payerID string, method Method, opts Options) ([]Share, error) {
	if amount <= 0 {
		return nil, validationf("amount must be positive, got %.2f", amount)
	}
	if len(participantIDs) == 0 {
		return nil, validationf("at least one participant is required")
	}
	if !contains(participantIDs, payerID) {
		return nil, validationf("payer %q must be one of the participants", payerID)
	}

	var owed []decimal.Decimal
	var err error
	total := decimal.NewFromFloat(amount).Round(2)

	switch method {
	case MethodEqual:
		owed = splitEqual(total, len(participantIDs))
	case MethodExact:
		owed, err = splitExact(total, participantIDs, opts.ExactAmounts)
	case MethodPercentage:
		owed, err = splitPercentage(total, participantIDs, opts.Percentages)
	case MethodShares:
		owed, err = splitShares(total, participantIDs, opts.Shares)
	default:
		return nil, validationf("unknown split method %q", method)
	}
	if err != nil {
		return nil, err
	}

	shares := make([]Share, len(participantIDs))
	for i, id := range participantIDs {
		shares[i] = Share{UserID: id, Owed: owed[i].InexactFloat64()}
		if id == payerID {
			shares[i].Paid = total.InexactFloat64()
		}
	}
	return shares, nil
}

// splitEqual floors the per-head amount in cents and adds the remainder to
// the first participant.
func splitEqual(total decimal.Decimal, n int) []decimal.Decimal {
	cents := total.Shift(2).IntPart()
	per := cents / int64(n)
	rem := cents - per*int64(n)

	owed := make([]decimal.Decimal, n)
	for i := range owed {
		c := per
		if i == 0 {
			c += rem
		}
		owed[i] = decimal.New(c, -2)
	}
	return owed
}

func splitExact(total decimal.Decimal, ids []string, amounts map[string]float64) ([]decimal.Decimal, error) {
	owed := make([]decimal.Decimal, len(ids))
	sum := decimal.Zero
	for i, id := range ids {
		v, ok := amounts[id]
		if !ok {
			return nil, validationf("exact amount missing for participant %q", id)
		}
		owed[i] = decimal.NewFromFloat(v).Round(2)
		sum = sum.Add(owed[i])
	}
	if diff := sum.Sub(total).Abs(); diff.InexactFloat64() > sumTolerance {
		return nil, validationf("exact amounts sum to %s, expense amount is %s", sum, total)
	}
	return owed, nil
}

func splitPercentage(total decimal.Decimal, ids []string, percentages map[string]float64) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	for _, id := range ids {
		v, ok := percentages[id]
		if !ok {
			return nil, validationf("percentage missing for participant %q", id)
		}
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	if diff := sum.Sub(decimal.NewFromInt(100)).Abs(); diff.InexactFloat64() > sumTolerance {
		return nil, validationf("percentages sum to %s, must sum to 100", sum)
	}

	hundred := decimal.NewFromInt(100)
	owed := make([]decimal.Decimal, len(ids))
	assigned := decimal.Zero
	for i, id := range ids {
		if i == len(ids)-1 {
			// Last participant absorbs the rounding residual so the
			// shares conserve the total exactly.
			owed[i] = total.Sub(assigned)
			break
		}
		pct := decimal.NewFromFloat(percentages[id])
		owed[i] = total.Mul(pct).Div(hundred).Round(2)
		assigned = assigned.Add(owed[i])
	}
	return owed, nil
}

func splitShares(total decimal.Decimal, ids []string, weights map[string]float64) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	for _, id := range ids {
		v, ok := weights[id]
		if !ok {
			return nil, validationf("share weight missing for participant %q", id)
		}
		if v < 0 {
			return nil, validationf("share weight for participant %q must not be negative", id)
		}
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	if sum.IsZero() {
		return nil, validationf("share weights must not all be zero")
	}

	owed := make([]decimal.Decimal, len(ids))
	assigned := decimal.Zero
	for i, id := range ids {
		if i == len(ids)-1 {
			owed[i] = total.Sub(assigned)
			break
		}
		w := decimal.NewFromFloat(weights[id])
		owed[i] = total.Mul(w).Div(sum).Round(2)
		assigned = assigned.Add(owed[i])
	}
	return owed, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
