package ledger

import (
	"sort"
)

// Transfer is one payment in a simplified settle-up plan.
type Transfer struct {
	From   string
	To     string
	Amount float64
}

// Result is a settle-up plan plus its reduction metrics. OriginalCount is an
// upper-bound proxy (non-zero balance holders halved), not an exact count of
// pairwise debts.
type Result struct {
	Transfers      []Transfer
	OriginalCount  int
	OptimizedCount int
}

type holder struct {
	id     string
	amount float64
}

// Simplify collapses a set of net positions into a short transfer list using
// greedy largest-debtor against largest-creditor matching. True
// minimum-transaction netting is NP-hard; the greedy plan is near-minimal and
// deterministic (ties broken by user ID).
//
// Degenerate inputs are tolerated: an empty map yields an empty plan, and an
// unbalanced input (a lone debtor or creditor) simply leaves the unmatched
// side without a transfer.
func Simplify(net map[string]float64) Result {
	var debtors, creditors []holder
	nonZero := 0
	for id, v := range net {
		switch {
		case v < -zeroThreshold:
			debtors = append(debtors, holder{id: id, amount: -v})
			nonZero++
		case v > zeroThreshold:
			creditors = append(creditors, holder{id: id, amount: v})
			nonZero++
		}
	}

	byAmountDesc := func(hs []holder) func(i, j int) bool {
		return func(i, j int) bool {
			if hs[i].amount != hs[j].amount {
				return hs[i].amount > hs[j].amount
			}
			return hs[i].id < hs[j].id
		}
	}
	sort.Slice(debtors, byAmountDesc(debtors))
	sort.Slice(creditors, byAmountDesc(creditors))

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount < amount {
			amount = creditors[j].amount
		}

		if amount > zeroThreshold {
			transfers = append(transfers, Transfer{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: round2(amount),
			})
		}

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		if debtors[i].amount < zeroThreshold {
			i++
		}
		if creditors[j].amount < zeroThreshold {
			j++
		}
	}

	return Result{
		Transfers:      transfers,
		OriginalCount:  nonZero / 2,
		OptimizedCount: len(transfers),
	}
}
