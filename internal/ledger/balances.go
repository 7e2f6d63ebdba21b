// Package ledger computes "who owes whom" figures from expense-participant
// and settlement records. All functions are pure over already-fetched slices;
// callers fetch from storage and may cache the results.
package ledger

import (
	"math"

	"github.com/nikhil/splitledger/internal/models"
)

// zeroThreshold treats balances within a cent of zero as settled, avoiding
// floating point noise.
const zeroThreshold = 0.01

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// activeSet returns the IDs of non-deleted expenses. Participant rows whose
// expense is absent from the set contribute nothing; a row referencing an
// expense the caller could not fetch is tolerated, not an error.
func activeSet(expenses []models.Expense) map[string]bool {
	active := make(map[string]bool, len(expenses))
	for _, e := range expenses {
		if !e.Deleted {
			active[e.ID] = true
		}
	}
	return active
}

// rowsByExpense groups unsettled participant rows of active expenses.
func rowsByExpense(participants []models.ExpenseParticipant, active map[string]bool) map[string][]models.ExpenseParticipant {
	byExpense := make(map[string][]models.ExpenseParticipant)
	for _, p := range participants {
		if p.IsSettled || !active[p.ExpenseID] {
			continue
		}
		byExpense[p.ExpenseID] = append(byExpense[p.ExpenseID], p)
	}
	return byExpense
}

// PairwiseBalance computes the exact balance between two users over every
// non-deleted expense in which both appear, adjusted by settlements between
// them. The result is signed: positive means userB owes userA, negative means
// userA owes userB.
//
// The accumulation uses only userA's own net row per shared expense, so for
// expenses with more than two participants it reads as "A's net contribution
// status concerning shared expenses with B" rather than a full multi-party
// netting.
func PairwiseBalance(userA, userB string, expenses []models.Expense, participants []models.ExpenseParticipant, settlements []models.Settlement) float64 {
	byExpense := rowsByExpense(participants, activeSet(expenses))

	var balance float64
	for _, rows := range byExpense {
		var aNet float64
		var hasA, hasB bool
		for _, p := range rows {
			switch p.UserID {
			case userA:
				hasA = true
				aNet = p.Net()
			case userB:
				hasB = true
			}
		}
		if hasA && hasB {
			balance += aNet
		}
	}

	// A payment reduces the payer's debt to the payee, so a settlement from
	// A to B moves A's balance toward the positive side.
	for _, s := range settlements {
		switch {
		case s.FromUserID == userA && s.ToUserID == userB:
			balance += s.Amount
		case s.FromUserID == userB && s.ToUserID == userA:
			balance -= s.Amount
		}
	}

	return round2(balance)
}

// AggregateBalances computes one user's balance against every counterparty.
// For each expense the user participates in, the user's net surplus or
// deficit is apportioned across the expense's other participants in
// proportion to each one's own opposite-signed stake, then summed per
// counterparty and adjusted by all of the user's settlements.
//
// For expenses with more than two participants the proportional
// apportionment is a documented heuristic, not a financial guarantee; it is
// deliberately kept distinct from NetPositions, which feeds the debt
// simplifier (see DESIGN.md).
func AggregateBalances(userID string, expenses []models.Expense, participants []models.ExpenseParticipant, settlements []models.Settlement) map[string]float64 {
	byExpense := rowsByExpense(participants, activeSet(expenses))

	balances := make(map[string]float64)
	for _, rows := range byExpense {
		var uNet float64
		var hasU bool
		for _, p := range rows {
			if p.UserID == userID {
				hasU = true
				uNet = p.Net()
			}
		}
		if !hasU || math.Abs(uNet) < zeroThreshold {
			continue
		}

		// Counterparties on the opposite side of the expense, weighted by
		// the size of their own stake.
		var oppositeTotal float64
		for _, p := range rows {
			if p.UserID == userID {
				continue
			}
			if n := p.Net(); n*uNet < 0 {
				oppositeTotal += math.Abs(n)
			}
		}
		if oppositeTotal < zeroThreshold {
			continue
		}
		for _, p := range rows {
			if p.UserID == userID {
				continue
			}
			if n := p.Net(); n*uNet < 0 {
				balances[p.UserID] += uNet * (math.Abs(n) / oppositeTotal)
			}
		}
	}

	for _, s := range settlements {
		switch {
		case s.FromUserID == userID:
			balances[s.ToUserID] += s.Amount
		case s.ToUserID == userID:
			balances[s.FromUserID] -= s.Amount
		}
	}

	for id, v := range balances {
		balances[id] = round2(v)
	}
	return balances
}

// NetPositions computes each user's direct paid-minus-owed sum across the
// given ledger slice, adjusted by settlements. This is the input to Simplify
// for a group settle-up.
func NetPositions(expenses []models.Expense, participants []models.ExpenseParticipant, settlements []models.Settlement) map[string]float64 {
	active := activeSet(expenses)

	net := make(map[string]float64)
	for _, p := range participants {
		if p.IsSettled || !active[p.ExpenseID] {
			continue
		}
		net[p.UserID] += p.Net()
	}
	for _, s := range settlements {
		net[s.FromUserID] += s.Amount
		net[s.ToUserID] -= s.Amount
	}

	for id, v := range net {
		net[id] = round2(v)
	}
	return net
}
