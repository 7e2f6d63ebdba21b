package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikhil/splitledger/internal/cache"
	"github.com/nikhil/splitledger/internal/ledger"
	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/storage"
)

// LedgerService answers balance questions: who owes whom, how much overall,
// and the smallest set of transfers that settles a group. Balances are always
// derived from the underlying rows at read time and cached; nothing here
// mutates the ledger.
type LedgerService struct {
	store  storage.LedgerStore
	cache  *cache.Cache
	logger *slog.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(store storage.LedgerStore, c *cache.Cache, logger *slog.Logger) *LedgerService {
	return &LedgerService{store: store, cache: c, logger: logger}
}

// PairwiseBalance returns userA's net balance toward userB. Positive means
// userB owes userA.
func (s *LedgerService) PairwiseBalance(ctx context.Context, userA, userB string) (float64, error) {
	return cache.Fetch(ctx, s.cache, cache.ScopeBalances, userA, "pair:"+userB, func(ctx context.Context) (float64, error) {
		expenses, participants, err := s.userLedger(ctx, userA)
		if err != nil {
			return 0, err
		}
		settlements, err := s.store.SettlementsBetween(ctx, userA, userB)
		if err != nil {
			return 0, fmt.Errorf("failed to load settlements: %w", err)
		}
		return ledger.PairwiseBalance(userA, userB, expenses, participants, settlements), nil
	})
}

// AggregateBalances returns the user's per-counterparty balances across all
// their expenses and settlements. Positive entries are owed to the user.
func (s *LedgerService) AggregateBalances(ctx context.Context, userID string) (map[string]float64, error) {
	return cache.Fetch(ctx, s.cache, cache.ScopeBalances, userID, "aggregate", func(ctx context.Context) (map[string]float64, error) {
		expenses, participants, err := s.userLedger(ctx, userID)
		if err != nil {
			return nil, err
		}
		settlements, err := s.store.SettlementsByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load settlements: %w", err)
		}
		return ledger.AggregateBalances(userID, expenses, participants, settlements), nil
	})
}

// SimplifyGroupDebts computes the minimal transfer plan that settles a
// group's current net positions.
func (s *LedgerService) SimplifyGroupDebts(ctx context.Context, groupID string) (ledger.Result, error) {
	expenses, participants, settlements, err := s.store.GroupLedger(ctx, groupID)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("failed to load group ledger: %w", err)
	}

	net := ledger.NetPositions(expenses, participants, settlements)
	result := ledger.Simplify(net)
	s.logger.Info("group debts simplified",
		"group_id", groupID,
		"original_edges", result.OriginalCount,
		"optimized_edges", result.OptimizedCount,
	)
	return result, nil
}

// SimplifyDebts computes the minimal transfer plan among an arbitrary set of
// users: each user's net position is the direct sum of their paid minus owed
// rows on non-deleted expenses, adjusted by settlements within the set.
func (s *LedgerService) SimplifyDebts(ctx context.Context, userIDs []string) (ledger.Result, error) {
	inSet := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		inSet[id] = true
	}

	net := make(map[string]float64, len(userIDs))
	seenSettlement := make(map[string]bool)
	for _, userID := range userIDs {
		expenses, participants, err := s.userLedger(ctx, userID)
		if err != nil {
			return ledger.Result{}, err
		}
		positions := ledger.NetPositions(expenses, participants, nil)
		net[userID] += positions[userID]

		settlements, err := s.store.SettlementsByUser(ctx, userID)
		if err != nil {
			return ledger.Result{}, fmt.Errorf("failed to load settlements: %w", err)
		}
		for _, st := range settlements {
			if seenSettlement[st.ID] || !inSet[st.FromUserID] || !inSet[st.ToUserID] {
				continue
			}
			seenSettlement[st.ID] = true
			net[st.FromUserID] += st.Amount
			net[st.ToUserID] -= st.Amount
		}
	}

	return ledger.Simplify(net), nil
}

// userLedger loads the rows the balance functions consume: every expense the
// user participates in, with all participant rows of those expenses. The
// aggregator itself excludes deleted expenses and settled rows.
func (s *LedgerService) userLedger(ctx context.Context, userID string) ([]models.Expense, []models.ExpenseParticipant, error) {
	own, err := s.store.ParticipantsByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load participant rows: %w", err)
	}

	ids := make([]string, 0, len(own))
	seen := make(map[string]bool, len(own))
	for _, row := range own {
		if !seen[row.ExpenseID] {
			seen[row.ExpenseID] = true
			ids = append(ids, row.ExpenseID)
		}
	}

	expenses, err := s.store.ExpensesByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	participants, err := s.store.ParticipantsByExpenses(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load expense participants: %w", err)
	}
	return expenses, participants, nil
}
