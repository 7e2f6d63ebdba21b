package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/splitledger/internal/cache"
	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/splitter"
	"github.com/nikhil/splitledger/internal/storage"
)

// SplitRequest carries everything needed to split one expense among its
// participants.
type SplitRequest struct {
	Description    string
	Amount         float64
	Currency       string
	Category       string
	PayerID        string
	ParticipantIDs []string
	GroupID        string
	Date           int64

	Method       splitter.Method
	ExactAmounts map[string]float64
	Percentages  map[string]float64
	Shares       map[string]float64
}

// ExpenseService owns the expense and settlement write path: it runs the
// split engine, persists the result atomically, and invalidates every cache
// scope the write made stale.
type ExpenseService struct {
	store  storage.Store
	reads  storage.ReadStore
	cache  *cache.Cache
	logger *slog.Logger
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(store storage.Store, reads storage.ReadStore, c *cache.Cache, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{store: store, reads: reads, cache: c, logger: logger}
}

// ComputeSplit runs the split engine without persisting anything. Used for
// split previews in the expense form.
func (s *ExpenseService) ComputeSplit(req SplitRequest) ([]splitter.Share, error) {
	return splitter.Compute(req.Amount, req.ParticipantIDs, req.PayerID, req.Method, splitter.Options{
		ExactAmounts: req.ExactAmounts,
		Percentages:  req.Percentages,
		Shares:       req.Shares,
	})
}

// CreateExpense splits and persists a new expense. The participant rows are
// the split engine's output, so they conserve the amount by construction.
func (s *ExpenseService) CreateExpense(ctx context.Context, req SplitRequest) (*models.Expense, error) {
	shares, err := s.ComputeSplit(req)
	if err != nil {
		return nil, err
	}

	expense := buildExpense(req, shares)
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	s.invalidateExpenseScopes(ctx, participantIDs(expense))
	s.logger.Info("expense created",
		"expense_id", expense.ID,
		"amount", expense.Amount,
		"participants", len(expense.Participants),
	)
	return expense, nil
}

// UpdateExpense re-splits the expense with the new request and replaces its
// participant rows, recording an edit revision of the prior values.
func (s *ExpenseService) UpdateExpense(ctx context.Context, expenseID string, req SplitRequest, editedBy string) (*models.Expense, error) {
	shares, err := s.ComputeSplit(req)
	if err != nil {
		return nil, err
	}

	expense := buildExpense(req, shares)
	expense.ID = expenseID
	if err := s.store.UpdateExpense(ctx, expense, editedBy); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	s.invalidateExpenseScopes(ctx, participantIDs(expense))
	s.logger.Info("expense updated", "expense_id", expenseID, "edited_by", editedBy)
	return expense, nil
}

// DeleteExpense soft-deletes the expense. Balances recompute without it on
// the next read.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID, deletedBy string) error {
	rows, err := s.store.ParticipantsByExpenses(ctx, []string{expenseID})
	if err != nil {
		return fmt.Errorf("failed to load expense participants: %w", err)
	}

	if err := s.store.DeleteExpense(ctx, expenseID, deletedBy); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	users := make([]string, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.UserID)
	}
	s.invalidateExpenseScopes(ctx, users)
	s.logger.Info("expense deleted", "expense_id", expenseID, "deleted_by", deletedBy)
	return nil
}

// CreateSettlement records a payment from one user to another. Settlements
// are append-only; there is no update or delete path.
func (s *ExpenseService) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.Amount <= 0 {
		return fmt.Errorf("settlement amount must be positive, got %.2f", settlement.Amount)
	}
	if settlement.FromUserID == settlement.ToUserID {
		return fmt.Errorf("settlement must be between two distinct users")
	}
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.Date == 0 {
		settlement.Date = time.Now().Unix()
	}

	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		return fmt.Errorf("failed to create settlement: %w", err)
	}

	users := []string{settlement.FromUserID, settlement.ToUserID}
	s.cache.Invalidate(ctx, users, []cache.Scope{
		cache.ScopeSettlements, cache.ScopeBalances, cache.ScopeActivity,
	})
	s.logger.Info("settlement created",
		"settlement_id", settlement.ID,
		"from", settlement.FromUserID,
		"to", settlement.ToUserID,
		"amount", settlement.Amount,
	)
	return nil
}

// GetExpenses returns the user's expenses through the read cache.
func (s *ExpenseService) GetExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	return cache.Fetch(ctx, s.cache, cache.ScopeExpenses, userID, "", func(ctx context.Context) ([]models.Expense, error) {
		return s.reads.GetExpenses(ctx, userID)
	})
}

// GetSettlements returns the user's settlements through the read cache.
func (s *ExpenseService) GetSettlements(ctx context.Context, userID string) ([]models.Settlement, error) {
	return cache.Fetch(ctx, s.cache, cache.ScopeSettlements, userID, "", func(ctx context.Context) ([]models.Settlement, error) {
		return s.reads.GetSettlements(ctx, userID)
	})
}

func (s *ExpenseService) invalidateExpenseScopes(ctx context.Context, userIDs []string) {
	s.cache.Invalidate(ctx, userIDs, []cache.Scope{
		cache.ScopeExpenses, cache.ScopeBalances, cache.ScopeActivity,
	})
}

func buildExpense(req SplitRequest, shares []splitter.Share) *models.Expense {
	now := time.Now().Unix()
	date := req.Date
	if date == 0 {
		date = now
	}

	expense := &models.Expense{
		ID:          uuid.New().String(),
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		CreatedBy:   req.PayerID,
		GroupID:     req.GroupID,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, share := range shares {
		expense.Participants = append(expense.Participants, models.ExpenseParticipant{
			ExpenseID:  expense.ID,
			UserID:     share.UserID,
			PaidAmount: share.Paid,
			OwedAmount: share.Owed,
		})
	}
	return expense
}

func participantIDs(expense *models.Expense) []string {
	ids := make([]string, 0, len(expense.Participants))
	for _, p := range expense.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
