package sqlite

import (
	"context"
	"fmt"

	"github.com/nikhil/splitledger/internal/models"
)

// ParticipantsByUser returns every participant row for the user, including
// settled ones; the aggregator filters.
func (s *SQLiteStore) ParticipantsByUser(ctx context.Context, userID string) ([]models.ExpenseParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, user_id, paid_amount, owed_amount, is_settled FROM expense_participants WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants by user: %w", err)
	}
	defer rows.Close()
	return scanParticipants(rows)
}

// ParticipantsByExpenses returns all participant rows of the given expenses.
func (s *SQLiteStore) ParticipantsByExpenses(ctx context.Context, expenseIDs []string) ([]models.ExpenseParticipant, error) {
	if len(expenseIDs) == 0 {
		return nil, nil
	}
	marks, args := placeholders(expenseIDs)
	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, user_id, paid_amount, owed_amount, is_settled FROM expense_participants WHERE expense_id IN ("+marks+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants by expenses: %w", err)
	}
	defer rows.Close()
	return scanParticipants(rows)
}

// ExpensesByIDs returns the non-deleted expenses among ids.
func (s *SQLiteStore) ExpensesByIDs(ctx context.Context, ids []string) ([]models.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := placeholders(ids)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE deleted = 0 AND id IN ("+marks+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses by ids: %w", err)
	}
	defer rows.Close()

	var out []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return out, nil
}

// SettlementsByUser returns settlements where the user is either party.
func (s *SQLiteStore) SettlementsByUser(ctx context.Context, userID string) ([]models.Settlement, error) {
	return s.GetSettlements(ctx, userID)
}

// SettlementsBetween returns settlements between two users, either direction.
func (s *SQLiteStore) SettlementsBetween(ctx context.Context, userA, userB string) ([]models.Settlement, error) {
	return s.querySettlements(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE (from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?) ORDER BY date",
		userA, userB, userB, userA,
	)
}

// GroupLedger returns the group's non-deleted expenses, their participant
// rows, and the group's settlements.
func (s *SQLiteStore) GroupLedger(ctx context.Context, groupID string) ([]models.Expense, []models.ExpenseParticipant, []models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? AND deleted = 0",
		groupID,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get group expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	var ids []string
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to iterate group expenses: %w", err)
	}

	participants, err := s.ParticipantsByExpenses(ctx, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	settlements, err := s.querySettlements(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE group_id = ? ORDER BY date",
		groupID,
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return expenses, participants, settlements, nil
}
