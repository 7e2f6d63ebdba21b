package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/storage"
)

const expenseColumns = "id, description, amount, currency, category, created_by, group_id, date, deleted, created_at, updated_at"

func scanExpense(scanner interface{ Scan(...any) error }) (models.Expense, error) {
	var e models.Expense
	var deleted int
	err := scanner.Scan(&e.ID, &e.Description, &e.Amount, &e.Currency, &e.Category,
		&e.CreatedBy, &e.GroupID, &e.Date, &deleted, &e.CreatedAt, &e.UpdatedAt)
	e.Deleted = deleted != 0
	return e, err
}

// CreateExpense persists an expense and its participant rows atomically.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = now
	if expense.Date == 0 {
		expense.Date = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)",
		expense.ID, expense.Description, expense.Amount, expense.Currency, expense.Category,
		expense.CreatedBy, expense.GroupID, expense.Date, expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertParticipants(ctx, tx, expense); err != nil {
		return err
	}
	if err := recordActivity(ctx, tx, models.ActivityExpenseAdded, expense.CreatedBy, expense.ID, expense.GroupID, "expense "+expense.Description+" added"); err != nil {
		return err
	}
	return tx.Commit()
}

func insertParticipants(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for i := range expense.Participants {
		p := &expense.Participants[i]
		p.ExpenseID = expense.ID
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, user_id, paid_amount, owed_amount, is_settled) VALUES (?, ?, ?, ?, ?)",
			p.ExpenseID, p.UserID, p.PaidAmount, p.OwedAmount, boolToInt(p.IsSettled),
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

// UpdateExpense replaces the mutable fields and participant rows, recording
// an edit revision of the prior values in the same transaction.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense, editedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prev, err := scanExpense(tx.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", expense.ID))
	if err == sql.ErrNoRows {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get expense: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expense_edits (id, expense_id, edited_by, edited_at, prev_amount, prev_description, prev_category) VALUES (?, ?, ?, ?, ?, ?, ?)",
		uuid.New().String(), expense.ID, editedBy, time.Now().Unix(), prev.Amount, prev.Description, prev.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense edit: %w", err)
	}

	expense.UpdatedAt = time.Now().Unix()
	_, err = tx.ExecContext(ctx,
		"UPDATE expenses SET description = ?, amount = ?, currency = ?, category = ?, date = ?, updated_at = ? WHERE id = ?",
		expense.Description, expense.Amount, expense.Currency, expense.Category, expense.Date, expense.UpdatedAt, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM expense_participants WHERE expense_id = ?", expense.ID)
	if err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	if err := insertParticipants(ctx, tx, expense); err != nil {
		return err
	}
	if err := recordActivity(ctx, tx, models.ActivityExpenseEdited, editedBy, expense.ID, expense.GroupID, "expense "+expense.Description+" edited"); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteExpense soft-deletes an expense. The row and its participant rows
// stay in place so historical balances remain reconstructible; every balance
// read excludes them via the deleted flag.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID, deletedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID, description string
	err = tx.QueryRowContext(ctx,
		"SELECT group_id, description FROM expenses WHERE id = ?", expenseID,
	).Scan(&groupID, &description)
	if err == sql.ErrNoRows {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get expense: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE expenses SET deleted = 1, updated_at = ? WHERE id = ?",
		time.Now().Unix(), expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if err := recordActivity(ctx, tx, models.ActivityExpenseDeleted, deletedBy, expenseID, groupID, "expense "+description+" deleted"); err != nil {
		return err
	}
	return tx.Commit()
}

// GetExpenses returns the user's non-deleted expenses with participant rows,
// newest first.
func (s *SQLiteStore) GetExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixed("e", expenseColumns)+`
		FROM expenses e
		JOIN expense_participants p ON p.expense_id = e.id
		WHERE p.user_id = ? AND e.deleted = 0
		ORDER BY e.date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for i := range expenses {
		participants, err := s.expenseParticipants(ctx, expenses[i].ID)
		if err != nil {
			return nil, err
		}
		expenses[i].Participants = participants
	}
	return expenses, nil
}

func (s *SQLiteStore) expenseParticipants(ctx context.Context, expenseID string) ([]models.ExpenseParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, user_id, paid_amount, owed_amount, is_settled FROM expense_participants WHERE expense_id = ? ORDER BY user_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()
	return scanParticipants(rows)
}

func scanParticipants(rows *sql.Rows) ([]models.ExpenseParticipant, error) {
	var out []models.ExpenseParticipant
	for rows.Next() {
		var p models.ExpenseParticipant
		var settled int
		if err := rows.Scan(&p.ExpenseID, &p.UserID, &p.PaidAmount, &p.OwedAmount, &settled); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.IsSettled = settled != 0
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	return alias + "." + strings.ReplaceAll(columns, ", ", ", "+alias+".")
}
