package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/splitledger/internal/models"
)

const settlementColumns = "id, from_user_id, to_user_id, amount, currency, group_id, date, note, created_at"

// CreateSettlement records a payment between two users. Settlements are
// append-only; there is no update path.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = now
	}
	if settlement.Date == 0 {
		settlement.Date = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO settlements ("+settlementColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		settlement.ID, settlement.FromUserID, settlement.ToUserID, settlement.Amount,
		settlement.Currency, settlement.GroupID, settlement.Date, settlement.Note, settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	if err := recordActivity(ctx, tx, models.ActivitySettlementAdded, settlement.FromUserID, settlement.ID, settlement.GroupID, "settlement recorded"); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSettlements returns settlements where the user is either party.
func (s *SQLiteStore) GetSettlements(ctx context.Context, userID string) ([]models.Settlement, error) {
	return s.querySettlements(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE from_user_id = ? OR to_user_id = ? ORDER BY date DESC",
		userID, userID,
	)
}

func (s *SQLiteStore) querySettlements(ctx context.Context, query string, args ...any) ([]models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlements: %w", err)
	}
	defer rows.Close()

	var out []models.Settlement
	for rows.Next() {
		var st models.Settlement
		if err := rows.Scan(&st.ID, &st.FromUserID, &st.ToUserID, &st.Amount,
			&st.Currency, &st.GroupID, &st.Date, &st.Note, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return out, nil
}

// GetDashboardActivity returns recent activity visible to the user: their own
// actions plus activity in their groups.
func (s *SQLiteStore) GetDashboardActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	return s.queryActivities(ctx, `
		SELECT DISTINCT a.id, a.type, a.actor_id, a.subject_id, a.group_id, a.summary, a.created_at
		FROM activities a
		LEFT JOIN group_members gm ON gm.group_id = a.group_id AND gm.user_id = ?
		WHERE a.actor_id = ? OR gm.user_id IS NOT NULL
		ORDER BY a.created_at DESC
		LIMIT ?`,
		userID, userID, limit,
	)
}

// GetActivities returns the user's own activity feed.
func (s *SQLiteStore) GetActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	return s.queryActivities(ctx,
		"SELECT id, type, actor_id, subject_id, group_id, summary, created_at FROM activities WHERE actor_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
}

func (s *SQLiteStore) queryActivities(ctx context.Context, query string, args ...any) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		var typ string
		if err := rows.Scan(&a.ID, &typ, &a.ActorID, &a.SubjectID, &a.GroupID, &a.Summary, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Type = models.ActivityType(typ)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return out, nil
}
