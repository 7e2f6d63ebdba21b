package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/storage"
)

// CreateUser persists a new user account.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateFriendship records a pending friendship between two users.
func (s *SQLiteStore) CreateFriendship(ctx context.Context, friendship *models.Friendship) error {
	if friendship.ID == "" {
		friendship.ID = uuid.New().String()
	}
	if friendship.CreatedAt == 0 {
		friendship.CreatedAt = time.Now().Unix()
	}
	if friendship.Status == "" {
		friendship.Status = models.FriendshipPending
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO friendships (id, user_id, friend_id, status, created_at) VALUES (?, ?, ?, ?, ?)",
		friendship.ID, friendship.UserID, friendship.FriendID, string(friendship.Status), friendship.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert friendship: %w", err)
	}
	return nil
}

// AcceptFriendship flips a pending friendship to accepted.
func (s *SQLiteStore) AcceptFriendship(ctx context.Context, friendshipID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var friendID string
	err = tx.QueryRowContext(ctx,
		"SELECT friend_id FROM friendships WHERE id = ?", friendshipID,
	).Scan(&friendID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("friendship %s: %w", friendshipID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get friendship: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE friendships SET status = ? WHERE id = ?",
		string(models.FriendshipAccepted), friendshipID,
	)
	if err != nil {
		return fmt.Errorf("failed to update friendship: %w", err)
	}
	if err := recordActivity(ctx, tx, models.ActivityFriendAccepted, friendID, friendshipID, "", "friend request accepted"); err != nil {
		return err
	}
	return tx.Commit()
}

// GetFriends returns the user's friendships resolved to counterparty accounts.
func (s *SQLiteStore) GetFriends(ctx context.Context, userID string) ([]models.Friend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.created_at, f.status
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user_id = ? THEN f.friend_id ELSE f.user_id END
		WHERE f.user_id = ? OR f.friend_id = ?
		ORDER BY u.id`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	defer rows.Close()

	var friends []models.Friend
	for rows.Next() {
		var f models.Friend
		var status string
		if err := rows.Scan(&f.User.ID, &f.User.Name, &f.User.Email, &f.User.CreatedAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		f.Status = models.FriendshipStatus(status)
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}
	return friends, nil
}

// CreateGroup persists a new group and its members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)",
		group.ID, group.Name, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range group.Members {
		m := &group.Members[i]
		m.GroupID = group.ID
		if m.JoinedAt == 0 {
			m.JoinedAt = group.CreatedAt
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
			m.GroupID, m.UserID, string(m.Role), m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := recordActivity(ctx, tx, models.ActivityGroupCreated, group.CreatedBy, group.ID, group.ID, "group "+group.Name+" created"); err != nil {
		return err
	}
	return tx.Commit()
}

// AddGroupMembers adds members not already in the group.
func (s *SQLiteStore) AddGroupMembers(ctx context.Context, groupID string, members []models.GroupMember) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range members {
		if m.JoinedAt == 0 {
			m.JoinedAt = time.Now().Unix()
		}
		if m.Role == "" {
			m.Role = models.RoleMember
		}
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
			groupID, m.UserID, string(m.Role), m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return tx.Commit()
}

// GetGroups returns the groups the user belongs to, with members loaded.
func (s *SQLiteStore) GetGroups(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.created_by, g.created_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for i := range groups {
		members, err := s.groupMembers(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Members = members
	}
	return groups, nil
}

func (s *SQLiteStore) groupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, user_id, role, joined_at FROM group_members WHERE group_id = ? ORDER BY joined_at",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		var role string
		if err := rows.Scan(&m.GroupID, &m.UserID, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.Role = models.GroupRole(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}
