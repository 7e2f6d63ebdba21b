package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/splitledger/internal/cache"
	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/storage"
)

// SocialService manages users, friendships, groups, and activity feeds.
type SocialService struct {
	store  storage.Store
	reads  storage.ReadStore
	cache  *cache.Cache
	logger *slog.Logger
}

// NewSocialService creates a SocialService.
func NewSocialService(store storage.Store, reads storage.ReadStore, c *cache.Cache, logger *slog.Logger) *SocialService {
	return &SocialService{store: store, reads: reads, cache: c, logger: logger}
}

// CreateUser registers a new account.
func (s *SocialService) CreateUser(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return fmt.Errorf("email is required")
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user created", "user_id", user.ID)
	return nil
}

// GetUser returns the user's account, or storage.ErrNotFound.
func (s *SocialService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

// SendFriendRequest creates a pending friendship from userID to friendID.
func (s *SocialService) SendFriendRequest(ctx context.Context, userID, friendID string) (*models.Friendship, error) {
	if userID == friendID {
		return nil, fmt.Errorf("cannot befriend yourself")
	}

	friendship := &models.Friendship{
		ID:        uuid.New().String(),
		UserID:    userID,
		FriendID:  friendID,
		Status:    models.FriendshipPending,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.store.CreateFriendship(ctx, friendship); err != nil {
		return nil, fmt.Errorf("failed to create friendship: %w", err)
	}

	s.cache.Invalidate(ctx, []string{userID, friendID}, []cache.Scope{cache.ScopeFriends})
	s.logger.Info("friend request sent", "from", userID, "to", friendID)
	return friendship, nil
}

// AcceptFriendRequest flips a pending friendship to accepted. Both sides see
// the same row, so both sides' friend caches go stale.
func (s *SocialService) AcceptFriendRequest(ctx context.Context, friendship *models.Friendship) error {
	if err := s.store.AcceptFriendship(ctx, friendship.ID); err != nil {
		return fmt.Errorf("failed to accept friendship: %w", err)
	}

	s.cache.Invalidate(ctx,
		[]string{friendship.UserID, friendship.FriendID},
		[]cache.Scope{cache.ScopeFriends, cache.ScopeActivity},
	)
	s.logger.Info("friend request accepted", "friendship_id", friendship.ID)
	return nil
}

// CreateGroup creates a group with the creator as admin plus any extra
// members.
func (s *SocialService) CreateGroup(ctx context.Context, name, createdBy string, memberIDs []string) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	now := time.Now().Unix()
	group := &models.Group{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: now,
	}
	group.Members = append(group.Members, models.GroupMember{
		GroupID:  group.ID,
		UserID:   createdBy,
		Role:     models.RoleAdmin,
		JoinedAt: now,
	})
	for _, id := range memberIDs {
		if id == createdBy {
			continue
		}
		group.Members = append(group.Members, models.GroupMember{
			GroupID:  group.ID,
			UserID:   id,
			Role:     models.RoleMember,
			JoinedAt: now,
		})
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.cache.Invalidate(ctx, group.MemberIDs(), []cache.Scope{cache.ScopeGroups, cache.ScopeActivity})
	s.logger.Info("group created", "group_id", group.ID, "members", len(group.Members))
	return group, nil
}

// AddGroupMembers adds users to an existing group as plain members.
func (s *SocialService) AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error {
	now := time.Now().Unix()
	members := make([]models.GroupMember, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, models.GroupMember{
			GroupID:  groupID,
			UserID:   id,
			Role:     models.RoleMember,
			JoinedAt: now,
		})
	}
	if err := s.store.AddGroupMembers(ctx, groupID, members); err != nil {
		return fmt.Errorf("failed to add group members: %w", err)
	}

	s.cache.Invalidate(ctx, userIDs, []cache.Scope{cache.ScopeGroups})
	s.logger.Info("group members added", "group_id", groupID, "added", len(userIDs))
	return nil
}

// GetFriends returns the user's friends through the read cache.
func (s *SocialService) GetFriends(ctx context.Context, userID string) ([]models.Friend, error) {
	return cache.Fetch(ctx, s.cache, cache.ScopeFriends, userID, "", func(ctx context.Context) ([]models.Friend, error) {
		return s.reads.GetFriends(ctx, userID)
	})
}

// GetGroups returns the user's groups through the read cache.
func (s *SocialService) GetGroups(ctx context.Context, userID string) ([]models.Group, error) {
	return cache.Fetch(ctx, s.cache, cache.ScopeGroups, userID, "", func(ctx context.Context) ([]models.Group, error) {
		return s.reads.GetGroups(ctx, userID)
	})
}

// GetDashboardActivity returns recent activity visible to the user. The
// limit is part of the cache key so different page sizes get distinct slots.
func (s *SocialService) GetDashboardActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	extra := "dashboard:" + strconv.Itoa(limit)
	return cache.Fetch(ctx, s.cache, cache.ScopeActivity, userID, extra, func(ctx context.Context) ([]models.Activity, error) {
		return s.reads.GetDashboardActivity(ctx, userID, limit)
	})
}

// GetActivities returns the user's own activity feed through the read cache.
func (s *SocialService) GetActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	extra := "own:" + strconv.Itoa(limit)
	return cache.Fetch(ctx, s.cache, cache.ScopeActivity, userID, extra, func(ctx context.Context) ([]models.Activity, error) {
		return s.reads.GetActivities(ctx, userID, limit)
	})
}
