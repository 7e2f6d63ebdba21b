// Package memory provides an in-memory implementation of the storage
// interfaces. It backs unit tests and serves as a lightweight secondary
// backend for shadow-mode experiments without a second database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/storage"
)

// Ensure Store implements the full storage contract
var _ storage.Store = (*Store)(nil)

// Store keeps all records in process under one mutex. Reads return copies so
// callers can never alias internal state.
type Store struct {
	mu          sync.RWMutex
	users       map[string]models.User
	friendships map[string]models.Friendship
	groups      map[string]models.Group
	expenses    map[string]models.Expense
	edits       map[string][]models.ExpenseEdit
	settlements []models.Settlement
	activities  []models.Activity
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:       make(map[string]models.User),
		friendships: make(map[string]models.Friendship),
		groups:      make(map[string]models.Group),
		expenses:    make(map[string]models.Expense),
		edits:       make(map[string][]models.ExpenseEdit),
	}
}

// Close is a no-op; it exists to satisfy storage.Store.
func (s *Store) Close() error { return nil }

func (s *Store) recordActivity(typ models.ActivityType, actorID, subjectID, groupID, summary string) {
	s.activities = append(s.activities, models.Activity{
		ID:        uuid.New().String(),
		Type:      typ,
		ActorID:   actorID,
		SubjectID: subjectID,
		GroupID:   groupID,
		Summary:   summary,
		CreatedAt: time.Now().Unix(),
	})
}

// --- WriteStore ---

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) CreateFriendship(_ context.Context, friendship *models.Friendship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if friendship.ID == "" {
		friendship.ID = uuid.New().String()
	}
	if friendship.CreatedAt == 0 {
		friendship.CreatedAt = time.Now().Unix()
	}
	if friendship.Status == "" {
		friendship.Status = models.FriendshipPending
	}
	s.friendships[friendship.ID] = *friendship
	return nil
}

func (s *Store) AcceptFriendship(_ context.Context, friendshipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.friendships[friendshipID]
	if !ok {
		return fmt.Errorf("friendship %s: %w", friendshipID, storage.ErrNotFound)
	}
	f.Status = models.FriendshipAccepted
	s.friendships[friendshipID] = f
	s.recordActivity(models.ActivityFriendAccepted, f.FriendID, f.ID, "", "friend request accepted")
	return nil
}

func (s *Store) CreateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	for i := range group.Members {
		group.Members[i].GroupID = group.ID
		if group.Members[i].JoinedAt == 0 {
			group.Members[i].JoinedAt = group.CreatedAt
		}
	}
	s.groups[group.ID] = *group
	s.recordActivity(models.ActivityGroupCreated, group.CreatedBy, group.ID, group.ID, "group "+group.Name+" created")
	return nil
}

func (s *Store) AddGroupMembers(_ context.Context, groupID string, members []models.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	existing := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		existing[m.UserID] = true
	}
	for _, m := range members {
		if existing[m.UserID] {
			continue
		}
		m.GroupID = groupID
		if m.JoinedAt == 0 {
			m.JoinedAt = time.Now().Unix()
		}
		g.Members = append(g.Members, m)
	}
	s.groups[groupID] = g
	return nil
}

func (s *Store) CreateExpense(_ context.Context, expense *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	for i := range expense.Participants {
		expense.Participants[i].ExpenseID = expense.ID
	}
	s.expenses[expense.ID] = *expense
	s.recordActivity(models.ActivityExpenseAdded, expense.CreatedBy, expense.ID, expense.GroupID, "expense "+expense.Description+" added")
	return nil
}

func (s *Store) UpdateExpense(_ context.Context, expense *models.Expense, editedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.expenses[expense.ID]
	if !ok {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}
	s.edits[expense.ID] = append(s.edits[expense.ID], models.ExpenseEdit{
		ID:           uuid.New().String(),
		ExpenseID:    expense.ID,
		EditedBy:     editedBy,
		EditedAt:     time.Now().Unix(),
		PrevAmount:   prev.Amount,
		PrevDesc:     prev.Description,
		PrevCategory: prev.Category,
	})
	expense.CreatedAt = prev.CreatedAt
	expense.UpdatedAt = time.Now().Unix()
	for i := range expense.Participants {
		expense.Participants[i].ExpenseID = expense.ID
	}
	s.expenses[expense.ID] = *expense
	s.recordActivity(models.ActivityExpenseEdited, editedBy, expense.ID, expense.GroupID, "expense "+expense.Description+" edited")
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, expenseID, deletedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expenseID]
	if !ok {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	e.Deleted = true
	e.UpdatedAt = time.Now().Unix()
	s.expenses[expenseID] = e
	s.recordActivity(models.ActivityExpenseDeleted, deletedBy, expenseID, e.GroupID, "expense "+e.Description+" deleted")
	return nil
}

func (s *Store) CreateSettlement(_ context.Context, settlement *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	s.settlements = append(s.settlements, *settlement)
	s.recordActivity(models.ActivitySettlementAdded, settlement.FromUserID, settlement.ID, settlement.GroupID, "settlement recorded")
	return nil
}

// --- ReadStore ---

func (s *Store) GetFriends(_ context.Context, userID string) ([]models.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var friends []models.Friend
	for _, f := range s.friendships {
		var counterparty string
		switch userID {
		case f.UserID:
			counterparty = f.FriendID
		case f.FriendID:
			counterparty = f.UserID
		default:
			continue
		}
		friends = append(friends, models.Friend{User: s.users[counterparty], Status: f.Status})
	}
	sort.Slice(friends, func(i, j int) bool { return friends[i].User.ID < friends[j].User.ID })
	return friends, nil
}

func (s *Store) GetGroups(_ context.Context, userID string) ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var groups []models.Group
	for _, g := range s.groups {
		for _, m := range g.Members {
			if m.UserID == userID {
				groups = append(groups, copyGroup(g))
				break
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt > groups[j].CreatedAt })
	return groups, nil
}

func (s *Store) GetExpenses(_ context.Context, userID string) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var expenses []models.Expense
	for _, e := range s.expenses {
		if e.Deleted {
			continue
		}
		for _, p := range e.Participants {
			if p.UserID == userID {
				expenses = append(expenses, copyExpense(e))
				break
			}
		}
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].Date > expenses[j].Date })
	return expenses, nil
}

func (s *Store) GetSettlements(_ context.Context, userID string) ([]models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Settlement
	for _, st := range s.settlements {
		if st.FromUserID == userID || st.ToUserID == userID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) GetDashboardActivity(_ context.Context, userID string, limit int) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	memberOf := make(map[string]bool)
	for _, g := range s.groups {
		for _, m := range g.Members {
			if m.UserID == userID {
				memberOf[g.ID] = true
			}
		}
	}
	var out []models.Activity
	for _, a := range s.activities {
		if a.ActorID == userID || (a.GroupID != "" && memberOf[a.GroupID]) {
			out = append(out, a)
		}
	}
	return latest(out, limit), nil
}

func (s *Store) GetActivities(_ context.Context, userID string, limit int) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Activity
	for _, a := range s.activities {
		if a.ActorID == userID {
			out = append(out, a)
		}
	}
	return latest(out, limit), nil
}

// --- LedgerStore ---

func (s *Store) ParticipantsByUser(_ context.Context, userID string) ([]models.ExpenseParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []models.ExpenseParticipant
	for _, e := range s.expenses {
		for _, p := range e.Participants {
			if p.UserID == userID {
				rows = append(rows, p)
			}
		}
	}
	return rows, nil
}

func (s *Store) ParticipantsByExpenses(_ context.Context, expenseIDs []string) ([]models.ExpenseParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []models.ExpenseParticipant
	for _, id := range expenseIDs {
		e, ok := s.expenses[id]
		if !ok {
			continue
		}
		rows = append(rows, e.Participants...)
	}
	return rows, nil
}

func (s *Store) ExpensesByIDs(_ context.Context, ids []string) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Expense
	for _, id := range ids {
		e, ok := s.expenses[id]
		if !ok || e.Deleted {
			continue
		}
		out = append(out, copyExpense(e))
	}
	return out, nil
}

func (s *Store) SettlementsByUser(ctx context.Context, userID string) ([]models.Settlement, error) {
	return s.GetSettlements(ctx, userID)
}

func (s *Store) SettlementsBetween(_ context.Context, userA, userB string) ([]models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Settlement
	for _, st := range s.settlements {
		if (st.FromUserID == userA && st.ToUserID == userB) || (st.FromUserID == userB && st.ToUserID == userA) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Store) GroupLedger(_ context.Context, groupID string) ([]models.Expense, []models.ExpenseParticipant, []models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var expenses []models.Expense
	var rows []models.ExpenseParticipant
	for _, e := range s.expenses {
		if e.GroupID != groupID || e.Deleted {
			continue
		}
		expenses = append(expenses, copyExpense(e))
		rows = append(rows, e.Participants...)
	}
	var settlements []models.Settlement
	for _, st := range s.settlements {
		if st.GroupID == groupID {
			settlements = append(settlements, st)
		}
	}
	return expenses, rows, settlements, nil
}

func copyExpense(e models.Expense) models.Expense {
	out := e
	out.Participants = append([]models.ExpenseParticipant(nil), e.Participants...)
	return out
}

func copyGroup(g models.Group) models.Group {
	out := g
	out.Members = append([]models.GroupMember(nil), g.Members...)
	return out
}

func latest(activities []models.Activity, limit int) []models.Activity {
	sort.Slice(activities, func(i, j int) bool { return activities[i].CreatedAt > activities[j].CreatedAt })
	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities
}
