package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nikhil/splitledger/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "splitledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUsers(t *testing.T, store *SQLiteStore, names ...string) {
	t.Helper()
	ctx := context.Background()
	for _, name := range names {
		u := &models.User{ID: name, Name: name, Email: name + "@example.com"}
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", name, err)
		}
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, store, "alice", "bob", "carol")

	t.Run("CreateExpense generates ID and persists participants", func(t *testing.T) {
		e := &models.Expense{
			Description: "Dinner",
			Amount:      60,
			Currency:    "USD",
			CreatedBy:   "alice",
			Participants: []models.ExpenseParticipant{
				{UserID: "alice", PaidAmount: 60, OwedAmount: 30},
				{UserID: "bob", PaidAmount: 0, OwedAmount: 30},
			},
		}
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if e.ID == "" {
			t.Error("Expected expense ID to be generated")
		}
		if e.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		expenses, err := store.GetExpenses(ctx, "bob")
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		if len(expenses) != 1 {
			t.Fatalf("got %d expenses, want 1", len(expenses))
		}
		if len(expenses[0].Participants) != 2 {
			t.Errorf("got %d participants, want 2", len(expenses[0].Participants))
		}
	})

	t.Run("DeleteExpense hides from reads but keeps the row", func(t *testing.T) {
		e := &models.Expense{
			Description: "Taxi",
			Amount:      20,
			Currency:    "USD",
			CreatedBy:   "alice",
			Participants: []models.ExpenseParticipant{
				{UserID: "alice", PaidAmount: 20, OwedAmount: 10},
				{UserID: "carol", PaidAmount: 0, OwedAmount: 10},
			},
		}
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if err := store.DeleteExpense(ctx, e.ID, "alice"); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}

		expenses, err := store.GetExpenses(ctx, "carol")
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		if len(expenses) != 0 {
			t.Errorf("got %d expenses after soft delete, want 0", len(expenses))
		}

		// Participant rows survive for history, but the ledger feed
		// excludes the deleted expense.
		rows, err := store.ParticipantsByUser(ctx, "carol")
		if err != nil {
			t.Fatalf("ParticipantsByUser failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("got %d participant rows, want 1", len(rows))
		}
		active, err := store.ExpensesByIDs(ctx, []string{e.ID})
		if err != nil {
			t.Fatalf("ExpensesByIDs failed: %v", err)
		}
		if len(active) != 0 {
			t.Errorf("deleted expense returned by ExpensesByIDs")
		}
	})

	t.Run("UpdateExpense records an edit revision", func(t *testing.T) {
		e := &models.Expense{
			Description: "Groceries",
			Amount:      40,
			Currency:    "USD",
			CreatedBy:   "bob",
			Participants: []models.ExpenseParticipant{
				{UserID: "bob", PaidAmount: 40, OwedAmount: 20},
				{UserID: "alice", PaidAmount: 0, OwedAmount: 20},
			},
		}
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		e.Amount = 50
		e.Participants = []models.ExpenseParticipant{
			{UserID: "bob", PaidAmount: 50, OwedAmount: 25},
			{UserID: "alice", PaidAmount: 0, OwedAmount: 25},
		}
		if err := store.UpdateExpense(ctx, e, "bob"); err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}

		var count int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM expense_edits WHERE expense_id = ?", e.ID).Scan(&count); err != nil {
			t.Fatalf("count edits: %v", err)
		}
		if count != 1 {
			t.Errorf("got %d edit revisions, want 1", count)
		}

		expenses, err := store.GetExpenses(ctx, "alice")
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		var found bool
		for _, exp := range expenses {
			if exp.ID == e.ID && exp.Amount == 50 {
				found = true
			}
		}
		if !found {
			t.Error("updated amount not visible in reads")
		}
	})

	t.Run("Settlements by user and between users", func(t *testing.T) {
		s1 := &models.Settlement{FromUserID: "bob", ToUserID: "alice", Amount: 15, Currency: "USD"}
		s2 := &models.Settlement{FromUserID: "alice", ToUserID: "carol", Amount: 5, Currency: "USD"}
		if err := store.CreateSettlement(ctx, s1); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}
		if err := store.CreateSettlement(ctx, s2); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}

		mine, err := store.GetSettlements(ctx, "alice")
		if err != nil {
			t.Fatalf("GetSettlements failed: %v", err)
		}
		if len(mine) != 2 {
			t.Errorf("got %d settlements for alice, want 2", len(mine))
		}

		between, err := store.SettlementsBetween(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("SettlementsBetween failed: %v", err)
		}
		if len(between) != 1 {
			t.Errorf("got %d settlements between alice and bob, want 1", len(between))
		}
	})

	t.Run("Friendships resolve counterparty from either side", func(t *testing.T) {
		f := &models.Friendship{UserID: "alice", FriendID: "bob"}
		if err := store.CreateFriendship(ctx, f); err != nil {
			t.Fatalf("CreateFriendship failed: %v", err)
		}
		if err := store.AcceptFriendship(ctx, f.ID); err != nil {
			t.Fatalf("AcceptFriendship failed: %v", err)
		}

		aliceFriends, err := store.GetFriends(ctx, "alice")
		if err != nil {
			t.Fatalf("GetFriends failed: %v", err)
		}
		bobFriends, err := store.GetFriends(ctx, "bob")
		if err != nil {
			t.Fatalf("GetFriends failed: %v", err)
		}
		if len(aliceFriends) != 1 || aliceFriends[0].User.ID != "bob" {
			t.Errorf("alice's friends = %+v, want bob", aliceFriends)
		}
		if len(bobFriends) != 1 || bobFriends[0].User.ID != "alice" {
			t.Errorf("bob's friends = %+v, want alice", bobFriends)
		}
		if aliceFriends[0].Status != models.FriendshipAccepted {
			t.Errorf("status = %s, want accepted", aliceFriends[0].Status)
		}
	})

	t.Run("Groups with members", func(t *testing.T) {
		g := &models.Group{
			Name:      "Roommates",
			CreatedBy: "alice",
			Members: []models.GroupMember{
				{UserID: "alice", Role: models.RoleAdmin},
				{UserID: "bob", Role: models.RoleMember},
			},
		}
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if err := store.AddGroupMembers(ctx, g.ID, []models.GroupMember{{UserID: "carol"}}); err != nil {
			t.Fatalf("AddGroupMembers failed: %v", err)
		}

		groups, err := store.GetGroups(ctx, "carol")
		if err != nil {
			t.Fatalf("GetGroups failed: %v", err)
		}
		if len(groups) != 1 {
			t.Fatalf("got %d groups for carol, want 1", len(groups))
		}
		if len(groups[0].Members) != 3 {
			t.Errorf("got %d members, want 3", len(groups[0].Members))
		}
	})

	t.Run("GroupLedger gathers expenses, rows, settlements", func(t *testing.T) {
		g := &models.Group{Name: "Trip", CreatedBy: "alice", Members: []models.GroupMember{
			{UserID: "alice", Role: models.RoleAdmin},
			{UserID: "bob", Role: models.RoleMember},
		}}
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		e := &models.Expense{
			Description: "Hotel", Amount: 100, Currency: "USD", CreatedBy: "alice", GroupID: g.ID,
			Participants: []models.ExpenseParticipant{
				{UserID: "alice", PaidAmount: 100, OwedAmount: 50},
				{UserID: "bob", PaidAmount: 0, OwedAmount: 50},
			},
		}
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		st := &models.Settlement{FromUserID: "bob", ToUserID: "alice", Amount: 50, Currency: "USD", GroupID: g.ID}
		if err := store.CreateSettlement(ctx, st); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}

		expenses, rows, settlements, err := store.GroupLedger(ctx, g.ID)
		if err != nil {
			t.Fatalf("GroupLedger failed: %v", err)
		}
		if len(expenses) != 1 || len(rows) != 2 || len(settlements) != 1 {
			t.Errorf("GroupLedger = %d expenses, %d rows, %d settlements; want 1/2/1",
				len(expenses), len(rows), len(settlements))
		}
	})

	t.Run("Activity feeds", func(t *testing.T) {
		dashboard, err := store.GetDashboardActivity(ctx, "alice", 50)
		if err != nil {
			t.Fatalf("GetDashboardActivity failed: %v", err)
		}
		if len(dashboard) == 0 {
			t.Error("expected dashboard activity for alice")
		}

		own, err := store.GetActivities(ctx, "alice", 50)
		if err != nil {
			t.Fatalf("GetActivities failed: %v", err)
		}
		for _, a := range own {
			if a.ActorID != "alice" {
				t.Errorf("own feed contains actor %s", a.ActorID)
			}
		}
	})
}
