package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nikhil/splitledger/internal/cache"
	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/splitter"
	"github.com/nikhil/splitledger/internal/storage/memory"
)

// testEnv wires the services against an in-memory store and cache.
type testEnv struct {
	store   *memory.Store
	cache   *cache.Cache
	social  *SocialService
	expense *ExpenseService
	ledger  *LedgerService
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(cache.NewMemoryClient(), logger)
	return &testEnv{
		store:   store,
		cache:   c,
		social:  NewSocialService(store, store, c, logger),
		expense: NewExpenseService(store, store, c, logger),
		ledger:  NewLedgerService(store, c, logger),
	}
}

func (e *testEnv) user(t *testing.T, name string) string {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com"}
	if err := e.social.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u.ID
}

func TestCreateExpenseEqualSplit(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	carol := env.user(t, "carol")

	expense, err := env.expense.CreateExpense(ctx, SplitRequest{
		Description:    "Dinner",
		Amount:         100,
		Currency:       "USD",
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob, carol},
		Method:         splitter.MethodEqual,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if len(expense.Participants) != 3 {
		t.Fatalf("expected 3 participant rows, got %d", len(expense.Participants))
	}

	var paid, owed float64
	for _, p := range expense.Participants {
		paid += p.PaidAmount
		owed += p.OwedAmount
	}
	if paid != 100 || owed != 100 {
		t.Errorf("expected conservation, got paid=%.2f owed=%.2f", paid, owed)
	}

	stored, err := env.expense.GetExpenses(ctx, bob)
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("expected expense visible to bob, got %d", len(stored))
	}
}

func TestCreateExpenseRejectsBadSplit(t *testing.T) {
	env := setup(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	_, err := env.expense.CreateExpense(context.Background(), SplitRequest{
		Description:    "Rent",
		Amount:         500,
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob},
		Method:         splitter.MethodExact,
		ExactAmounts:   map[string]float64{alice: 100, bob: 100}, // sums to 200, not 500
	})
	if err == nil {
		t.Fatal("expected validation error for non-conserving exact split")
	}
	var verr *splitter.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected *splitter.ValidationError, got %T: %v", err, err)
	}
}

func TestExpenseWriteInvalidatesCachedBalance(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	if _, err := env.expense.CreateExpense(ctx, SplitRequest{
		Description:    "Taxi",
		Amount:         40,
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob},
		Method:         splitter.MethodEqual,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	balance, err := env.ledger.PairwiseBalance(ctx, alice, bob)
	if err != nil {
		t.Fatalf("PairwiseBalance: %v", err)
	}
	if balance != 20 {
		t.Fatalf("expected bob to owe alice 20, got %.2f", balance)
	}

	// A second expense must not be masked by the cached balance.
	if _, err := env.expense.CreateExpense(ctx, SplitRequest{
		Description:    "Groceries",
		Amount:         60,
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob},
		Method:         splitter.MethodEqual,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	balance, err = env.ledger.PairwiseBalance(ctx, alice, bob)
	if err != nil {
		t.Fatalf("PairwiseBalance: %v", err)
	}
	if balance != 50 {
		t.Errorf("expected updated balance 50 after invalidation, got %.2f", balance)
	}
}

func TestSettlementReducesBalance(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	if _, err := env.expense.CreateExpense(ctx, SplitRequest{
		Description:    "Hotel",
		Amount:         200,
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob},
		Method:         splitter.MethodEqual,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if err := env.expense.CreateSettlement(ctx, &models.Settlement{
		FromUserID: bob,
		ToUserID:   alice,
		Amount:     100,
		Currency:   "USD",
	}); err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	balance, err := env.ledger.PairwiseBalance(ctx, alice, bob)
	if err != nil {
		t.Fatalf("PairwiseBalance: %v", err)
	}
	if balance != 0 {
		t.Errorf("expected settled pair balance 0, got %.2f", balance)
	}
}

func TestCreateSettlementValidation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")

	if err := env.expense.CreateSettlement(ctx, &models.Settlement{
		FromUserID: alice, ToUserID: alice, Amount: 10,
	}); err == nil {
		t.Error("expected error for self-settlement")
	}
	if err := env.expense.CreateSettlement(ctx, &models.Settlement{
		FromUserID: alice, ToUserID: "someone", Amount: -5,
	}); err == nil {
		t.Error("expected error for non-positive amount")
	}
}

func TestDeleteExpenseExcludedFromBalances(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	expense, err := env.expense.CreateExpense(ctx, SplitRequest{
		Description:    "Mistake",
		Amount:         80,
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob},
		Method:         splitter.MethodEqual,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if err := env.expense.DeleteExpense(ctx, expense.ID, alice); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}

	balance, err := env.ledger.PairwiseBalance(ctx, alice, bob)
	if err != nil {
		t.Fatalf("PairwiseBalance: %v", err)
	}
	if balance != 0 {
		t.Errorf("deleted expense must not count, got balance %.2f", balance)
	}

	expenses, err := env.expense.GetExpenses(ctx, alice)
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("deleted expense must not be listed, got %d", len(expenses))
	}
}

func TestSimplifyGroupDebts(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	carol := env.user(t, "carol")

	group, err := env.social.CreateGroup(ctx, "Trip", alice, []string{bob, carol})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	// Alice fronts everything; Bob and Carol each owe a third.
	if _, err := env.expense.CreateExpense(ctx, SplitRequest{
		Description:    "Cabin",
		Amount:         300,
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob, carol},
		GroupID:        group.ID,
		Method:         splitter.MethodEqual,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	result, err := env.ledger.SimplifyGroupDebts(ctx, group.ID)
	if err != nil {
		t.Fatalf("SimplifyGroupDebts: %v", err)
	}
	if len(result.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d: %v", len(result.Transfers), result.Transfers)
	}
	var total float64
	for _, tr := range result.Transfers {
		if tr.To != alice {
			t.Errorf("every transfer should pay alice, got %s -> %s", tr.From, tr.To)
		}
		total += tr.Amount
	}
	if total != 200 {
		t.Errorf("expected 200 flowing to alice, got %.2f", total)
	}
}

func TestSimplifyDebtsAcrossUsers(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	carol := env.user(t, "carol")

	// No group: two ad hoc expenses, then a partial settlement.
	if _, err := env.expense.CreateExpense(ctx, SplitRequest{
		Description:    "Concert",
		Amount:         90,
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob, carol},
		Method:         splitter.MethodEqual,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if err := env.expense.CreateSettlement(ctx, &models.Settlement{
		FromUserID: bob, ToUserID: alice, Amount: 30,
	}); err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	result, err := env.ledger.SimplifyDebts(ctx, []string{alice, bob, carol})
	if err != nil {
		t.Fatalf("SimplifyDebts: %v", err)
	}

	// Bob settled in full; only carol still owes alice 30.
	if len(result.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d: %v", len(result.Transfers), result.Transfers)
	}
	tr := result.Transfers[0]
	if tr.From != carol || tr.To != alice || tr.Amount != 30 {
		t.Errorf("unexpected transfer: %+v", tr)
	}
}

func TestFriendshipLifecycle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	friendship, err := env.social.SendFriendRequest(ctx, alice, bob)
	if err != nil {
		t.Fatalf("SendFriendRequest: %v", err)
	}

	friends, err := env.social.GetFriends(ctx, bob)
	if err != nil {
		t.Fatalf("GetFriends: %v", err)
	}
	if len(friends) != 1 || friends[0].Status != models.FriendshipPending {
		t.Fatalf("expected one pending friend for bob, got %+v", friends)
	}

	if err := env.social.AcceptFriendRequest(ctx, friendship); err != nil {
		t.Fatalf("AcceptFriendRequest: %v", err)
	}

	// Acceptance invalidates both sides; the cached pending row must be gone.
	for _, uid := range []string{alice, bob} {
		friends, err := env.social.GetFriends(ctx, uid)
		if err != nil {
			t.Fatalf("GetFriends(%s): %v", uid, err)
		}
		if len(friends) != 1 || friends[0].Status != models.FriendshipAccepted {
			t.Errorf("expected accepted friendship for %s, got %+v", uid, friends)
		}
	}
}

func TestSelfFriendRequestRejected(t *testing.T) {
	env := setup(t)
	alice := env.user(t, "alice")
	if _, err := env.social.SendFriendRequest(context.Background(), alice, alice); err == nil {
		t.Fatal("expected error for self friend request")
	}
}

func TestDashboardActivitySeesGroupEvents(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	group, err := env.social.CreateGroup(ctx, "Flat", alice, []string{bob})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := env.expense.CreateExpense(ctx, SplitRequest{
		Description:    "Internet",
		Amount:         50,
		PayerID:        alice,
		ParticipantIDs: []string{alice, bob},
		GroupID:        group.ID,
		Method:         splitter.MethodEqual,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	// Bob did not act, but both events happened in his group.
	feed, err := env.social.GetDashboardActivity(ctx, bob, 10)
	if err != nil {
		t.Fatalf("GetDashboardActivity: %v", err)
	}
	if len(feed) < 2 {
		t.Errorf("expected group events on bob's dashboard, got %d", len(feed))
	}

	own, err := env.social.GetActivities(ctx, bob, 10)
	if err != nil {
		t.Fatalf("GetActivities: %v", err)
	}
	if len(own) != 0 {
		t.Errorf("bob's own feed should be empty, got %d", len(own))
	}
}
