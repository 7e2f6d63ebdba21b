// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/nikhil/splitledger/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// ReadStore is the uniform query interface served to the request layer.
// Implementations back it with different stores (SQLite, in-memory, Neo4j)
// and must be safe for concurrent use.
type ReadStore interface {
	// GetFriends returns the user's friendships resolved to counterparty
	// accounts, accepted and pending.
	GetFriends(ctx context.Context, userID string) ([]models.Friend, error)

	// GetGroups returns the groups the user belongs to, with members.
	GetGroups(ctx context.Context, userID string) ([]models.Group, error)

	// GetExpenses returns the user's non-deleted expenses with participant
	// rows, newest first.
	GetExpenses(ctx context.Context, userID string) ([]models.Expense, error)

	// GetSettlements returns settlements where the user is either party,
	// newest first.
	GetSettlements(ctx context.Context, userID string) ([]models.Settlement, error)

	// GetDashboardActivity returns recent activity visible to the user:
	// their own actions plus activity in their groups.
	GetDashboardActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error)

	// GetActivities returns the user's own activity feed.
	GetActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error)
}

// LedgerStore feeds the balance aggregator. The queries deliberately mirror
// what the aggregator consumes: participant rows by user, non-deleted
// expenses by ID set, and settlements by either party.
type LedgerStore interface {
	// ParticipantsByUser returns every participant row for the user,
	// including settled ones; the aggregator filters.
	ParticipantsByUser(ctx context.Context, userID string) ([]models.ExpenseParticipant, error)

	// ParticipantsByExpenses returns all participant rows of the given
	// expenses.
	ParticipantsByExpenses(ctx context.Context, expenseIDs []string) ([]models.ExpenseParticipant, error)

	// ExpensesByIDs returns the non-deleted expenses among ids. Missing or
	// deleted IDs are simply absent from the result.
	ExpensesByIDs(ctx context.Context, ids []string) ([]models.Expense, error)

	// SettlementsByUser returns settlements where the user is either party.
	SettlementsByUser(ctx context.Context, userID string) ([]models.Settlement, error)

	// SettlementsBetween returns settlements between the two users, in
	// either direction.
	SettlementsBetween(ctx context.Context, userA, userB string) ([]models.Settlement, error)

	// GroupLedger returns the group's full ledger slice: non-deleted
	// expenses, their participant rows, and the group's settlements.
	GroupLedger(ctx context.Context, groupID string) ([]models.Expense, []models.ExpenseParticipant, []models.Settlement, error)
}

// WriteStore holds the mutation operations. Every mutation is atomic with
// its side rows (participant rows, edit revisions, activity entries).
type WriteStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)

	CreateFriendship(ctx context.Context, friendship *models.Friendship) error
	AcceptFriendship(ctx context.Context, friendshipID string) error

	CreateGroup(ctx context.Context, group *models.Group) error
	AddGroupMembers(ctx context.Context, groupID string, members []models.GroupMember) error

	// CreateExpense persists the expense and its participant rows
	// atomically. The rows are expected to conserve the amount (the split
	// engine's output).
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// UpdateExpense replaces the expense's mutable fields and participant
	// rows, recording an edit revision of the prior values.
	UpdateExpense(ctx context.Context, expense *models.Expense, editedBy string) error

	// DeleteExpense soft-deletes: the row stays, balances exclude it.
	DeleteExpense(ctx context.Context, expenseID, deletedBy string) error

	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
}

// Store is the full contract a primary backend implements.
type Store interface {
	ReadStore
	LedgerStore
	WriteStore
	Close() error
}
