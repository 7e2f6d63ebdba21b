// Package models defines the core domain models for Splitledger.
//
// # Models
//
//   - User: a registered account, referenced by ID everywhere else
//   - Friendship: a symmetric relation between two users with a status
//   - Group / GroupMember: a named collection of users that scopes expenses
//   - Expense: a recorded shared expense, soft-deleted rather than removed
//   - ExpenseParticipant: one person's paid/owed stake in one expense
//   - Settlement: an append-only record of a real-world payment
//   - Activity: a feed entry describing a ledger event
//
// # Design Principles
//
//  1. **IDs over pointers**: relationships are ID strings, never embedded
//     structs, to avoid circular references across storage backends.
//  2. **Reconstructible history**: expenses are never physically deleted and
//     settlements are never edited, so any past balance can be recomputed.
//  3. **Zero-sum expenses**: for a non-deleted expense the participant rows
//     conserve the amount: sum(paid) == sum(owed) == expense amount.
package models
