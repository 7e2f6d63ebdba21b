package models

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Name is the display name of the user.
	Name string

	// Email is the user's email address (unique).
	Email string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// FriendshipStatus is the lifecycle state of a friendship.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship represents a symmetric relation between two users.
// The pair (UserID, FriendID) is stored once; either side's view must
// resolve to the same row.
type Friendship struct {
	ID        string
	UserID    string
	FriendID  string
	Status    FriendshipStatus
	CreatedAt int64
}

// Friend is a friendship resolved from one user's point of view,
// carrying the counterparty's account details.
type Friend struct {
	User   User
	Status FriendshipStatus
}
