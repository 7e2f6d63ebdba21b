package models

// ActivityType classifies a feed entry.
type ActivityType string

const (
	ActivityExpenseAdded    ActivityType = "expense_added"
	ActivityExpenseEdited   ActivityType = "expense_edited"
	ActivityExpenseDeleted  ActivityType = "expense_deleted"
	ActivitySettlementAdded ActivityType = "settlement_added"
	ActivityGroupCreated    ActivityType = "group_created"
	ActivityFriendAccepted  ActivityType = "friend_accepted"
)

// Activity is one entry in a user's activity feed.
type Activity struct {
	ID        string
	Type      ActivityType
	ActorID   string
	SubjectID string // expense, settlement, or group ID depending on Type
	GroupID   string
	Summary   string
	CreatedAt int64
}
