package models

// GroupRole is a member's role within a group.
type GroupRole string

const (
	RoleAdmin  GroupRole = "admin"
	RoleMember GroupRole = "member"
)

// Group represents a named collection of users. Groups scope which expenses
// and settlements participate in a "simplify this group's debts" request.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Goa Trip").
	Name string

	// CreatedBy is the user ID that created the group.
	CreatedBy string

	// Members lists the group's membership with roles.
	Members []GroupMember

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// GroupMember binds a user to a group with a role.
type GroupMember struct {
	GroupID  string
	UserID   string
	Role     GroupRole
	JoinedAt int64
}

// MemberIDs returns the user IDs of all members, in listed order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.UserID
	}
	return ids
}
