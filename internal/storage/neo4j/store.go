// Package neo4j provides a graph-backed implementation of the read
// repository. It is the migration target: shadow mode serves from SQLite
// while diffing result counts against this store.
//
// The graph model keeps users, groups, expenses, settlements and activities
// as nodes, with friendships, memberships and expense participation as
// relationships carrying the row attributes.
package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/storage"
)

// Ensure Store implements the read repository
var _ storage.ReadStore = (*Store)(nil)

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("neo4j: URI is required")

// Options configures connectivity to the graph database.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// Store implements storage.ReadStore against a Bolt-compatible graph store.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// New establishes a Bolt connection and verifies connectivity.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &Store{driver: driver, database: opts.Database}, nil
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type record map[string]any

func (s *Store) read(ctx context.Context, cypher string, params map[string]any) ([]record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	var records []record
	for res.Next(ctx) {
		rec := res.Record()
		row := make(record, len(rec.Keys))
		for _, key := range rec.Keys {
			value, _ := rec.Get(key)
			row[key] = value
		}
		records = append(records, row)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetFriends returns friendships resolved from either side of the relation.
func (s *Store) GetFriends(ctx context.Context, userID string) ([]models.Friend, error) {
	records, err := s.read(ctx, `
		MATCH (u:User {id: $id})-[f:FRIENDS_WITH]-(v:User)
		RETURN v.id AS id, v.name AS name, v.email AS email,
		       v.created_at AS created_at, f.status AS status
		ORDER BY v.id`,
		map[string]any{"id": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}

	friends := make([]models.Friend, 0, len(records))
	for _, rec := range records {
		friends = append(friends, models.Friend{
			User: models.User{
				ID:        asString(rec["id"]),
				Name:      asString(rec["name"]),
				Email:     asString(rec["email"]),
				CreatedAt: asInt64(rec["created_at"]),
			},
			Status: models.FriendshipStatus(asString(rec["status"])),
		})
	}
	return friends, nil
}

// GetGroups returns the user's groups with membership rows.
func (s *Store) GetGroups(ctx context.Context, userID string) ([]models.Group, error) {
	records, err := s.read(ctx, `
		MATCH (u:User {id: $id})-[:MEMBER_OF]->(g:Group)<-[mr:MEMBER_OF]-(m:User)
		RETURN g.id AS group_id, g.name AS name, g.created_by AS created_by,
		       g.created_at AS created_at, m.id AS member_id,
		       mr.role AS role, mr.joined_at AS joined_at
		ORDER BY g.created_at DESC, mr.joined_at`,
		map[string]any{"id": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}

	var groups []models.Group
	index := make(map[string]int)
	for _, rec := range records {
		gid := asString(rec["group_id"])
		i, ok := index[gid]
		if !ok {
			i = len(groups)
			index[gid] = i
			groups = append(groups, models.Group{
				ID:        gid,
				Name:      asString(rec["name"]),
				CreatedBy: asString(rec["created_by"]),
				CreatedAt: asInt64(rec["created_at"]),
			})
		}
		groups[i].Members = append(groups[i].Members, models.GroupMember{
			GroupID:  gid,
			UserID:   asString(rec["member_id"]),
			Role:     models.GroupRole(asString(rec["role"])),
			JoinedAt: asInt64(rec["joined_at"]),
		})
	}
	return groups, nil
}

// GetExpenses returns the user's non-deleted expenses with participant rows.
func (s *Store) GetExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	records, err := s.read(ctx, `
		MATCH (u:User {id: $id})-[:PARTICIPATED]->(e:Expense)
		WHERE coalesce(e.deleted, false) = false
		MATCH (p:User)-[pr:PARTICIPATED]->(e)
		RETURN e.id AS expense_id, e.description AS description, e.amount AS amount,
		       e.currency AS currency, e.category AS category, e.created_by AS created_by,
		       coalesce(e.group_id, '') AS group_id, e.date AS date,
		       e.created_at AS created_at, e.updated_at AS updated_at,
		       p.id AS participant_id, pr.paid_amount AS paid_amount,
		       pr.owed_amount AS owed_amount, coalesce(pr.is_settled, false) AS is_settled
		ORDER BY e.date DESC, p.id`,
		map[string]any{"id": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	var expenses []models.Expense
	index := make(map[string]int)
	for _, rec := range records {
		eid := asString(rec["expense_id"])
		i, ok := index[eid]
		if !ok {
			i = len(expenses)
			index[eid] = i
			expenses = append(expenses, models.Expense{
				ID:          eid,
				Description: asString(rec["description"]),
				Amount:      asFloat(rec["amount"]),
				Currency:    asString(rec["currency"]),
				Category:    asString(rec["category"]),
				CreatedBy:   asString(rec["created_by"]),
				GroupID:     asString(rec["group_id"]),
				Date:        asInt64(rec["date"]),
				CreatedAt:   asInt64(rec["created_at"]),
				UpdatedAt:   asInt64(rec["updated_at"]),
			})
		}
		expenses[i].Participants = append(expenses[i].Participants, models.ExpenseParticipant{
			ExpenseID:  eid,
			UserID:     asString(rec["participant_id"]),
			PaidAmount: asFloat(rec["paid_amount"]),
			OwedAmount: asFloat(rec["owed_amount"]),
			IsSettled:  asBool(rec["is_settled"]),
		})
	}
	return expenses, nil
}

// GetSettlements returns settlements where the user is either party.
func (s *Store) GetSettlements(ctx context.Context, userID string) ([]models.Settlement, error) {
	records, err := s.read(ctx, `
		MATCH (st:Settlement)
		WHERE st.from_user_id = $id OR st.to_user_id = $id
		RETURN st.id AS id, st.from_user_id AS from_user_id, st.to_user_id AS to_user_id,
		       st.amount AS amount, st.currency AS currency,
		       coalesce(st.group_id, '') AS group_id, st.date AS date,
		       coalesce(st.note, '') AS note, st.created_at AS created_at
		ORDER BY st.date DESC`,
		map[string]any{"id": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlements: %w", err)
	}
	return mapSettlements(records), nil
}

// GetDashboardActivity returns recent activity visible to the user.
func (s *Store) GetDashboardActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	records, err := s.read(ctx, `
		MATCH (a:Activity)
		WHERE a.actor_id = $id
		   OR a.group_id IN [(:User {id: $id})-[:MEMBER_OF]->(g:Group) | g.id]
		RETURN a.id AS id, a.type AS type, a.actor_id AS actor_id,
		       a.subject_id AS subject_id, coalesce(a.group_id, '') AS group_id,
		       a.summary AS summary, a.created_at AS created_at
		ORDER BY a.created_at DESC
		LIMIT $limit`,
		map[string]any{"id": userID, "limit": limit},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard activity: %w", err)
	}
	return mapActivities(records), nil
}

// GetActivities returns the user's own activity feed.
func (s *Store) GetActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	records, err := s.read(ctx, `
		MATCH (a:Activity {actor_id: $id})
		RETURN a.id AS id, a.type AS type, a.actor_id AS actor_id,
		       a.subject_id AS subject_id, coalesce(a.group_id, '') AS group_id,
		       a.summary AS summary, a.created_at AS created_at
		ORDER BY a.created_at DESC
		LIMIT $limit`,
		map[string]any{"id": userID, "limit": limit},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	return mapActivities(records), nil
}

func mapSettlements(records []record) []models.Settlement {
	out := make([]models.Settlement, 0, len(records))
	for _, rec := range records {
		out = append(out, models.Settlement{
			ID:         asString(rec["id"]),
			FromUserID: asString(rec["from_user_id"]),
			ToUserID:   asString(rec["to_user_id"]),
			Amount:     asFloat(rec["amount"]),
			Currency:   asString(rec["currency"]),
			GroupID:    asString(rec["group_id"]),
			Date:       asInt64(rec["date"]),
			Note:       asString(rec["note"]),
			CreatedAt:  asInt64(rec["created_at"]),
		})
	}
	return out
}

func mapActivities(records []record) []models.Activity {
	out := make([]models.Activity, 0, len(records))
	for _, rec := range records {
		out = append(out, models.Activity{
			ID:        asString(rec["id"]),
			Type:      models.ActivityType(asString(rec["type"])),
			ActorID:   asString(rec["actor_id"]),
			SubjectID: asString(rec["subject_id"]),
			GroupID:   asString(rec["group_id"]),
			Summary:   asString(rec["summary"]),
			CreatedAt: asInt64(rec["created_at"]),
		})
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
