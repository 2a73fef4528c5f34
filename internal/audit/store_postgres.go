package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "kindred/pkg/domain"
)

// PostgresStore persists audit events. Insert-only by construction: this
// file contains no UPDATE or DELETE statements, and none may be added.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO access_log (id, link_id, guardian_id, child_id, occurred_at,
			action, actor_role, categories, client_ip, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	categories := make([]string, len(event.Categories))
	for i, c := range event.Categories {
		categories[i] = c.String()
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		uuid.UUID(event.LinkID),
		uuid.UUID(event.GuardianID),
		uuid.UUID(event.ChildID),
		event.Timestamp,
		string(event.Action),
		event.ActorRole.String(),
		pq.Array(categories),
		event.ClientIP,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByChild(ctx context.Context, childID id.UserID) ([]Event, error) {
	return s.query(ctx, `child_id = $1`, uuid.UUID(childID))
}

func (s *PostgresStore) ListByLink(ctx context.Context, linkID id.LinkID) ([]Event, error) {
	return s.query(ctx, `link_id = $1`, uuid.UUID(linkID))
}

func (s *PostgresStore) query(ctx context.Context, where string, arg any) ([]Event, error) {
	query := `
		SELECT id, link_id, guardian_id, child_id, occurred_at,
			action, actor_role, categories, client_ip, device
		FROM access_log
		WHERE ` + where + `
		ORDER BY occurred_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event      Event
			entryID    uuid.UUID
			linkID     uuid.UUID
			guardianID uuid.UUID
			childID    uuid.UUID
			action     string
			actorRole  string
			categories pq.StringArray
		)
		err := rows.Scan(&entryID, &linkID, &guardianID, &childID, &event.Timestamp,
			&action, &actorRole, &categories, &event.ClientIP, &event.Device)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ID = id.AccessEntryID(entryID)
		event.LinkID = id.LinkID(linkID)
		event.GuardianID = id.UserID(guardianID)
		event.ChildID = id.UserID(childID)
		event.Action = Action(action)
		event.ActorRole = id.Role(actorRole)
		for _, c := range categories {
			event.Categories = append(event.Categories, id.DataCategory(c))
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
