package notifications

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "kindred/pkg/domain"
	"kindred/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, recipient_role, type, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(n.ID),
		uuid.UUID(n.RecipientID),
		n.RecipientRole.String(),
		n.Type.String(),
		n.Title,
		n.Message,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, userID id.UserID, onlyUnread bool) ([]*Notification, error) {
	query := `
		SELECT id, recipient_id, recipient_role, type, title, message, read, created_at
		FROM notifications
		WHERE recipient_id = $1
	`
	if onlyUnread {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var (
			n           Notification
			notifID     uuid.UUID
			recipientID uuid.UUID
			role        string
			typ         string
		)
		err := rows.Scan(&notifID, &recipientID, &role, &typ, &n.Title, &n.Message, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = id.NotificationID(notifID)
		n.RecipientID = id.UserID(recipientID)
		n.RecipientRole = id.Role(role)
		n.Type = id.NotificationType(typ)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID id.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`,
		uuid.UUID(userID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID, callerID id.UserID) error {
	// Ownership is part of the WHERE clause: a miss on either id or owner
	// produces the same zero-row result, so existence never leaks.
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`,
		uuid.UUID(notificationID), uuid.UUID(callerID))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
