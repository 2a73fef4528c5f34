// Package postgres persists guardian links. The store is pure I/O; status
// rules live in the service. Transitions are single UPDATE statements
// guarded by the expected status, so two racing writers can never both win.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kindred/internal/links"
	id "kindred/pkg/domain"
	"kindred/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const linkColumns = `id, guardian_id, child_id, status, permissions, code_hash, code_expires_at,
	created_at, approved_at, revoked_at, revoked_by`

func (s *Store) Create(ctx context.Context, link *links.GuardianLink) error {
	query := `
		INSERT INTO guardian_links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var revokedBy sql.NullString
	if link.RevokedBy != "" {
		revokedBy = sql.NullString{String: link.RevokedBy.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(link.ID),
		uuid.UUID(link.GuardianID),
		uuid.UUID(link.ChildID),
		string(link.Status),
		pq.Array(link.Permissions.Strings()),
		link.CodeHash,
		link.CodeExpiresAt,
		link.CreatedAt,
		link.ApprovedAt,
		link.RevokedAt,
		revokedBy,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert guardian link: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, linkID id.LinkID) (*links.GuardianLink, error) {
	query := `SELECT ` + linkColumns + ` FROM guardian_links WHERE id = $1`
	link, err := scanLink(s.db.QueryRowContext(ctx, query, uuid.UUID(linkID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find guardian link: %w", err)
	}
	return link, nil
}

func (s *Store) FindCurrentByPair(ctx context.Context, guardianID, childID id.UserID) (*links.GuardianLink, error) {
	query := `
		SELECT ` + linkColumns + ` FROM guardian_links
		WHERE guardian_id = $1 AND child_id = $2 AND status IN ('PENDING', 'ACTIVE')
	`
	link, err := scanLink(s.db.QueryRowContext(ctx, query, uuid.UUID(guardianID), uuid.UUID(childID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find current link for pair: %w", err)
	}
	return link, nil
}

func (s *Store) ListByParty(ctx context.Context, userID id.UserID, role id.Role) ([]*links.GuardianLink, error) {
	column := "child_id"
	if role == id.RoleGuardian {
		column = "guardian_id"
	}
	query := `SELECT ` + linkColumns + ` FROM guardian_links WHERE ` + column + ` = $1 ORDER BY created_at DESC`
	return s.queryLinks(ctx, query, uuid.UUID(userID))
}

func (s *Store) ListActiveByChild(ctx context.Context, childID id.UserID) ([]*links.GuardianLink, error) {
	query := `SELECT ` + linkColumns + ` FROM guardian_links WHERE child_id = $1 AND status = 'ACTIVE'`
	return s.queryLinks(ctx, query, uuid.UUID(childID))
}

func (s *Store) ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]*links.GuardianLink, error) {
	query := `SELECT ` + linkColumns + ` FROM guardian_links WHERE status = 'PENDING' AND code_expires_at < $1`
	return s.queryLinks(ctx, query, cutoff)
}

func (s *Store) Activate(ctx context.Context, linkID id.LinkID, approvedAt time.Time, permissions id.PermissionSet) error {
	query := `
		UPDATE guardian_links
		SET status = 'ACTIVE', approved_at = $2, permissions = $3,
			code_hash = NULL, code_expires_at = NULL
		WHERE id = $1 AND status = 'PENDING'
	`
	return s.casExec(ctx, "activate link", query,
		uuid.UUID(linkID), approvedAt, pq.Array(permissions.Strings()))
}

func (s *Store) MarkDenied(ctx context.Context, linkID id.LinkID) error {
	query := `
		UPDATE guardian_links
		SET status = 'DENIED', code_hash = NULL, code_expires_at = NULL
		WHERE id = $1 AND status = 'PENDING'
	`
	return s.casExec(ctx, "deny link", query, uuid.UUID(linkID))
}

func (s *Store) MarkExpired(ctx context.Context, linkID id.LinkID) error {
	query := `
		UPDATE guardian_links
		SET status = 'EXPIRED', code_hash = NULL, code_expires_at = NULL
		WHERE id = $1 AND status = 'PENDING'
	`
	return s.casExec(ctx, "expire link", query, uuid.UUID(linkID))
}

func (s *Store) Revoke(ctx context.Context, linkID id.LinkID, revokedAt time.Time, revokedBy id.Role) error {
	query := `
		UPDATE guardian_links
		SET status = 'REVOKED', revoked_at = $2, revoked_by = $3, permissions = '{}'
		WHERE id = $1 AND status = 'ACTIVE'
	`
	return s.casExec(ctx, "revoke link", query, uuid.UUID(linkID), revokedAt, revokedBy.String())
}

func (s *Store) UpdatePermissions(ctx context.Context, linkID id.LinkID, permissions id.PermissionSet) error {
	query := `
		UPDATE guardian_links SET permissions = $2
		WHERE id = $1 AND status = 'ACTIVE'
	`
	return s.casExec(ctx, "update permissions", query, uuid.UUID(linkID), pq.Array(permissions.Strings()))
}

func (s *Store) ClearCode(ctx context.Context, linkID id.LinkID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE guardian_links SET code_hash = NULL WHERE id = $1`, uuid.UUID(linkID))
	if err != nil {
		return fmt.Errorf("clear code: %w", err)
	}
	return nil
}

// casExec runs a status-guarded UPDATE. Zero rows affected means either the
// link does not exist or its status no longer matches; the follow-up SELECT
// disambiguates so services can report the right failure.
func (s *Store) casExec(ctx context.Context, op, query string, linkID uuid.UUID, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, append([]any{linkID}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM guardian_links WHERE id = $1)`, linkID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: existence check: %w", op, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *Store) queryLinks(ctx context.Context, query string, args ...any) ([]*links.GuardianLink, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query guardian links: %w", err)
	}
	defer rows.Close()

	var out []*links.GuardianLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guardian link: %w", err)
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*links.GuardianLink, error) {
	var (
		link       links.GuardianLink
		linkID     uuid.UUID
		guardianID uuid.UUID
		childID    uuid.UUID
		status     string
		perms      pq.StringArray
		revokedBy  sql.NullString
	)
	err := row.Scan(&linkID, &guardianID, &childID, &status, &perms,
		&link.CodeHash, &link.CodeExpiresAt, &link.CreatedAt,
		&link.ApprovedAt, &link.RevokedAt, &revokedBy)
	if err != nil {
		return nil, err
	}
	link.ID = id.LinkID(linkID)
	link.GuardianID = id.UserID(guardianID)
	link.ChildID = id.UserID(childID)
	link.Status = links.Status(status)
	set, err := id.ParsePermissionSet(perms)
	if err != nil {
		return nil, fmt.Errorf("stored permissions: %w", err)
	}
	link.Permissions = set
	if revokedBy.Valid {
		link.RevokedBy = id.Role(revokedBy.String)
	}
	return &link, nil
}
