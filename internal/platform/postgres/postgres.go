// Package postgres owns the database handle and schema migration.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent so startup can run
// this unconditionally.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS guardian_links (
			id UUID PRIMARY KEY,
			guardian_id UUID NOT NULL,
			child_id UUID NOT NULL,
			status TEXT NOT NULL,
			permissions TEXT[] NOT NULL DEFAULT '{}',
			code_hash BYTEA,
			code_expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			approved_at TIMESTAMPTZ,
			revoked_at TIMESTAMPTZ,
			revoked_by TEXT
		)`,
		// One live link per pair; terminal links do not block re-requests.
		`CREATE UNIQUE INDEX IF NOT EXISTS guardian_links_live_pair
			ON guardian_links (guardian_id, child_id)
			WHERE status IN ('PENDING', 'ACTIVE')`,
		`CREATE INDEX IF NOT EXISTS guardian_links_child
			ON guardian_links (child_id)`,
		`CREATE INDEX IF NOT EXISTS guardian_links_guardian
			ON guardian_links (guardian_id)`,
		`CREATE INDEX IF NOT EXISTS guardian_links_pending_deadline
			ON guardian_links (code_expires_at)
			WHERE status = 'PENDING'`,

		`CREATE TABLE IF NOT EXISTS access_log (
			id UUID PRIMARY KEY,
			link_id UUID NOT NULL,
			guardian_id UUID NOT NULL,
			child_id UUID NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			action TEXT NOT NULL,
			actor_role TEXT NOT NULL DEFAULT '',
			categories TEXT[] NOT NULL DEFAULT '{}',
			client_ip TEXT NOT NULL DEFAULT '',
			device TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS access_log_child
			ON access_log (child_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS access_log_link
			ON access_log (link_id, occurred_at DESC)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			recipient_id UUID NOT NULL,
			recipient_role TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS notifications_recipient
			ON notifications (recipient_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
