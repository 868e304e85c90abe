package journal

import (
	"context"
	"fmt"
)

// Schema creates the journal tables. Rows are append-only.
const Schema = `
CREATE TABLE IF NOT EXISTS realtime_notifications (
	id              UUID PRIMARY KEY,
	notification_id TEXT NOT NULL,
	type            TEXT NOT NULL,
	title           TEXT NOT NULL,
	message         TEXT NOT NULL,
	data            JSONB,
	created_at      TIMESTAMPTZ,
	received_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS realtime_notifications_received_at_idx
	ON realtime_notifications (received_at DESC);

CREATE TABLE IF NOT EXISTS realtime_leaderboard_snapshots (
	id          UUID PRIMARY KEY,
	scope       TEXT NOT NULL,
	scope_id    TEXT NOT NULL,
	entries     JSONB NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS realtime_leaderboard_scope_idx
	ON realtime_leaderboard_snapshots (scope, scope_id, received_at DESC);
`

const insertNotification = `
	INSERT INTO realtime_notifications (id, notification_id, type, title, message, data, created_at, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
`

const insertLeaderboard = `
	INSERT INTO realtime_leaderboard_snapshots (id, scope, scope_id, entries, received_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO NOTHING
`

// Migrate creates the journal tables if they do not exist.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}
