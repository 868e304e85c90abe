package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/rewards-realtime/internal/config"
	"github.com/rickgao/rewards-realtime/internal/protocol"
)

// DB is the subset of *pgxpool.Pool the journal uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds journal batching settings.
type Config struct {
	BatchSize     int           // Max rows per insert batch
	FlushInterval time.Duration // Max time between flushes
	BufferSize    int           // Pending rows kept before the oldest are dropped
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     config.DefaultBatchSize,
		FlushInterval: config.DefaultFlushInterval,
		BufferSize:    config.DefaultBufferSize,
	}
}

// ConfigFrom maps the database section of the agent config.
func ConfigFrom(dc config.DatabaseConfig) Config {
	return Config{
		BatchSize:     dc.BatchSize,
		FlushInterval: dc.FlushInterval,
		BufferSize:    dc.BufferSize,
	}
}

// Stats tracks journal activity.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

type rowKind int

const (
	kindNotification rowKind = iota
	kindLeaderboard
)

// row is one pending journal insert.
type row struct {
	ID         uuid.UUID
	Kind       rowKind
	ReceivedAt time.Time

	// Notification rows
	NotificationID string
	NotifType      string
	Title          string
	Message        string
	Data           json.RawMessage
	CreatedAt      *time.Time

	// Leaderboard rows
	Scope   string
	ScopeID string
	Entries json.RawMessage
}

func notificationRow(n protocol.Notification, receivedAt time.Time) row {
	r := row{
		ID:             uuid.New(),
		Kind:           kindNotification,
		ReceivedAt:     receivedAt,
		NotificationID: n.ID,
		NotifType:      string(n.Type),
		Title:          n.Title,
		Message:        n.Message,
	}
	if len(n.Data) > 0 {
		r.Data, _ = json.Marshal(n.Data)
	}
	if t, err := time.Parse(time.RFC3339, n.CreatedAt); err == nil {
		r.CreatedAt = &t
	}
	return r
}

func leaderboardRow(s protocol.LeaderboardSnapshot, receivedAt time.Time) row {
	entries, _ := json.Marshal(s.Entries)
	return row{
		ID:         uuid.New(),
		Kind:       kindLeaderboard,
		ReceivedAt: receivedAt,
		Scope:      string(s.Scope),
		ScopeID:    s.ScopeID,
		Entries:    entries,
	}
}
