package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/rewards-realtime/internal/protocol"
)

type fakeDB struct {
	mu      sync.Mutex
	batches [][]string
	execs   []string
	fail    error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	defer f.mu.Unlock()

	sqls := make([]string, 0, b.Len())
	for _, q := range b.QueuedQueries {
		sqls = append(sqls, q.SQL)
	}
	f.batches = append(f.batches, sqls)
	return &fakeResults{n: b.Len(), err: f.fail}
}

func (f *fakeDB) batchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.batches))
	for i, b := range f.batches {
		sizes[i] = len(b)
	}
	return sizes
}

type fakeResults struct {
	n   int
	err error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

func waitForBatches(t *testing.T, db *fakeDB, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(db.batchSizes()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d batches, got %v", n, db.batchSizes())
}

func TestWriter_FlushesOnBatchSize(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(Config{BatchSize: 2, FlushInterval: time.Hour, BufferSize: 10}, db, nil)
	w.Start(context.Background())

	w.RecordNotification(protocol.Notification{ID: "n1", Type: "task_assigned", Title: "t"})
	w.RecordLeaderboard(protocol.LeaderboardSnapshot{Scope: protocol.ScopeState, ScopeID: "KA"})

	waitForBatches(t, db, 1)

	db.mu.Lock()
	first := db.batches[0]
	db.mu.Unlock()
	if len(first) != 2 || first[0] != insertNotification || first[1] != insertLeaderboard {
		t.Errorf("batch = %q", first)
	}

	w.Stop(context.Background())
	stats := w.Stats()
	if stats.Inserts != 2 || stats.Flushes != 1 || stats.Errors != 0 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestWriter_FlushesOnInterval(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(Config{BatchSize: 100, FlushInterval: 20 * time.Millisecond, BufferSize: 10}, db, nil)
	w.Start(context.Background())
	defer w.Stop(context.Background())

	w.RecordNotification(protocol.Notification{ID: "n1"})

	waitForBatches(t, db, 1)
}

func TestWriter_StopFlushesRemainder(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(Config{BatchSize: 100, FlushInterval: time.Hour, BufferSize: 10}, db, nil)
	w.Start(context.Background())

	for i := 0; i < 3; i++ {
		w.RecordNotification(protocol.Notification{ID: "n"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Stop(ctx)

	if sizes := db.batchSizes(); len(sizes) != 1 || sizes[0] != 3 {
		t.Errorf("batches = %v, want [3]", sizes)
	}
}

func TestWriter_InsertErrorCounted(t *testing.T) {
	db := &fakeDB{fail: errors.New("connection reset")}
	w := NewWriter(Config{BatchSize: 1, FlushInterval: time.Hour, BufferSize: 10}, db, nil)
	w.Start(context.Background())

	w.RecordNotification(protocol.Notification{ID: "n1"})
	waitForBatches(t, db, 1)
	w.Stop(context.Background())

	if stats := w.Stats(); stats.Errors != 1 || stats.Inserts != 0 {
		t.Errorf("Stats = %+v, want one error", stats)
	}
}

func TestWriter_DropsOldestWhenBehind(t *testing.T) {
	w := NewWriter(Config{BatchSize: 10, FlushInterval: time.Hour, BufferSize: 2}, &fakeDB{}, nil)

	// Not started: nothing consumes the buffer.
	for i := 0; i < 5; i++ {
		w.RecordNotification(protocol.Notification{ID: "n"})
	}

	if got := w.Stats().Dropped; got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}
}

func TestNotificationRow(t *testing.T) {
	received := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := protocol.Notification{
		ID:        "n-7",
		Type:      "badge_earned",
		Title:     "New badge",
		Message:   "You earned a badge",
		Data:      map[string]interface{}{"badge_id": "b1"},
		CreatedAt: "2026-03-01T11:59:00Z",
	}

	r := notificationRow(n, received)

	if r.Kind != kindNotification || r.NotificationID != "n-7" || r.NotifType != "badge_earned" {
		t.Errorf("row = %+v", r)
	}
	if string(r.Data) != `{"badge_id":"b1"}` {
		t.Errorf("Data = %s", r.Data)
	}
	if r.CreatedAt == nil || !r.CreatedAt.Equal(received.Add(-time.Minute)) {
		t.Errorf("CreatedAt = %v", r.CreatedAt)
	}
	if !r.ReceivedAt.Equal(received) {
		t.Errorf("ReceivedAt = %v", r.ReceivedAt)
	}

	bad := notificationRow(protocol.Notification{CreatedAt: "yesterday"}, received)
	if bad.CreatedAt != nil || bad.Data != nil {
		t.Errorf("row with unparsable fields = %+v", bad)
	}
}

func TestLeaderboardRow(t *testing.T) {
	s := protocol.LeaderboardSnapshot{
		Scope:   protocol.ScopeCollege,
		ScopeID: "c1",
		Entries: []protocol.LeaderboardEntry{{Rank: 1, UserID: "u1"}},
	}

	r := leaderboardRow(s, time.Now())

	if r.Kind != kindLeaderboard || r.Scope != "college" || r.ScopeID != "c1" {
		t.Errorf("row = %+v", r)
	}
	if len(r.Entries) == 0 || r.ID.String() == "" {
		t.Errorf("row missing entries or id: %+v", r)
	}
}

func TestMigrate(t *testing.T) {
	db := &fakeDB{}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execs) != 1 || db.execs[0] != Schema {
		t.Errorf("execs = %d, want the schema once", len(db.execs))
	}
}
