package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/rewards-realtime/internal/metrics"
	"github.com/rickgao/rewards-realtime/internal/protocol"
)

// Option configures a Writer.
type Option func(*Writer)

// WithMetrics records flush metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(w *Writer) { w.metrics = c }
}

// WithClock overrides the received_at clock.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// Writer journals routed notifications and leaderboard snapshots to
// PostgreSQL in batches. Record calls never block the router.
type Writer struct {
	cfg     Config
	db      DB
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time

	// Input from the router
	input *Buffer[row]

	// Batching
	batch   []row
	batchMu sync.Mutex

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup

	stats Stats
}

// NewWriter creates a Writer.
func NewWriter(cfg Config, db DB, logger *slog.Logger, opts ...Option) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = defaults.BufferSize
	}

	w := &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		now:    time.Now,
		input:  NewBuffer[row](cfg.BufferSize),
		batch:  make([]row, 0, cfg.BatchSize),
		quit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	return w
}

// RecordNotification queues a notification row.
func (w *Writer) RecordNotification(n protocol.Notification) {
	w.input.Send(notificationRow(n, w.now()))
}

// RecordLeaderboard queues a leaderboard snapshot row.
func (w *Writer) RecordLeaderboard(s protocol.LeaderboardSnapshot) {
	w.input.Send(leaderboardRow(s, w.now()))
}

// Start begins consuming rows and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains pending rows and shuts down the writer.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	// Consumer exits once the buffer is empty.
	w.input.Close()
	w.quitOnce.Do(func() { close(w.quit) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("journal writer stopped")
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// Final flush uses the caller's deadline.
	w.flushWith(ctx)

	if w.cancel != nil {
		w.cancel()
	}
	return nil
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	stats := w.stats
	w.batchMu.Unlock()

	stats.Dropped = w.input.Stats().Dropped
	return stats
}

// consumeLoop moves rows from the input buffer into the batch.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		r, ok := w.input.Receive()
		if !ok {
			return
		}
		w.add(r)
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.quit:
			return
		case <-ticker.C:
			w.flushWith(w.ctx)
		}
	}
}

func (w *Writer) add(r row) {
	w.batchMu.Lock()
	w.batch = append(w.batch, r)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flushWith(w.ctx)
	}
}

// flushWith writes the current batch to the database.
func (w *Writer) flushWith(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]row, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("journal insert failed", "error", err, "count", len(batch))
		w.metrics.JournalWriteFailed()
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return
	}

	w.metrics.JournalFlushed(len(batch))
	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []row) (conflicts int, err error) {
	if w.db == nil {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		switch r.Kind {
		case kindNotification:
			batch.Queue(insertNotification,
				r.ID, r.NotificationID, r.NotifType, r.Title, r.Message, r.Data, r.CreatedAt, r.ReceivedAt)
		case kindLeaderboard:
			batch.Queue(insertLeaderboard,
				r.ID, r.Scope, r.ScopeID, r.Entries, r.ReceivedAt)
		}
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
