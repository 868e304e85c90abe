package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rickgao/rewards-realtime/internal/cache"
	"github.com/rickgao/rewards-realtime/internal/feed"
	"github.com/rickgao/rewards-realtime/internal/metrics"
	"github.com/rickgao/rewards-realtime/internal/protocol"
)

// Router classifies inbound frames and applies their effects to the feed.
type Router struct {
	store       *feed.Store
	invalidator Invalidator
	journal     Journal
	metrics     *metrics.Collector
	logger      *slog.Logger

	mu              sync.RWMutex
	received        int64
	routed          int64
	keepAlives      int64
	parseErrors     int64
	invalidPayloads int64
	unknownMessages int64
}

// Option configures a Router.
type Option func(*Router)

// WithJournal records notifications and leaderboard snapshots to j.
func WithJournal(j Journal) Option {
	return func(r *Router) {
		r.journal = j
	}
}

// WithMetrics records frame counters on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a Router writing into store. invalidator may be nil.
func NewRouter(store *feed.Store, invalidator Invalidator, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		store:       store,
		invalidator: invalidator,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one raw text frame and returns the reply to write back,
// or nil when there is nothing to send.
func (r *Router) Handle(data []byte) []byte {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	frame := protocol.Classify(data)
	r.metrics.FrameReceived(frame.Kind.String())

	switch frame.Kind {
	case protocol.FrameBarePing:
		r.count(&r.keepAlives)
		return protocol.BarePong

	case protocol.FramePing:
		r.count(&r.keepAlives)
		return protocol.PongJSON

	case protocol.FrameMalformed:
		r.count(&r.parseErrors)
		r.logger.Debug("dropping malformed frame", "size", len(data))
		return nil
	}

	r.route(frame.Envelope)
	return nil
}

// route applies the effect of a single envelope.
func (r *Router) route(env protocol.Envelope) {
	r.store.LastMessage.Set(env)
	r.metrics.MessageRouted(env.Type)

	switch env.Type {
	case protocol.TypeNotification:
		n, err := protocol.DecodeNotification(env.Payload)
		if err != nil {
			r.logger.Debug("ignoring notification payload", "error", err)
			r.count(&r.invalidPayloads)
			return
		}
		if n.Type != "" && !n.Type.Known() {
			r.logger.Debug("unrecognized notification kind", "kind", string(n.Type))
		}
		r.store.Notifications.Prepend(n)
		if r.journal != nil {
			r.journal.RecordNotification(n)
		}

	case protocol.TypeLeaderboardData:
		s, err := protocol.DecodeLeaderboard(env.Payload)
		if err != nil {
			r.logger.Debug("ignoring leaderboard payload", "error", err)
			r.count(&r.invalidPayloads)
			return
		}
		r.store.Leaderboard.Set(s)
		if r.journal != nil {
			r.journal.RecordLeaderboard(s)
		}

	case protocol.TypeTask:
		if r.invalidator != nil {
			r.invalidator.Invalidate(context.Background(), cache.KeyTasks)
		}

	default:
		r.count(&r.unknownMessages)
		r.logger.Debug("no handler for message type", "type", env.Type)
	}

	r.count(&r.routed)
}

func (r *Router) count(field *int64) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		FramesReceived:  r.received,
		MessagesRouted:  r.routed,
		KeepAlives:      r.keepAlives,
		ParseErrors:     r.parseErrors,
		InvalidPayloads: r.invalidPayloads,
		UnknownMessages: r.unknownMessages,
	}
}
