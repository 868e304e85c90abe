package router

import (
	"context"

	"github.com/rickgao/rewards-realtime/internal/cache"
	"github.com/rickgao/rewards-realtime/internal/protocol"
)

// Invalidator marks cached queries stale.
type Invalidator interface {
	Invalidate(ctx context.Context, prefix cache.Key) int
}

// Journal records derived effects for later inspection.
type Journal interface {
	RecordNotification(n protocol.Notification)
	RecordLeaderboard(s protocol.LeaderboardSnapshot)
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	FramesReceived  int64
	MessagesRouted  int64
	KeepAlives      int64
	ParseErrors     int64
	InvalidPayloads int64
	UnknownMessages int64
}
