package feed

import "github.com/rickgao/rewards-realtime/internal/protocol"

// Store groups every consumer-facing slice of realtime state.
type Store struct {
	Connected     *Value[bool]
	LastMessage   *Value[protocol.Envelope]
	Leaderboard   *Value[protocol.LeaderboardSnapshot]
	Notifications *Notifications
}

// NewStore creates a store with the given notification capacity.
func NewStore(notificationCapacity int) *Store {
	return &Store{
		Connected:     NewValue[bool](),
		LastMessage:   NewValue[protocol.Envelope](),
		Leaderboard:   NewValue[protocol.LeaderboardSnapshot](),
		Notifications: NewNotifications(notificationCapacity),
	}
}

// SetConnected records the binary connection flag.
func (s *Store) SetConnected(connected bool) {
	if cur, ok := s.Connected.Get(); ok && cur == connected {
		return
	}
	s.Connected.Set(connected)
}

// IsConnected reports the connection flag; false until the first open.
func (s *Store) IsConnected() bool {
	v, _ := s.Connected.Get()
	return v
}
