package feed

import (
	"sync"

	"github.com/rickgao/rewards-realtime/internal/protocol"
)

// DefaultNotificationCapacity is how many notifications are kept.
const DefaultNotificationCapacity = 50

// Notifications is a bounded, newest-first list of notifications.
// Inserting beyond capacity evicts the oldest entry.
type Notifications struct {
	mu       sync.RWMutex
	capacity int
	items    []protocol.Notification // items[0] is newest
	changes  *Value[int]             // publishes the length after each change
}

// NewNotifications creates a list holding at most capacity entries.
func NewNotifications(capacity int) *Notifications {
	if capacity < 1 {
		capacity = DefaultNotificationCapacity
	}
	return &Notifications{
		capacity: capacity,
		items:    make([]protocol.Notification, 0, capacity),
		changes:  NewValue[int](),
	}
}

// Prepend inserts n as the newest entry.
func (l *Notifications) Prepend(n protocol.Notification) {
	l.mu.Lock()
	if len(l.items) < l.capacity {
		l.items = append(l.items, protocol.Notification{})
	}
	copy(l.items[1:], l.items[:len(l.items)-1])
	l.items[0] = n
	size := len(l.items)
	l.mu.Unlock()

	l.changes.Set(size)
}

// List returns a copy of the entries, newest first.
func (l *Notifications) List() []protocol.Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]protocol.Notification, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of entries held.
func (l *Notifications) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Capacity returns the maximum number of entries held.
func (l *Notifications) Capacity() int {
	return l.capacity
}

// Clear removes every entry.
func (l *Notifications) Clear() {
	l.mu.Lock()
	clear(l.items)
	l.items = l.items[:0]
	l.mu.Unlock()

	l.changes.Set(0)
}

// Subscribe returns a channel receiving the list length after each change.
func (l *Notifications) Subscribe() (<-chan int, func()) {
	return l.changes.Subscribe()
}
