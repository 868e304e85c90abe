package feed

import "sync"

// Value is a concurrency-safe observable holding the latest T.
type Value[T any] struct {
	mu      sync.RWMutex
	val     T
	set     bool
	version uint64
	subs    map[int]chan T
	nextSub int
}

// NewValue creates an empty observable.
func NewValue[T any]() *Value[T] {
	return &Value[T]{subs: make(map[int]chan T)}
}

// Get returns the current value and whether one has been set.
func (v *Value[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val, v.set
}

// Version increments on every Set and Reset.
func (v *Value[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Set replaces the value and notifies subscribers.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.val = val
	v.set = true
	v.version++
	v.notifyLocked(val)
	v.mu.Unlock()
}

// Reset clears the value back to its zero state and notifies subscribers
// with the zero value.
func (v *Value[T]) Reset() {
	var zero T
	v.mu.Lock()
	v.val = zero
	v.set = false
	v.version++
	v.notifyLocked(zero)
	v.mu.Unlock()
}

// Subscribe returns a channel that receives the value after each change and
// a cancel func that closes it.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	v.mu.Lock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = ch
	v.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// notifyLocked delivers val to every subscriber, replacing any value the
// subscriber has not read yet.
func (v *Value[T]) notifyLocked(val T) {
	for _, ch := range v.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- val:
		default:
		}
	}
}
