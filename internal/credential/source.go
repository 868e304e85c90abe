package credential

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TokenStore persists the session token.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	DeleteToken() error
}

// Sink receives every credential change. *connection.Manager satisfies it.
type Sink interface {
	SetCredential(token string)
}

// Source is the single owner of the current credential. Changes are
// persisted to the store and then pushed to the sink. Store access and
// sink pushes happen under one lock, so the sink sees changes in the same
// order as the store.
type Source struct {
	store  TokenStore
	sink   Sink
	logger *slog.Logger

	// Serializes store access and sink pushes
	pubMu sync.Mutex

	mu      sync.Mutex
	current string
}

// NewSource creates a Source. logger may be nil.
func NewSource(store TokenStore, sink Sink, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{store: store, sink: sink, logger: logger}
}

// Load reads the stored token and publishes it.
func (s *Source) Load() error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	token, err := s.store.Token()
	if err != nil {
		return err
	}
	s.publish(token)
	return nil
}

// Set stores token and publishes it. An empty token is the same as Clear.
func (s *Source) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if err := s.store.SetToken(token); err != nil {
		return err
	}
	s.publish(token)
	return nil
}

// Clear deletes the stored token and publishes its absence.
func (s *Source) Clear() error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if err := s.store.DeleteToken(); err != nil {
		return err
	}
	s.publish("")
	return nil
}

// Current returns the last published token.
func (s *Source) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Present reports whether a credential is currently held.
func (s *Source) Present() bool {
	return s.Current() != ""
}

// Watch polls the store and publishes changes made by other processes,
// such as a login from the CLI. It returns when ctx is cancelled.
func (s *Source) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Load(); err != nil {
				s.logger.Warn("failed to read credential", "error", err)
			}
		}
	}
}

// publish pushes token to the sink when it differs from the current one.
// The caller holds pubMu.
func (s *Source) publish(token string) {
	token = strings.TrimSpace(token)

	s.mu.Lock()
	changed := token != s.current
	s.current = token
	s.mu.Unlock()

	if !changed {
		return
	}

	if token == "" {
		s.logger.Info("credential cleared")
	} else {
		s.logger.Info("credential updated")
	}
	if s.sink != nil {
		s.sink.SetCredential(token)
	}
}
