package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"github.com/rickgao/rewards-realtime/internal/config"
)

const defaultFilePassword = "rewards-realtime-file-key"

var backendTypes = map[string]keyring.BackendType{
	"keychain":       keyring.KeychainBackend,
	"secret-service": keyring.SecretServiceBackend,
	"wincred":        keyring.WinCredBackend,
	"pass":           keyring.PassBackend,
	"file":           keyring.FileBackend,
}

// BackendTypes maps config backend names to keyring backends. An empty
// list selects every backend in the default preference order.
func BackendTypes(names []string) ([]keyring.BackendType, error) {
	if len(names) == 0 {
		names = []string{"keychain", "secret-service", "wincred", "pass", "file"}
	}

	out := make([]keyring.BackendType, 0, len(names))
	for _, name := range names {
		bt, ok := backendTypes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown keyring backend %q", name)
		}
		out = append(out, bt)
	}
	return out, nil
}

// KeyringStore keeps the session token in the system keyring.
type KeyringStore struct {
	ring keyring.Keyring
	key  string
}

// Open opens the system keyring described by cfg.
func Open(cfg config.CredentialConfig) (*KeyringStore, error) {
	backends, err := BackendTypes(cfg.Backends)
	if err != nil {
		return nil, err
	}

	pass := cfg.FilePass
	if pass == "" {
		pass = defaultFilePassword
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              cfg.ServiceName,
		AllowedBackends:          backends,
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(pass),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewKeyringStore(ring, cfg.TokenKey), nil
}

// NewKeyringStore wraps an already opened keyring.
func NewKeyringStore(ring keyring.Keyring, key string) *KeyringStore {
	if key == "" {
		key = config.DefaultTokenKey
	}
	return &KeyringStore{ring: ring, key: key}
}

// Token returns the stored token, or "" when none is stored.
func (s *KeyringStore) Token() (string, error) {
	item, err := s.ring.Get(s.key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", s.key, err)
	}
	return string(item.Data), nil
}

// SetToken stores token.
func (s *KeyringStore) SetToken(token string) error {
	err := s.ring.Set(keyring.Item{
		Key:   s.key,
		Data:  []byte(token),
		Label: "rewards realtime session token",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", s.key, err)
	}
	return nil
}

// DeleteToken removes the stored token. Deleting a missing token is not an error.
func (s *KeyringStore) DeleteToken() error {
	err := s.ring.Remove(s.key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", s.key, err)
	}
	return nil
}
