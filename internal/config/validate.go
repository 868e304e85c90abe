package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var validBackends = map[string]bool{
	"keychain":       true,
	"secret-service": true,
	"wincred":        true,
	"pass":           true,
	"file":           true,
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that all required fields are set and values are valid.
func (c *AgentConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Realtime.validate(); err != nil {
		return err
	}

	if c.Feed.NotificationCapacity < 1 {
		return errors.New("feed.notification_capacity must be >= 1")
	}

	for _, b := range c.Credential.Backends {
		if !validBackends[b] {
			return fmt.Errorf("credential.backends: unknown backend %q", b)
		}
	}

	if c.Database.Enabled {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
		if c.Database.BatchSize < 1 {
			return errors.New("database.batch_size must be >= 1")
		}
		if c.Database.BufferSize < 1 {
			return errors.New("database.buffer_size must be >= 1")
		}
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

func (r *RealtimeConfig) validate() error {
	if r.BaseURL == "" {
		return errors.New("realtime.base_url is required")
	}
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return fmt.Errorf("realtime.base_url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("realtime.base_url must use ws or wss, got %q", u.Scheme)
	}
	if !strings.HasPrefix(r.ConnectPath, "/") {
		return fmt.Errorf("realtime.connect_path must start with /, got %q", r.ConnectPath)
	}
	if r.ReconnectBaseDelay <= 0 {
		return errors.New("realtime.reconnect_base_delay must be > 0")
	}
	if r.ReconnectMaxDelay < r.ReconnectBaseDelay {
		return fmt.Errorf("realtime.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			r.ReconnectMaxDelay, r.ReconnectBaseDelay)
	}
	if r.ReconnectMultiplier < 1 {
		return errors.New("realtime.reconnect_multiplier must be >= 1")
	}
	if r.EventBuffer < 1 {
		return errors.New("realtime.event_buffer must be >= 1")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
