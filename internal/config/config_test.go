package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-agent
realtime:
  base_url: wss://rewards.example.com/ws
  connect_path: /connect
  reconnect_base_delay: 500ms
database:
  enabled: true
  postgres:
    host: localhost
    port: 5432
    name: journal
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-agent" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-agent")
	}
	if cfg.Realtime.BaseURL != "wss://rewards.example.com/ws" {
		t.Errorf("Realtime.BaseURL = %q, want %q", cfg.Realtime.BaseURL, "wss://rewards.example.com/ws")
	}
	if cfg.Realtime.ReconnectBaseDelay != 500*time.Millisecond {
		t.Errorf("Realtime.ReconnectBaseDelay = %v, want 500ms", cfg.Realtime.ReconnectBaseDelay)
	}
	if !cfg.Database.Enabled || cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database = %+v, want enabled postgres on localhost", cfg.Database)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_REWARDS_TOKEN", "Bearer abc.def")

	yaml := `
instance:
  id: test-agent
credential:
  token: ${TEST_REWARDS_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Credential.Token != "Bearer abc.def" {
		t.Errorf("Credential.Token = %q, want %q", cfg.Credential.Token, "Bearer abc.def")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-agent
realtime:
  api_url: https://rewards.example.com/api/
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Realtime.BaseURL != "wss://rewards.example.com/ws" {
		t.Errorf("Realtime.BaseURL = %q, want derived %q", cfg.Realtime.BaseURL, "wss://rewards.example.com/ws")
	}
	if cfg.Realtime.ConnectPath != DefaultConnectPath {
		t.Errorf("Realtime.ConnectPath = %q, want default %q", cfg.Realtime.ConnectPath, DefaultConnectPath)
	}
	if cfg.Realtime.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("Realtime.ReconnectBaseDelay = %v, want default %v", cfg.Realtime.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Realtime.ReconnectMaxDelay != DefaultReconnectMaxDelay {
		t.Errorf("Realtime.ReconnectMaxDelay = %v, want default %v", cfg.Realtime.ReconnectMaxDelay, DefaultReconnectMaxDelay)
	}
	if cfg.Feed.NotificationCapacity != DefaultNotificationCapacity {
		t.Errorf("Feed.NotificationCapacity = %d, want default %d", cfg.Feed.NotificationCapacity, DefaultNotificationCapacity)
	}
	if cfg.Credential.TokenKey != DefaultTokenKey {
		t.Errorf("Credential.TokenKey = %q, want default %q", cfg.Credential.TokenKey, DefaultTokenKey)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.HTTP.Port != DefaultHTTPPort {
		t.Errorf("HTTP.Port = %d, want default %d", cfg.HTTP.Port, DefaultHTTPPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults: %v", err)
	}
}

func TestDeriveWSBase(t *testing.T) {
	tests := []struct {
		api  string
		want string
	}{
		{"http://192.168.29.39:8080/api", "ws://192.168.29.39:8080/ws"},
		{"https://rewards.example.com/api/", "wss://rewards.example.com/ws"},
		{"http://localhost:8080", "ws://localhost:8080/ws"},
	}

	for _, tt := range tests {
		if got := DeriveWSBase(tt.api); got != tt.want {
			t.Errorf("DeriveWSBase(%q) = %q, want %q", tt.api, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() AgentConfig {
		cfg := AgentConfig{Instance: InstanceConfig{ID: "test"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*AgentConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *AgentConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "http base url",
			mutate:  func(c *AgentConfig) { c.Realtime.BaseURL = "http://localhost/ws" },
			wantErr: `realtime.base_url must use ws or wss, got "http"`,
		},
		{
			name:    "relative connect path",
			mutate:  func(c *AgentConfig) { c.Realtime.ConnectPath = "connect" },
			wantErr: `realtime.connect_path must start with /, got "connect"`,
		},
		{
			name: "max delay below base",
			mutate: func(c *AgentConfig) {
				c.Realtime.ReconnectBaseDelay = 2 * time.Second
				c.Realtime.ReconnectMaxDelay = time.Second
			},
			wantErr: "realtime.reconnect_max_delay (1s) cannot be less than reconnect_base_delay (2s)",
		},
		{
			name:    "unknown keyring backend",
			mutate:  func(c *AgentConfig) { c.Credential.Backends = []string{"file", "vault"} },
			wantErr: `credential.backends: unknown backend "vault"`,
		},
		{
			name: "journal without password",
			mutate: func(c *AgentConfig) {
				c.Database.Enabled = true
				c.Database.Postgres.Host = "localhost"
				c.Database.Postgres.Name = "db"
				c.Database.Postgres.User = "user"
			},
			wantErr: "database.postgres.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *AgentConfig) {
				c.Database.Enabled = true
				c.Database.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "database.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "bad log level",
			mutate:  func(c *AgentConfig) { c.Log.Level = "trace" },
			wantErr: `log.level must be one of debug, info, warn, error, got "trace"`,
		},
		{
			name:    "valid config",
			mutate:  func(c *AgentConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Realtime.BaseURL != "ws://localhost:8080/ws" {
		t.Errorf("Realtime.BaseURL = %q, want derived from default api url", cfg.Realtime.BaseURL)
	}
	if cfg.Credential.WatchInterval != DefaultCredentialWatch {
		t.Errorf("Credential.WatchInterval = %v, want %v", cfg.Credential.WatchInterval, DefaultCredentialWatch)
	}
	if cfg.Feed.NotificationCapacity != DefaultNotificationCapacity {
		t.Errorf("Feed.NotificationCapacity = %d", cfg.Feed.NotificationCapacity)
	}
}
