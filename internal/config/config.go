package config

import "time"

// AgentConfig is the root configuration for a realtime agent instance.
type AgentConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	Feed       FeedConfig       `yaml:"feed"`
	Cache      CacheConfig      `yaml:"cache"`
	Credential CredentialConfig `yaml:"credential"`
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

// InstanceConfig identifies this agent.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// RealtimeConfig holds WebSocket connection manager settings.
type RealtimeConfig struct {
	APIURL              string        `yaml:"api_url"`  // REST base, e.g. http://host:8080/api
	BaseURL             string        `yaml:"base_url"` // WebSocket base, e.g. ws://host:8080/ws
	ConnectPath         string        `yaml:"connect_path"`
	LeaderboardPath     string        `yaml:"leaderboard_path"`
	ReconnectBaseDelay  time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay   time.Duration `yaml:"reconnect_max_delay"`
	ReconnectMultiplier float64       `yaml:"reconnect_multiplier"`
	PingInterval        time.Duration `yaml:"ping_interval"`
	ReadTimeout         time.Duration `yaml:"read_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	HandshakeTimeout    time.Duration `yaml:"handshake_timeout"`
	EventBuffer         int           `yaml:"event_buffer"`
}

// FeedConfig holds consumer-facing state settings.
type FeedConfig struct {
	NotificationCapacity int `yaml:"notification_capacity"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	StaleTime time.Duration `yaml:"stale_time"`
}

// CredentialConfig holds secure token storage settings.
type CredentialConfig struct {
	ServiceName string   `yaml:"service_name"`
	TokenKey    string   `yaml:"token_key"`
	FileDir     string   `yaml:"file_dir"`
	FilePass    string   `yaml:"file_password"`
	Backends    []string `yaml:"backends"` // keychain, secret-service, wincred, pass, file
	Token       string   `yaml:"token"`    // Optional bootstrap token, usually ${REWARDS_TOKEN}

	WatchInterval time.Duration `yaml:"watch_interval"` // Keyring poll interval, negative disables
}

// DatabaseConfig holds the optional PostgreSQL journal settings.
type DatabaseConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Postgres      DBConfig      `yaml:"postgres"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HTTPConfig holds the agent's local HTTP surface (health, metrics, feed).
type HTTPConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
