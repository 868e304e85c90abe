package config

import (
	"regexp"
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultAPIURL               = "http://localhost:8080/api"
	DefaultConnectPath          = "/connect"
	DefaultLeaderboardPath      = "/leaderboard"
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultReconnectMultiplier  = 2.0
	DefaultPingInterval         = 30 * time.Second
	DefaultReadTimeout          = 90 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultEventBuffer          = 256
	DefaultNotificationCapacity = 50
	DefaultStaleTime            = 5 * time.Minute
	DefaultServiceName          = "rewards-realtime"
	DefaultTokenKey             = "auth_token"
	DefaultCredentialDir        = "~/.config/rewards-realtime/credentials"
	DefaultCredentialWatch      = 10 * time.Second
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultBatchSize            = 100
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 1000
	DefaultHTTPPort             = 8090
	DefaultMetricsPath          = "/metrics"
	DefaultLogLevel             = "info"
)

var apiSuffix = regexp.MustCompile(`/api/?$`)

// DeriveWSBase turns a REST API base into the WebSocket base it is served
// next to: http://host:8080/api becomes ws://host:8080/ws.
func DeriveWSBase(apiURL string) string {
	base := strings.TrimSpace(apiSuffix.ReplaceAllString(apiURL, ""))
	if strings.HasPrefix(base, "http") {
		base = "ws" + strings.TrimPrefix(base, "http")
	}
	return base + "/ws"
}

func (c *AgentConfig) applyDefaults() {
	// Realtime defaults
	if c.Realtime.APIURL == "" {
		c.Realtime.APIURL = DefaultAPIURL
	}
	if c.Realtime.BaseURL == "" {
		c.Realtime.BaseURL = DeriveWSBase(c.Realtime.APIURL)
	}
	if c.Realtime.ConnectPath == "" {
		c.Realtime.ConnectPath = DefaultConnectPath
	}
	if c.Realtime.LeaderboardPath == "" {
		c.Realtime.LeaderboardPath = DefaultLeaderboardPath
	}
	if c.Realtime.ReconnectBaseDelay == 0 {
		c.Realtime.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Realtime.ReconnectMaxDelay == 0 {
		c.Realtime.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Realtime.ReconnectMultiplier == 0 {
		c.Realtime.ReconnectMultiplier = DefaultReconnectMultiplier
	}
	if c.Realtime.PingInterval == 0 {
		c.Realtime.PingInterval = DefaultPingInterval
	}
	if c.Realtime.ReadTimeout == 0 {
		c.Realtime.ReadTimeout = DefaultReadTimeout
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = DefaultWriteTimeout
	}
	if c.Realtime.HandshakeTimeout == 0 {
		c.Realtime.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Realtime.EventBuffer == 0 {
		c.Realtime.EventBuffer = DefaultEventBuffer
	}

	if c.Feed.NotificationCapacity == 0 {
		c.Feed.NotificationCapacity = DefaultNotificationCapacity
	}
	if c.Cache.StaleTime == 0 {
		c.Cache.StaleTime = DefaultStaleTime
	}

	// Credential defaults
	if c.Credential.ServiceName == "" {
		c.Credential.ServiceName = DefaultServiceName
	}
	if c.Credential.TokenKey == "" {
		c.Credential.TokenKey = DefaultTokenKey
	}
	if c.Credential.FileDir == "" {
		c.Credential.FileDir = DefaultCredentialDir
	}
	if c.Credential.WatchInterval == 0 {
		c.Credential.WatchInterval = DefaultCredentialWatch
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)
	if c.Database.BatchSize == 0 {
		c.Database.BatchSize = DefaultBatchSize
	}
	if c.Database.FlushInterval == 0 {
		c.Database.FlushInterval = DefaultFlushInterval
	}
	if c.Database.BufferSize == 0 {
		c.Database.BufferSize = DefaultBufferSize
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.MetricsPath == "" {
		c.HTTP.MetricsPath = DefaultMetricsPath
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
