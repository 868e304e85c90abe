package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/rewards-realtime/internal/connection"
	"github.com/rickgao/rewards-realtime/internal/feed"
	"github.com/rickgao/rewards-realtime/internal/journal"
	"github.com/rickgao/rewards-realtime/internal/metrics"
	"github.com/rickgao/rewards-realtime/internal/router"
	"github.com/rickgao/rewards-realtime/internal/version"
)

const maxBodyBytes = 64 << 10

// realtime is the part of the connection manager the HTTP surface uses.
type realtime interface {
	Send(v any)
	Stats() connection.ManagerStats
}

// credentials is the part of the credential source the HTTP surface uses.
type credentials interface {
	Set(token string) error
	Clear() error
	Present() bool
}

type pinger interface {
	Ping(ctx context.Context) error
}

// server holds the agent's HTTP dependencies. journal and db may be nil.
type server struct {
	store       *feed.Store
	conn        realtime
	creds       credentials
	router      *router.Router
	journal     *journal.Writer
	db          pinger
	metrics     *metrics.Collector
	metricsPath string
	logger      *slog.Logger
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.Handle("GET "+s.metricsPath, s.metrics.Handler())

	mux.HandleFunc("GET /notifications", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.store.Notifications.List())
	})
	mux.HandleFunc("DELETE /notifications", func(w http.ResponseWriter, r *http.Request) {
		s.store.Notifications.Clear()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /leaderboard", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.store.Leaderboard.Get()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	mux.HandleFunc("GET /last-message", func(w http.ResponseWriter, r *http.Request) {
		env, ok := s.store.LastMessage.Get()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, env)
	})

	mux.HandleFunc("PUT /credential", s.putCredential)
	mux.HandleFunc("DELETE /credential", func(w http.ResponseWriter, r *http.Request) {
		if err := s.creds.Clear(); err != nil {
			s.logger.Error("failed to clear credential", "error", err)
			http.Error(w, "failed to clear credential", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /send", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		if len(body) == 0 {
			http.Error(w, "empty body", http.StatusBadRequest)
			return
		}
		s.conn.Send(string(body))
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}

func (s *server) putCredential(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	token := connection.CleanToken(string(body))
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	if err := s.creds.Set(token); err != nil {
		s.logger.Error("failed to store credential", "error", err)
		http.Error(w, "failed to store credential", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats := s.conn.Stats()

	health := struct {
		Status     string                 `json:"status"`
		Version    string                 `json:"version"`
		Components map[string]interface{} `json:"components"`
	}{
		Status:     "healthy",
		Version:    version.Version,
		Components: make(map[string]interface{}),
	}

	health.Components["connection"] = map[string]interface{}{
		"state":          stats.State.String(),
		"connected":      stats.Connected,
		"attempt":        stats.Attempt,
		"sockets_opened": stats.SocketsOpened,
		"reconnects":     stats.Reconnects,
		"sends_dropped":  stats.SendsDropped,
	}
	health.Components["credential"] = map[string]bool{"present": s.creds.Present()}

	// A missing credential is a normal idle state, not a failure.
	if s.creds.Present() && !stats.Connected {
		health.Status = "degraded"
	}

	rs := s.router.Stats()
	health.Components["router"] = map[string]int64{
		"frames_received":  rs.FramesReceived,
		"messages_routed":  rs.MessagesRouted,
		"keep_alives":      rs.KeepAlives,
		"parse_errors":     rs.ParseErrors,
		"invalid_payloads": rs.InvalidPayloads,
		"unknown_messages": rs.UnknownMessages,
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}
	}
	if s.journal != nil {
		js := s.journal.Stats()
		health.Components["journal"] = map[string]int64{
			"inserts": js.Inserts,
			"flushes": js.Flushes,
			"errors":  js.Errors,
			"dropped": js.Dropped,
		}
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
