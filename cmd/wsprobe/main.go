// wsprobe connects to the realtime WebSocket and logs every frame it routes.
// Usage: go run ./cmd/wsprobe --config configs/agent.example.yaml --token "$REWARDS_TOKEN"
//
// With --leaderboard it opens the public leaderboard stream instead and
// needs no token.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/rewards-realtime/internal/config"
	"github.com/rickgao/rewards-realtime/internal/connection"
	"github.com/rickgao/rewards-realtime/internal/feed"
	"github.com/rickgao/rewards-realtime/internal/protocol"
	"github.com/rickgao/rewards-realtime/internal/router"
	"github.com/rickgao/rewards-realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	baseURL := flag.String("base", "", "WebSocket base URL, overrides config")
	token := flag.String("token", os.Getenv("REWARDS_TOKEN"), "session token")
	leaderboard := flag.Bool("leaderboard", false, "stream the public leaderboard instead")
	scope := flag.String("scope", "pan-india", "leaderboard scope: pan-india, state, college")
	scopeID := flag.String("scope-id", "", "state or college id for scoped leaderboards")
	period := flag.String("period", "all", "leaderboard period: all, weekly, monthly")
	duration := flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadWithDefaults(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if *baseURL != "" {
		cfg.Realtime.BaseURL = *baseURL
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	store := feed.NewStore(cfg.Feed.NotificationCapacity)
	rt := router.NewRouter(store, nil, logger)
	handler := &printer{next: rt, verbose: *verbose, logger: logger}

	logger.Info("wsprobe starting", "version", version.Version, "base_url", cfg.Realtime.BaseURL)

	if *leaderboard {
		params := connection.LeaderboardParams{Scope: *scope, ScopeID: *scopeID, Period: *period}
		url := connection.BuildLeaderboardURL(cfg.Realtime.BaseURL, cfg.Realtime.LeaderboardPath, params)
		if err := streamLeaderboard(ctx, url, handler, logger); err != nil {
			logger.Error("leaderboard stream failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if connection.CleanToken(*token) == "" {
		logger.Error("a token is required (--token or REWARDS_TOKEN)")
		os.Exit(1)
	}

	manager := connection.NewManager(
		connection.ManagerConfigFrom(cfg.Realtime),
		handler,
		connection.WithLogger(logger),
		connection.WithStatus(store),
	)
	manager.Start(ctx)
	manager.SetCredential(*token)

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	manager.Stop(stopCtx)

	stats := rt.Stats()
	fmt.Printf("\nframes=%d routed=%d keepalives=%d malformed=%d unknown=%d notifications=%d\n",
		stats.FramesReceived, stats.MessagesRouted, stats.KeepAlives,
		stats.ParseErrors, stats.UnknownMessages, store.Notifications.Len())
}

// printer logs each frame before routing it.
type printer struct {
	next    connection.Handler
	verbose bool
	logger  *slog.Logger
}

func (p *printer) Handle(data []byte) []byte {
	frame := protocol.Classify(data)

	switch frame.Kind {
	case protocol.FrameMessage:
		if p.verbose {
			var pretty interface{}
			if json.Unmarshal(frame.Envelope.Payload, &pretty) == nil {
				out, _ := json.MarshalIndent(pretty, "", "  ")
				fmt.Printf("[%s] %s\n", frame.Envelope.Type, out)
			} else {
				fmt.Printf("[%s] (no payload)\n", frame.Envelope.Type)
			}
		} else {
			fmt.Printf("[%s] %d bytes\n", frame.Envelope.Type, len(frame.Envelope.Payload))
		}
	default:
		p.logger.Debug("frame", "kind", frame.Kind.String(), "size", len(data))
	}

	return p.next.Handle(data)
}

// streamLeaderboard reads the public leaderboard socket until ctx ends.
func streamLeaderboard(ctx context.Context, url string, h connection.Handler, logger *slog.Logger) error {
	logger.Info("connecting to leaderboard stream", "url", url)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if reply := h.Handle(data); reply != nil {
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
