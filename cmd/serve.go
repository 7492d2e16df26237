package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/venudhannoju-glitch/ChitChat/internal/config"
	"github.com/venudhannoju-glitch/ChitChat/internal/logging"
	"github.com/venudhannoju-glitch/ChitChat/internal/metrics"
	"github.com/venudhannoju-glitch/ChitChat/internal/server"
	"github.com/venudhannoju-glitch/ChitChat/internal/signaling"
	"github.com/venudhannoju-glitch/ChitChat/internal/version"
)

const shutdownTimeout = 10 * time.Second

var serveOpts config.Options

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server",
	Long: `Run the ChitChat server.

The server accepts WebSocket connections on /ws and also serves the web client on
/, health on /health, room statistics on /api/stats and Prometheus metrics on
/metrics.

Settings are read from flags, then environment variables (optionally loaded from
an env file), then defaults.

Examples:
  chitchat serve
  chitchat serve --port 8080 --origins https://chat.example.com
  LOG_FORMAT=json chitchat serve --idle-timeout 2m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), serveOpts)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.Host, "host", "", "interface to listen on (env HOST)")
	f.StringVarP(&serveOpts.Port, "port", "p", "", "port to listen on (env PORT, default "+config.DefaultPort+")")
	f.StringVar(&serveOpts.AllowedOrigins, "origins", "", "comma-separated allowed WebSocket origins (env ALLOWED_ORIGINS)")
	f.DurationVar(&serveOpts.IdleTimeout, "idle-timeout", 0, "how long a room waits for a partner (env ROOM_IDLE_TIMEOUT, default 60s)")
	f.StringVar(&serveOpts.LogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	f.StringVar(&serveOpts.LogFormat, "log-format", "", "text or json (env LOG_FORMAT)")
	f.StringVar(&serveOpts.EnvFile, "env-file", config.DefaultEnvFile, "env file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, opts config.Options) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	logger := logging.Init(logging.ParseLevel(cfg.LogLevel, slog.LevelInfo), cfg.LogFormat)

	m := metrics.New()
	hub := signaling.NewHub(signaling.Options{
		IdleTimeout: cfg.IdleTimeout,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		SendBuffer:  cfg.SendBuffer,
		Logger:      logger,
		Metrics:     m,
	})
	m.WatchRooms(hub.Rooms().Stats)

	// The hub outlives ctx until the listener has stopped accepting.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewRouter(cfg, logger, hub, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr(), "version", version.Version, "idle_timeout", cfg.IdleTimeout)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}

	// Shutdown does not track hijacked WebSocket connections; stopping the
	// hub closes them.
	stopHub()
	<-hub.Done()

	logger.Info("server stopped")
	return nil
}
