package server

import (
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"github.com/venudhannoju-glitch/ChitChat/internal/config"
	"github.com/venudhannoju-glitch/ChitChat/internal/metrics"
	"github.com/venudhannoju-glitch/ChitChat/internal/signaling"
)

//go:embed web
var webFS embed.FS

// NewRouter wires up the HTTP routes: the websocket endpoint, health, stats,
// Prometheus metrics and the bundled web client.
func NewRouter(cfg *config.Config, logger *slog.Logger, hub *signaling.Hub, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthCheckHandler)
	mux.Handle("GET /metrics", m.Handler())
	mux.Handle("/ws", ServeWs(hub, cfg, logger))

	stats := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	mux.Handle("/api/stats", stats.Handler(statsHandler(hub, logger)))

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServerFS(static))

	return mux
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ChitChat server is healthy."))
}

// statsHandler reports live room and connection counts as JSON.
func statsHandler(hub *signaling.Hub, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(hub.Rooms().Stats()); err != nil {
			logger.Error("write stats", "err", err)
		}
	})
}
