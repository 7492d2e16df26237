package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/venudhannoju-glitch/ChitChat/internal/config"
	"github.com/venudhannoju-glitch/ChitChat/internal/signaling"
)

// newUpgrader builds the websocket upgrader. Origins are checked against the
// configured allow-list.
func newUpgrader(cfg *config.Config) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cfg.OriginAllowed(origin)
		},
	}
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// The codec query parameter selects the outbound encoding ("json" or
// "msgpack").
func ServeWs(hub *signaling.Hub, cfg *config.Config, logger *slog.Logger) http.HandlerFunc {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request) {
		codec, err := signaling.CodecByName(r.URL.Query().Get("codec"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Upgrade writes its own error response.
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
			return
		}

		client := signaling.NewClient(hub, conn, codec)
		if !hub.Attach(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}

		// The pumps own the connection from here on.
		go client.WritePump()
		go client.ReadPump()
	}
}
