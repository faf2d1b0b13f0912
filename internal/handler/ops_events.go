package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourorg/tourbook/internal/events"
	"github.com/yourorg/tourbook/internal/security/middleware"
)

// OpsEventsHandler streams document lifecycle events to authenticated
// websocket clients at GET /ws/ops/events. The admin dashboard uses this to
// watch uploads, deletes and orphan sweeps live.
type OpsEventsHandler struct {
	hub            *events.Hub
	logger         *slog.Logger
	allowedOrigins []string
}

func NewOpsEventsHandler(hub *events.Hub, logger *slog.Logger, allowedOrigins []string) *OpsEventsHandler {
	return &OpsEventsHandler{hub: hub, logger: logger, allowedOrigins: allowedOrigins}
}

func (h *OpsEventsHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

func (h *OpsEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	h.logger.Info("ops event stream opened", slog.String("user_id", userID))

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("ops event write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
