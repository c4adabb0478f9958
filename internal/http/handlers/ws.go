package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/zentexa/wabot-platform/internal/notify"
	"github.com/zentexa/wabot-platform/internal/session"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

// WSHandler streams a session's events to dashboard clients as JSON
// frames over a WebSocket.
type WSHandler struct {
	manager *session.Manager
	hub     *notify.Hub
	logger  *logging.Logger
}

func NewWSHandler(manager *session.Manager, hub *notify.Hub, logger *logging.Logger) *WSHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WSHandler{manager: manager, hub: hub, logger: logger}
}

// Serve upgrades the connection and forwards hub events until the client
// hangs up or the session disappears.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, ok := h.manager.Get(sessionID); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.stream(conn, sessionID)
	}).ServeHTTP(w, r)
}

func (h *WSHandler) stream(conn *websocket.Conn, sessionID string) {
	defer conn.Close()

	ch, cancel := h.hub.Subscribe(sessionID)
	defer cancel()

	h.logger.Info("ws subscriber connected", "session_id", sessionID)

	// Push current status first so late joiners know where the session is.
	if s, ok := h.manager.Get(sessionID); ok {
		if err := websocket.JSON.Send(conn, s.Snapshot()); err != nil {
			return
		}
	}

	for evt := range ch {
		if err := websocket.JSON.Send(conn, evt); err != nil {
			h.logger.Info("ws subscriber gone", "session_id", sessionID)
			return
		}
	}
}
