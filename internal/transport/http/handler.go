package http

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/webitel/im-ws-gateway/internal/auth"
	"github.com/webitel/im-ws-gateway/internal/session"
)

// upgradeHandler authenticates, upgrades, and hands the connection to a new
// Session for the rest of its life. ServeHTTP blocks for the session's
// entire lifetime, matching one goroutine per accepted connection: the
// net/http server already runs each ServeHTTP call on its own goroutine.
type upgradeHandler struct {
	log           *slog.Logger
	authenticator *auth.Authenticator
	sessions      *session.Factory
	upgrader      websocket.Upgrader
}

func newUpgradeHandler(log *slog.Logger, authenticator *auth.Authenticator, sessions *session.Factory) *upgradeHandler {
	if log == nil {
		log = slog.Default()
	}
	return &upgradeHandler{
		log:           log,
		authenticator: authenticator,
		sessions:      sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *upgradeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticator.Authenticate(r)
	if err != nil {
		h.log.Debug("ws authentication failed", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err, "user_id", userID)
		return
	}

	sessionID := uuid.New().String()
	s := h.sessions.New(sessionID, userID, newWSConn(conn))

	h.log.Info("ws connection accepted", "session_id", sessionID, "user_id", userID, "remote_addr", conn.RemoteAddr().String())

	s.Run(r.Context())
}
