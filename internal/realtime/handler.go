package realtime

import (
	"errors"
	"net/http"
	"time"

	"pmconsole/internal/models"
	"pmconsole/internal/session"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the dashboard is served from another origin; the bearer token is the gate
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades an authenticated request. Browsers cannot set headers on
// websocket requests, so the token may come in the query string. The owner
// is whoever the authenticator vouches for, never a bare claim.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		http.Error(w, models.MsgNoToken, http.StatusUnauthorized)
		return
	}
	sess, err := h.auth.Authenticate(r.Context(), session.FromRequest(r))
	if err != nil {
		msg := models.MsgSessionExpired
		if errors.Is(err, session.ErrNoToken) {
			msg = models.MsgNoToken
		}
		h.logger.Debug().Err(err).Msg("websocket authentication refused")
		http.Error(w, msg, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h, conn, sess.Subject)
	h.register(client)

	go client.writePump()
	go client.readPump()

	client.enqueue(&Message{
		Topic:     "system.connected",
		Entity:    "system",
		Action:    "connected",
		Metadata:  map[string]string{"clientId": client.id},
		Timestamp: time.Now().UTC(),
	})
	h.logger.Info().Str("owner", sess.Subject).Str("client_id", client.id).Msg("websocket connected")
}
