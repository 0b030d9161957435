package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pmconsole/internal/events"
	"pmconsole/internal/models"
	"pmconsole/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knownTokens accepts the tokens the backend would accept.
var knownTokens = session.CheckFunc(func(_ context.Context, token string) error {
	if strings.HasSuffix(token, "-token") {
		return nil
	}
	return errors.New("rejected upstream")
})

func newTestHub(t *testing.T) (*Hub, *events.EventBus, *httptest.Server) {
	t.Helper()
	return newTestHubWith(t, knownTokens)
}

func newTestHubWith(t *testing.T, auth session.Authenticator) (*Hub, *events.EventBus, *httptest.Server) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	hub := NewHub(auth, &logger)
	bus := events.NewEventBus()
	hub.Attach(bus)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, bus, srv
}

func dialStatus(t *testing.T, srv *httptest.Server, token string) int {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + url.QueryEscape(token)
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		_ = conn.Close()
		return http.StatusSwitchingProtocols
	}
	require.NotNil(t, resp)
	return resp.StatusCode
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubDeliversOwnEventsOnly(t *testing.T) {
	hub, bus, srv := newTestHub(t)

	alice := dial(t, srv, "alice-token")
	bob := dial(t, srv, "bob-token")
	assert.Equal(t, "system.connected", read(t, alice).Topic)
	assert.Equal(t, "system.connected", read(t, bob).Topic)

	aliceOwner := session.Subject("alice-token")
	require.Eventually(t, func() bool { return hub.Connections(aliceOwner) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, bus.PublishFor(aliceOwner, events.EventBookingCreated, events.BookingCreatedPayload{
		Owner:  aliceOwner,
		Marker: models.NewBookingMarker{BookingID: "BK-1"},
	}))

	msg := read(t, alice)
	assert.Equal(t, "booking.created", msg.Topic)
	assert.Contains(t, string(msg.Data), "BK-1")

	// bob only gets his pong, never alice's booking
	require.NoError(t, bob.WriteJSON(map[string]string{"action": "ping"}))
	assert.Equal(t, "system.pong", read(t, bob).Topic)
}

func TestHubIgnoresUnownedEvents(t *testing.T) {
	_, bus, srv := newTestHub(t)
	conn := dial(t, srv, "carol-token")
	read(t, conn)

	require.NoError(t, bus.PublishJSON(events.EventReservationsConfirmed, events.RefreshPayload{BookingID: "BK-2"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	assert.Equal(t, "system.pong", read(t, conn).Topic)
}

func TestHubRejectsMissingToken(t *testing.T) {
	_, _, srv := newTestHub(t)

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubDetachesOnClose(t *testing.T) {
	hub, _, srv := newTestHub(t)
	conn := dial(t, srv, "dave-token")
	read(t, conn)

	owner := session.Subject("dave-token")
	require.Equal(t, 1, hub.Connections(owner))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return hub.Connections(owner) == 0 }, time.Second, 10*time.Millisecond)
}

func forgedToken(sub string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." +
		enc.EncodeToString([]byte(`{"sub":"`+sub+`"}`)) + ".AAAA"
}

func TestHubRefusesForgedToken(t *testing.T) {
	hub, _, srv := newTestHubWith(t, session.NewSignedTokens("hub-secret"))

	assert.Equal(t, http.StatusUnauthorized, dialStatus(t, srv, forgedToken("owner-victim")))

	guessed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "owner-victim"}).SignedString([]byte("guessed"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, dialStatus(t, srv, guessed))
	assert.Zero(t, hub.Connections("owner-victim"))
}

func TestHubRefusesTokensTheBackendRejects(t *testing.T) {
	hub, _, srv := newTestHub(t)

	forged := forgedToken("owner-victim")
	assert.Equal(t, http.StatusUnauthorized, dialStatus(t, srv, forged))
	assert.Zero(t, hub.Connections("owner-victim"))
	assert.Zero(t, hub.Connections(session.Subject(forged)))
}

func TestHubSignedOwnerReceivesBookings(t *testing.T) {
	hub, bus, srv := newTestHubWith(t, session.NewSignedTokens("hub-secret"))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "owner-victim",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("hub-secret"))
	require.NoError(t, err)

	conn := dial(t, srv, token)
	assert.Equal(t, "system.connected", read(t, conn).Topic)
	require.Eventually(t, func() bool { return hub.Connections("owner-victim") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, bus.PublishFor("owner-victim", events.EventBookingCreated, events.BookingCreatedPayload{
		Owner:  "owner-victim",
		Marker: models.NewBookingMarker{BookingID: "B9"},
	}))
	msg := read(t, conn)
	assert.Equal(t, "booking.created", msg.Topic)
	assert.Contains(t, string(msg.Data), "B9")
}

func TestHubWithoutAuthenticatorRefusesAll(t *testing.T) {
	_, _, srv := newTestHubWith(t, nil)
	assert.Equal(t, http.StatusUnauthorized, dialStatus(t, srv, "alice-token"))
}
