package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"pmconsole/internal/events"
	"pmconsole/internal/logging"
	"pmconsole/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBuffer   = 8
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
)

// Message is what a dashboard tab receives. Data is the event payload.
type Message struct {
	Topic     string            `json:"topic"`
	Entity    string            `json:"entity"`
	Action    string            `json:"action"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Data      json.RawMessage   `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type command struct {
	Action string `json:"action"`
}

// Client is one websocket connection of an owner.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	owner     string
	id        string
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, owner string) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		owner: owner,
		id:    uuid.NewString(),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

func (c *Client) writePump() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.logger.Debug().Err(err).Str("client_id", c.id).Msg("websocket write failed")
				c.hub.detach(c)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.hub.detach(c)
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer c.hub.detach(c)

	c.conn.SetReadLimit(1 << 12)
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		var cmd command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug().Err(err).Str("client_id", c.id).Msg("websocket read ended")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		if strings.EqualFold(cmd.Action, "ping") {
			c.enqueue(&Message{Topic: "system.pong", Entity: "system", Action: "pong", Timestamp: time.Now().UTC()})
		}
	}
}

// enqueue never blocks; a client that cannot keep up is dropped.
func (c *Client) enqueue(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	_, attached := c.hub.owners[c.owner][c]
	if attached {
		select {
		case c.send <- data:
			c.hub.mu.RUnlock()
			return
		default:
		}
	}
	c.hub.mu.RUnlock()
	if attached {
		go c.hub.detach(c)
	}
}

// Hub fans bus events out to the connections of the event's owner.
type Hub struct {
	owners map[string]map[*Client]struct{}
	mu     sync.RWMutex
	auth   session.Authenticator
	logger *zerolog.Logger
}

// NewHub needs an authenticator that verifies the token; a nil one refuses
// every connection.
func NewHub(auth session.Authenticator, logger *zerolog.Logger) *Hub {
	return &Hub{
		owners: make(map[string]map[*Client]struct{}),
		auth:   auth,
		logger: logging.Component(logger, "realtime"),
	}
}

// Attach subscribes the hub to the events a dashboard reacts to.
func (h *Hub) Attach(bus *events.EventBus) {
	for _, t := range []string{events.EventBookingCreated, events.EventReservationsConfirmed, events.EventReservationsStale} {
		bus.Subscribe(t, h.HandleEvent)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.owners[c.owner] == nil {
		h.owners[c.owner] = make(map[*Client]struct{})
	}
	h.owners[c.owner][c] = struct{}{}
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	if clients, ok := h.owners[c.owner]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.owners, c.owner)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Connections returns how many sockets an owner has open.
func (h *Hub) Connections(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[owner])
}

// HandleEvent delivers an owned event. Events without an owner are dropped;
// reservation data is never broadcast.
func (h *Hub) HandleEvent(event *events.Event) error {
	if event.Owner == "" {
		return nil
	}
	entity, action := splitType(event.Type)
	msg := &Message{
		Topic:     entity + "." + action,
		Entity:    entity,
		Action:    action,
		Metadata:  map[string]string{"eventId": event.ID},
		Data:      json.RawMessage(event.Payload),
		Timestamp: event.CreatedAt.UTC(),
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.owners[event.Owner]))
	for c := range h.owners[event.Owner] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(msg)
	}
	return nil
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Client
	for _, clients := range h.owners {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.owners = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}

func splitType(eventType string) (string, string) {
	if idx := strings.LastIndex(eventType, "_"); idx > 0 {
		return eventType[:idx], eventType[idx+1:]
	}
	return eventType, "unknown"
}
