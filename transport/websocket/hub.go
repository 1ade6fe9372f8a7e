package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	defaultMaxMessageSize = 4096
	defaultSendBuffer     = 256

	ackEvent   = "ack"
	errorEvent = "error-msg"
)

// Handler consumes client events. It is only ever called from the hub loop.
type Handler interface {
	// HandleEvent processes one inbound event. A non-nil result is sent back
	// to the connection as an ack frame.
	HandleEvent(connID, event string, data json.RawMessage) any
	// HandleDisconnect runs once per closed connection with the rooms it had
	// joined.
	HandleDisconnect(connID string, rooms []string)
}

// Options tunes the hub.
type Options struct {
	// AllowedOrigins lists Origin header values accepted on upgrade. Empty
	// accepts any origin.
	AllowedOrigins []string
	// MaxMessageSize caps inbound frame size in bytes.
	MaxMessageSize int64
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
}

// Frame is the wire envelope for both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Ack   *int64 `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Client represents a WebSocket connection
type Client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool
}

// ID returns the connection identifier.
func (c *Client) ID() string { return c.id }

type inbound struct {
	client *Client
	frame  Frame
}

// Hub owns every connection and room broadcast group. All state changes
// happen on the goroutine running Run.
type Hub struct {
	clients map[string]*Client
	groups  map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	tasks      chan func()
	done       chan struct{}

	// clients whose send queue overflowed during the current turn
	dropped []*Client

	handler  Handler
	upgrader websocket.Upgrader
	opts     Options
}

// NewHub creates a new WebSocket hub
func NewHub(opts Options) *Hub {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}

	h := &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		tasks:      make(chan func()),
		done:       make(chan struct{}),
		opts:       opts,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// SetHandler installs the event handler. Call it before Run.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// Run starts the hub's event loop and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.inbound:
			h.dispatch(msg)

		case task := <-h.tasks:
			task()

		case <-ctx.Done():
			for _, client := range h.clients {
				h.detach(client)
			}
			log.Info().Str("module", "websocket.hub").Msg("hub stopped")
			return
		}
		h.flushDropped()
	}
}

// Submit runs task on the hub loop. It returns false if the hub has stopped.
func (h *Hub) Submit(task func()) bool {
	select {
	case h.tasks <- task:
		return true
	case <-h.done:
		return false
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("module", "websocket.hub").Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		id:    uuid.NewString(),
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, h.opts.SendBuffer),
		rooms: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Unicast sends an event to one connection. Unknown connections are ignored.
func (h *Hub) Unicast(connID, event string, payload any) {
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	data, err := json.Marshal(outFrame{Event: event, Data: payload})
	if err != nil {
		log.Error().Str("module", "websocket.hub").Str("event", event).Err(err).Msg("failed to marshal message")
		return
	}
	h.enqueue(client, data)
}

// Broadcast sends an event to every connection in roomID's group.
func (h *Hub) Broadcast(roomID, event string, payload any) {
	clients, ok := h.groups[roomID]
	if !ok || len(clients) == 0 {
		log.Debug().Str("module", "websocket.hub").Str("room", roomID).Str("event", event).Msg("broadcast to empty room dropped")
		return
	}
	data, err := json.Marshal(outFrame{Event: event, Data: payload})
	if err != nil {
		log.Error().Str("module", "websocket.hub").Str("event", event).Err(err).Msg("failed to marshal broadcast")
		return
	}
	for client := range clients {
		h.enqueue(client, data)
	}
}

// Join adds the connection to roomID's broadcast group.
func (h *Hub) Join(connID, roomID string) {
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.groups[roomID] == nil {
		h.groups[roomID] = make(map[*Client]bool)
	}
	h.groups[roomID][client] = true
	client.rooms[roomID] = true
}

// registerClient adds a connection to the hub
func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	log.Debug().Str("module", "websocket.hub").Str("conn", client.id).Int("clients", len(h.clients)).Msg("client registered")
}

// unregisterClient removes a connection and reconciles the rooms it joined.
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	rooms := h.detach(client)

	log.Debug().Str("module", "websocket.hub").Str("conn", client.id).Strs("rooms", rooms).Int("clients", len(h.clients)).Msg("client unregistered")

	if h.handler != nil {
		h.handler.HandleDisconnect(client.id, rooms)
	}
}

// detach drops the client from every group and closes its send queue. It
// returns the rooms the client had joined, sorted.
func (h *Hub) detach(client *Client) []string {
	rooms := make([]string, 0, len(client.rooms))
	for roomID := range client.rooms {
		rooms = append(rooms, roomID)
		if group, ok := h.groups[roomID]; ok {
			delete(group, client)
			if len(group) == 0 {
				delete(h.groups, roomID)
			}
		}
	}
	sort.Strings(rooms)

	delete(h.clients, client.id)
	close(client.send)
	return rooms
}

func (h *Hub) dispatch(msg inbound) {
	client := msg.client
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	if msg.frame.Event == "" {
		h.Unicast(client.id, errorEvent, "Malformed message")
		return
	}
	if h.handler == nil {
		return
	}

	result := h.handler.HandleEvent(client.id, msg.frame.Event, msg.frame.Data)
	if result == nil {
		return
	}

	data, err := json.Marshal(outFrame{Event: ackEvent, Ack: msg.frame.Ack, Data: result})
	if err != nil {
		log.Error().Str("module", "websocket.hub").Str("conn", client.id).Err(err).Msg("failed to marshal ack")
		return
	}
	h.enqueue(client, data)
}

// enqueue queues data for the client. A full queue marks the client for
// removal once the current turn finishes.
func (h *Hub) enqueue(client *Client, data []byte) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		h.dropped = append(h.dropped, client)
	}
}

func (h *Hub) flushDropped() {
	for len(h.dropped) > 0 {
		client := h.dropped[0]
		h.dropped = h.dropped[1:]
		if _, ok := h.clients[client.id]; ok {
			log.Warn().Str("module", "websocket.hub").Str("conn", client.id).Msg("send buffer full, dropping client")
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ClientCount returns the number of connected clients. Only safe on the hub loop.
func (h *Hub) ClientCount() int {
	return len(h.clients)
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Str("module", "websocket.hub").Str("conn", c.id).Err(err).Msg("websocket error")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Debug().Str("module", "websocket.hub").Str("conn", c.id).Err(err).Msg("malformed frame")
			frame = Frame{}
		}

		select {
		case c.hub.inbound <- inbound{client: c, frame: frame}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
