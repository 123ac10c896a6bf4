// Package realtime implements the WebSocket fan-out for event notifications.
// Connected clients receive global broadcasts and may opt into per-event
// rooms to receive room-scoped messages. Delivery is best-effort: a slow or
// disconnected client is detached, never an error for the sender.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The realtime channel only pushes data that is also publicly readable
	// via GET /events, so cross-origin connections are accepted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope exchanged in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client-initiated message types.
const (
	msgJoinEvent  = "joinEvent"
	msgLeaveEvent = "leaveEvent"
	msgMessage    = "message"
)

// Server-initiated acknowledgement types.
const (
	msgConnected   = "connected"
	msgJoinedEvent = "joinedEvent"
	msgLeftEvent   = "leftEvent"
)

// Hub manages all active WebSocket connections and their room memberships.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub creates a new Hub. Run must be started in a goroutine before
// clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client, 10),
		unregister: make(chan *Client, 10),
		broadcast:  make(chan []byte, 256),
	}
}

// Run is the hub's main loop: it registers and unregisters clients and fans
// global broadcasts out to every connection. It returns when ctx is done,
// closing all remaining connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			// Acknowledge once the client is registered, so anything
			// broadcast afterwards is guaranteed to reach it.
			client.enqueue(marshalMessage(msgConnected, map[string]string{"clientId": client.ID}))

		case client := <-h.unregister:
			h.detach(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			var dead []*Client
			for client := range h.clients {
				if !client.trySend(message) {
					dead = append(dead, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range dead {
				h.detach(client)
			}
		}
	}
}

// Broadcast sends a typed payload to every connected client. The send is
// non-blocking; when the hub's queue is full the message is dropped.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg := marshalMessage(event, payload)
	if msg == nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("realtime: broadcast channel full, dropping %q", event)
	}
}

// BroadcastToRoom sends a typed payload to the clients that joined the named
// room. Slow clients are detached.
func (h *Hub) BroadcastToRoom(room, event string, payload interface{}) {
	msg := marshalMessage(event, payload)
	if msg == nil {
		return
	}

	h.mu.RLock()
	var dead []*Client
	for client := range h.rooms[room] {
		if !client.trySend(msg) {
			dead = append(dead, client)
		}
	}
	h.mu.RUnlock()
	for _, client := range dead {
		h.detach(client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients in the named room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// joinRoom adds a client to a room, creating the room on first join.
func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
}

// leaveRoom removes a client from a room, deleting the room when it empties.
func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// detach removes a client from the hub and every room and closes its send
// channel, which terminates its writePump.
func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(client.send)
}

// closeAll detaches every client at shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.detach(client)
	}
}

// marshalMessage builds the wire form of a typed message. A payload that
// cannot be marshalled is dropped with a log line.
func marshalMessage(event string, payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("realtime: failed to marshal %q payload: %v", event, err)
		return nil
	}
	msg, err := json.Marshal(Message{Type: event, Data: data})
	if err != nil {
		log.Printf("realtime: failed to marshal %q message: %v", event, err)
		return nil
	}
	return msg
}
