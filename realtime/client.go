package realtime

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the timeout for a single write to the peer.
	writeWait = 10 * time.Second
	// pongWait is how long to wait for a pong before the connection is
	// considered dead. pingInterval must be shorter.
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	// maxMessageSize bounds inbound messages (8 KB).
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Client is one WebSocket connection.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// roomRequest is the data payload of joinEvent/leaveEvent messages.
type roomRequest struct {
	EventID string `json:"eventId"`
}

// chatMessage is the data payload of a client "message", relayed to the
// event's room.
type chatMessage struct {
	EventID string `json:"eventId"`
	Message string `json:"message"`
}

// trySend queues a message without blocking. It reports false when the
// client's buffer is full, which the hub treats as a dead connection.
func (c *Client) trySend(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// enqueue queues a message, dropping it when the buffer is full.
func (c *Client) enqueue(message []byte) {
	if message == nil {
		return
	}
	if !c.trySend(message) {
		log.Printf("realtime: send buffer full for client %s, dropping message", c.ID)
	}
}

// readPump reads messages from the peer and dispatches room join/leave and
// chat relays. It unregisters the client when the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("realtime: read error for client %s: %v", c.ID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("realtime: bad message from client %s: %v", c.ID, err)
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches one inbound message.
func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case msgJoinEvent:
		var req roomRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.EventID == "" {
			return
		}
		c.hub.joinRoom(c, req.EventID)
		c.enqueue(marshalMessage(msgJoinedEvent, req))

	case msgLeaveEvent:
		var req roomRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.EventID == "" {
			return
		}
		c.hub.leaveRoom(c, req.EventID)
		c.enqueue(marshalMessage(msgLeftEvent, req))

	case msgMessage:
		var chat chatMessage
		if err := json.Unmarshal(msg.Data, &chat); err != nil || chat.EventID == "" {
			return
		}
		c.hub.BroadcastToRoom(chat.EventID, msgMessage, map[string]string{
			"sender":  c.ID,
			"message": chat.Message,
		})

	default:
		// Unknown types are ignored rather than closing the connection.
	}
}

// writePump writes queued messages to the peer and keeps the connection
// alive with pings. It exits when the send channel is closed or a write
// fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub detached this client.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
