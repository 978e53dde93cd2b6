// package realtime pushes catalog change events to connected clients over
// WebSocket. Clients join the room for their organization; the API layer
// publishes an event after each mutation and every client in the room
// receives it.
package realtime

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

// Event names sent to clients.
const (
	EventThreadUpdated           = "thread_updated"
	EventUserMessageUpdated      = "user_message_updated"
	EventAssistantMessageUpdated = "assistant_message_updated"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Event is one realtime message delivered to an organization's room.
type Event struct {
	Type           string `json:"type"`
	OrganizationID string `json:"organization_id"`
	EntityID       string `json:"entity_id,omitempty"`
	Payload        any    `json:"payload,omitempty"`
}

// Client is one connected WebSocket session.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan Event
	OrganizationID string
	UserID         string
}

// Hub tracks connected clients grouped into organization rooms.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
	logger *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Hub{
		rooms:  make(map[string]map[*Client]bool),
		logger: logger.With("component", "realtime"),
	}
}

// Register adds a connection to its organization's room and starts its
// read/write pumps. The caller hands over ownership of conn.
func (h *Hub) Register(conn *websocket.Conn, organizationID, userID string) *Client {
	client := &Client{
		hub:            h,
		conn:           conn,
		send:           make(chan Event, sendBuffer),
		OrganizationID: organizationID,
		UserID:         userID,
	}

	h.mu.Lock()
	room, ok := h.rooms[organizationID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[organizationID] = room
	}
	room[client] = true
	h.mu.Unlock()

	h.logger.Debug("client connected", "organization", organizationID, "user", userID)

	go client.writePump()
	go client.readPump()

	return client
}

// Publish delivers an event to every client in the event's organization room.
// Clients with a full send buffer are dropped rather than blocking the
// publisher.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	room := h.rooms[event.OrganizationID]
	var stale []*Client
	for client := range room {
		select {
		case client.send <- event:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.logger.Warn("dropping slow realtime client", "organization", client.OrganizationID, "user", client.UserID)
		h.unregister(client)
	}
}

// RoomSize reports the number of clients connected for an organization.
func (h *Hub) RoomSize(organizationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[organizationID])
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.OrganizationID]
	if ok {
		if _, present := room[client]; present {
			delete(room, client)
			close(client.send)
			if len(room) == 0 {
				delete(h.rooms, client.OrganizationID)
			}
		}
	}
	h.mu.Unlock()

	client.conn.Close()
}

// readPump discards inbound frames; the protocol is server-push only. It
// exists to process control frames and detect closed connections.
func (c *Client) readPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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
