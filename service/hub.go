package service

import (
	"encoding/json"
	"sync"

	"chatrelay/model"
	"chatrelay/platform"

	"github.com/sirupsen/logrus"
)

// Client is one live room binding: a connection bound to exactly one
// conversation. Deliveries go through a buffered send channel drained by the
// connection's writer goroutine; the channel is closed on unbind, which ends
// the writer and closes the socket.
type Client struct {
	UserID         uint
	Username       string
	ConversationID uint

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewClient(userID uint, username string, conversationID uint) *Client {
	return &Client{
		UserID:         userID,
		Username:       username,
		ConversationID: conversationID,
		send:           make(chan []byte, 256),
	}
}

// Outbound is drained by the connection writer. The channel is closed when
// the client is unregistered.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Deliver queues a frame without blocking. Reports false when the client is
// gone or its buffer is full.
func (c *Client) Deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Hub is the room broadcaster: a process-local registry of live clients per
// conversation. It is the only structure mutated concurrently by connection
// workers; the mutex makes bind/unbind atomic with respect to fan-out.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uint]map[*Client]bool
	logger *logrus.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[uint]map[*Client]bool),
		logger: platform.Logger,
	}
}

// Register binds the client to its conversation's room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[c.ConversationID]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[c.ConversationID] = room
	}
	room[c] = true
	h.logger.Infof("room %d: %s connected (%d bound)", c.ConversationID, c.Username, len(room))
}

// Unregister removes the binding and closes the client's send channel. Safe
// to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unbindLocked(c)
}

func (h *Hub) unbindLocked(c *Client) {
	room, ok := h.rooms[c.ConversationID]
	if !ok {
		return
	}
	if _, bound := room[c]; !bound {
		return
	}
	delete(room, c)
	c.close()
	if len(room) == 0 {
		delete(h.rooms, c.ConversationID)
	}
	h.logger.Infof("room %d: %s disconnected (%d bound)", c.ConversationID, c.Username, len(room))
}

// RoomSize reports the number of clients bound to a conversation.
func (h *Hub) RoomSize(conversationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// BroadcastExcludingSender relays a message to every client in the room
// except the originating connection, which already rendered its own copy.
// A nil sender excludes nobody.
func (h *Hub) BroadcastExcludingSender(conversationID uint, sender *Client, msg *model.Message) {
	h.broadcast(conversationID, sender, msg)
}

// BroadcastToAll relays to every client in the room, origin included. Used
// for assistant replies, which no connection owns.
func (h *Hub) BroadcastToAll(conversationID uint, msg *model.Message) {
	h.broadcast(conversationID, nil, msg)
}

// broadcast is best effort and at most once: a peer whose send buffer is
// full is logged, scheduled for close and skipped, never retried. Durability
// is the store's job.
func (h *Hub) broadcast(conversationID uint, exclude *Client, msg *model.Message) {
	data, err := json.Marshal(model.DeliverEvent(msg))
	if err != nil {
		h.logger.Errorf("room %d: marshal deliver event: %v", conversationID, err)
		return
	}

	var stalled []*Client

	h.mu.RLock()
	for c := range h.rooms[conversationID] {
		if c == exclude {
			continue
		}
		if !c.Deliver(data) {
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		h.logger.Warnf("room %d: %v to %s, closing connection", conversationID, ErrDelivery, c.Username)
		h.Unregister(c)
	}
}
