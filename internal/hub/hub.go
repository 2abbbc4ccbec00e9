/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package hub tracks live connections and the rooms they belong to.
package hub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Envelope is the wire format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	ID   string
	send chan []byte
}

// Send yields encoded envelopes until the client is unregistered or dropped.
func (c *Client) Send() <-chan []byte {
	return c.send
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]struct{}
	member  map[string]map[string]struct{}
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]struct{}),
		member:  make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(id string, buffer int) *Client {
	c := &Client{ID: id, send: make(chan []byte, buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[id]; ok {
		h.dropLocked(old)
	}
	h.clients[id] = c

	return c
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[id]; ok {
		h.dropLocked(c)
	}
}

// dropLocked removes c from every room and closes its channel. Only the
// caller that removes c from the map closes it.
func (h *Hub) dropLocked(c *Client) {
	for room := range h.member[c.ID] {
		delete(h.rooms[room], c.ID)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.member, c.ID)
	delete(h.clients, c.ID)
	close(c.send)
}

func (h *Hub) Join(room, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[id]; !ok {
		return
	}

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]struct{})
	}
	h.rooms[room][id] = struct{}{}

	if h.member[id] == nil {
		h.member[id] = make(map[string]struct{})
	}
	h.member[id][room] = struct{}{}
}

func (h *Hub) Leave(room, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.rooms[room], id)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	delete(h.member[id], room)
	if len(h.member[id]) == 0 {
		delete(h.member, id)
	}
}

// Clear empties a room without disconnecting anyone.
func (h *Hub) Clear(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id := range h.rooms[room] {
		delete(h.member[id], room)
		if len(h.member[id]) == 0 {
			delete(h.member, id)
		}
	}
	delete(h.rooms, room)
}

func (h *Hub) Emit(id, event string, payload any) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[id]; ok {
		h.sendLocked(c, msg)
	}
}

func (h *Hub) Broadcast(room, event string, payload any) {
	h.BroadcastExcept(room, "", event, payload)
}

func (h *Hub) BroadcastExcept(room, exceptID, event string, payload any) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id := range h.rooms[room] {
		if id == exceptID {
			continue
		}
		if c, ok := h.clients[id]; ok {
			h.sendLocked(c, msg)
		}
	}
}

// sendLocked never blocks; a client that can't keep up is dropped.
func (h *Hub) sendLocked(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("dropping slow client", zap.String("conn_id", c.ID))
		h.dropLocked(c)
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encoding payload", zap.String("event", event), zap.Error(err))
		return nil, false
	}

	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("encoding envelope", zap.String("event", event), zap.Error(err))
		return nil, false
	}

	return msg, true
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[room])
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// CloseAll drops every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		h.dropLocked(c)
	}
}
