package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event is the frame exchanged in both directions.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomEvent struct {
	Room    string
	Message []byte
}

type membership struct {
	client *Client
	room   string
}

// Hub maintains the set of active clients and the rooms they joined.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan membership

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	// done is closed when Run returns; sends to the loop give up then.
	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. Call it as a goroutine; it returns when ctx
// is done, after closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.rooms {
				for c := range clients {
					h.drop(c)
				}
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if client.rooms == nil {
				client.rooms = make(map[string]bool)
			}
			for room := range client.rooms {
				h.add(client, room)
			}
			h.mu.Unlock()

		case m := <-h.join:
			h.mu.Lock()
			if !m.client.closed {
				h.add(m.client, m.room)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[event.Room] {
				select {
				case client.send <- event.Message:
				default:
					// Client's send buffer is full
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds c to the rooms preset on it. It reports false when the hub
// has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c from every room and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) joinRoom(c *Client, room string) {
	select {
	case h.join <- membership{client: c, room: room}:
	case <-h.done:
	}
}

// Emit queues an event for every client in room. It never blocks; when the
// queue is full the event is dropped.
func (h *Hub) Emit(room, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("ws: encoding payload", zap.String("event", event), zap.Error(err))
		return
	}
	message, err := json.Marshal(Event{Type: event, Payload: raw})
	if err != nil {
		zap.L().Error("ws: encoding event", zap.String("event", event), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- &roomEvent{Room: room, Message: message}:
	default:
		zap.L().Warn("ws: broadcast queue full, event dropped",
			zap.String("room", room), zap.String("event", event))
	}
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// add and drop must be called with h.mu held.
func (h *Hub) add(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
}

func (h *Hub) drop(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	for room := range c.rooms {
		delete(h.rooms[room], c)
		// Clean up empty rooms
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
}
