package ws

import (
	"sync"
	"time"

	"github.com/crosstalk-chat/crosstalk/globals"
	"github.com/crosstalk-chat/crosstalk/types"
)

const (
	maxMessageSize  = 4096
	pongWait        = 2 * time.Minute
	pingPeriod      = time.Minute
	writeWait       = 10 * time.Second
	sendChannelSize = 256
)

// Hub keeps the per-room broadcast groups: which clients currently receive a
// room's messages. It carries no room state of its own, that lives in the
// store.
type Hub struct {
	// registered clients per room code
	rooms map[string]map[*Client]struct{}

	// mutex for manipulating the rooms map
	sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Register subscribes a client to a room's broadcast group.
func (h *Hub) Register(code string, c *Client) {
	h.Lock()
	defer h.Unlock()
	clients, ok := h.rooms[code]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[code] = clients
	}
	clients[c] = struct{}{}
}

// Unregister drops a client from a room's broadcast group.
func (h *Hub) Unregister(code string, c *Client) {
	h.Lock()
	defer h.Unlock()
	if clients, ok := h.rooms[code]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, code)
		}
	}
}

// BroadcastRoom sends data to every client in the room except the excluded
// one (usually the sender). A nil except reaches the whole room.
func (h *Hub) BroadcastRoom(code string, data []byte, except *Client) {
	h.RLock()
	defer h.RUnlock()
	for c := range h.rooms[code] {
		if c == except {
			continue
		}
		c.TrySend(data)
	}
}

// RoomEvent implements presence.Notifier by fanning the payload out to the
// whole room.
func (h *Hub) RoomEvent(code string, event string, payload interface{}) {
	data, err := types.MarshalEvent(event, payload)
	if err != nil {
		globals.AppLogger.Error("could not marshal room event", "event", event, "error", err)
		return
	}
	h.BroadcastRoom(code, data, nil)
}

// NoClients returns the number of clients subscribed to the room.
func (h *Hub) NoClients(code string) int {
	h.RLock()
	defer h.RUnlock()
	return len(h.rooms[code])
}
