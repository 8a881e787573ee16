package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatsim/pkg/models"
)

const (
	EventSnapshot = "chat.snapshot"
	EventAdd      = "chat.add"
	EventDelete   = "chat.delete"
	EventReset    = "chat.reset"
	EventError    = "chat.error"
)

const writeTimeout = 2 * time.Second

// Event is pushed to every connection in a player's room.
type Event struct {
	Type    string            `json:"type"`
	Item    *models.ChatItem  `json:"item,omitempty"`
	Items   []models.ChatItem `json:"items,omitempty"`
	ItemID  string            `json:"item_id,omitempty"`
	CharID  string            `json:"char_id,omitempty"`
	Cleared int64             `json:"cleared,omitempty"`
	Error   string            `json:"error,omitempty"`
	At      time.Time         `json:"at"`
}

// Hub keeps one room per player. All writes to a connection happen under mu.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *Hub) Join(playerID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(playerID, ws)
}

func (h *Hub) joinLocked(playerID string, ws *websocket.Conn) {
	r, ok := h.rooms[playerID]
	if !ok {
		r = make(map[*websocket.Conn]struct{})
		h.rooms[playerID] = r
	}
	r[ws] = struct{}{}
}

func (h *Hub) Leave(playerID string, ws *websocket.Conn) {
	h.mu.Lock()
	if r, ok := h.rooms[playerID]; ok {
		delete(r, ws)
		if len(r) == 0 {
			delete(h.rooms, playerID)
		}
	}
	h.mu.Unlock()

	_ = ws.Close()
}

func (h *Hub) Broadcast(playerID string, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[playerID]
	if !ok {
		return
	}
	for ws := range r {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = ws.Close()
			delete(r, ws)
		}
	}
}

// Subscribe sends the snapshot returned by list and joins ws to the player's
// room without releasing the lock in between, so every change committed after
// list ran reaches ws after the snapshot. An item committed just before may
// arrive both in the snapshot and as chat.add; clients key items by id.
func (h *Hub) Subscribe(playerID string, ws *websocket.Conn, list func() ([]models.ChatItem, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	items, err := list()
	if err != nil {
		return err
	}
	if err := writeEvent(ws, Event{Type: EventSnapshot, Items: items, At: time.Now().UTC()}); err != nil {
		return err
	}
	h.joinLocked(playerID, ws)
	return nil
}

// Send writes ev to a single connection.
func (h *Hub) Send(ws *websocket.Conn, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return writeEvent(ws, ev)
}

func writeEvent(ws *websocket.Conn, ev Event) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteJSON(ev)
}

func (h *Hub) Connections(playerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[playerID])
}

// History clears chat authors through the repo and tells the player's room
// to reload. The session store uses it when a custom character is deleted.
type History struct {
	Repo *Repo
	Hub  *Hub
}

func (h History) ClearAuthor(ctx context.Context, ownerID, charID string) (int64, error) {
	n, err := h.Repo.ClearAuthor(ctx, ownerID, charID)
	if err != nil {
		return 0, err
	}
	if n > 0 && h.Hub != nil {
		h.Hub.Broadcast(ownerID, Event{Type: EventReset, CharID: charID, Cleared: n})
	}
	return n, nil
}
