package playback

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harmonyapp/harmony/internal/api"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

// Hub fans playback state changes out to the websocket subscribers of each
// room. Every applied write is pushed to all connections watching that room;
// clients compare updated_at against their last known value and drop stale
// pushes.
type Hub struct {
	mu           sync.RWMutex
	rooms        map[string]map[*subscriber]struct{}
	pingInterval time.Duration
	logger       *log.Logger
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a new Hub.
func NewHub(pingInterval time.Duration, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}

	return &Hub{
		rooms:        make(map[string]map[*subscriber]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Subscribe registers a connection for a room's updates and blocks until the
// connection closes. The caller hands over ownership of conn.
func (h *Hub) Subscribe(roomID string, conn *websocket.Conn) {
	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*subscriber]struct{})
	}
	h.rooms[roomID][sub] = struct{}{}
	count := len(h.rooms[roomID])
	h.mu.Unlock()

	h.logger.Printf("Playback subscriber joined room %s (%d watching)", roomID, count)

	go h.writePump(sub)
	h.readPump(roomID, sub)
}

// Broadcast pushes a state to every subscriber of the room.
func (h *Hub) Broadcast(roomID string, state *State) {
	payload, err := json.Marshal(map[string]any{
		"object":           api.ObjectPlaybackState,
		"room_id":          state.RoomID,
		"current_song_id":  state.CurrentSongID,
		"is_playing":       state.IsPlaying,
		"current_position": state.CurrentPosition,
		"updated_at":       api.RFC3339Millis(state.UpdatedAt),
	})
	if err != nil {
		h.logger.Printf("Failed to marshal playback state for room %s: %v", roomID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[roomID] {
		select {
		case sub.send <- payload:
		default:
			// Slow consumer; it will catch up from the next poll.
		}
	}
}

// SubscriberCount returns how many connections watch a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) unsubscribe(roomID string, sub *subscriber) {
	h.mu.Lock()
	if subs, ok := h.rooms[roomID]; ok {
		if _, present := subs[sub]; present {
			delete(subs, sub)
			close(sub.send)
		}
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	sub.conn.Close()
}

// readPump discards inbound messages and tears the subscriber down on error.
// The playback channel is push-only; writes go through the HTTP endpoint.
func (h *Hub) readPump(roomID string, sub *subscriber) {
	defer h.unsubscribe(roomID, sub)

	sub.conn.SetPongHandler(func(string) error { return nil })
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-sub.send:
			if !ok {
				_ = sub.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
