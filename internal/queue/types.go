package queue

import (
	"time"

	"github.com/harmonyapp/harmony/internal/songs"
)

// Entry is a row in a room's queue.
type Entry struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	SongID   string    `json:"song_id"`
	Position int       `json:"position"`
	AddedBy  string    `json:"added_by"`
	AddedAt  time.Time `json:"added_at"`
}

// QueuedSong is a song joined with its queue placement, the shape clients
// render in the room playlist.
type QueuedSong struct {
	Song     songs.Song `json:"song"`
	EntryID  string     `json:"queue_entry_id"`
	Position int        `json:"queue_position"`
	AddedBy  string     `json:"added_by"`
	AddedAt  time.Time  `json:"added_at"`
}
