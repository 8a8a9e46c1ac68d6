package playback

import "time"

// State is the shared transport status for a room. One row per room,
// last-writer-wins with a timestamp guard against regressions.
type State struct {
	RoomID          string    `json:"room_id"`
	CurrentSongID   *string   `json:"current_song_id"`
	IsPlaying       bool      `json:"is_playing"`
	CurrentPosition float64   `json:"current_position"` // seconds
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpdateInput contains the input for a playback state write.
type UpdateInput struct {
	IsPlaying       bool    `json:"is_playing"`
	CurrentPosition float64 `json:"current_position"`
	CurrentSongID   *string `json:"current_song_id"`
}
