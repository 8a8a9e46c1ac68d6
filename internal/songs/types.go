package songs

import "time"

// Song is a canonical track record, deduplicated by Spotify id.
type Song struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Artist     *string   `json:"artist,omitempty"`
	Duration   int       `json:"duration"` // seconds
	Thumbnail  *string   `json:"thumbnail,omitempty"`
	SpotifyID  string    `json:"spotify_id"`
	SpotifyURI *string   `json:"spotify_uri,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
