package spotify

// Image is an artwork image from the Spotify catalog.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// ArtistRef identifies an artist on a track or album.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumRef identifies the album a track belongs to.
type AlbumRef struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a track from the Spotify catalog.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	URI        string      `json:"uri"`
	Album      AlbumRef    `json:"album"`
	Artists    []ArtistRef `json:"artists"`
	DurationMs int         `json:"duration_ms"`
	PreviewURL *string     `json:"preview_url"`
}

// Album is an album from search results.
type Album struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Images      []Image     `json:"images"`
	Artists     []ArtistRef `json:"artists"`
	ReleaseDate string      `json:"release_date"`
}

// Artist is an artist from search results.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Images     []Image  `json:"images"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

// SearchResults groups search hits by content type.
type SearchResults struct {
	Tracks  []Track  `json:"tracks"`
	Albums  []Album  `json:"albums"`
	Artists []Artist `json:"artists"`
}

// searchResponse is the raw Spotify search payload.
type searchResponse struct {
	Tracks *struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
	Albums *struct {
		Items []Album `json:"items"`
	} `json:"albums"`
	Artists *struct {
		Items []Artist `json:"items"`
	} `json:"artists"`
}

// StartPlaybackInput is the body for the start-playback device call.
type StartPlaybackInput struct {
	DeviceID   string   `json:"device_id"`
	URIs       []string `json:"uris"`
	PositionMs int      `json:"position_ms,omitempty"`
}
