package songs

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/apperrors"
)

// RegisterRoutes wires song lookup routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/songs/{song_id}", api.Handler(getSong(service)))
}

func getSong(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		songID := chi.URLParam(r, "song_id")

		song, err := service.Get(songID)
		if err != nil {
			return apperrors.NewInternalError("Failed to load song")
		}
		if song == nil {
			return apperrors.NewNotFoundResource("song", songID)
		}

		return api.WriteResource(w, http.StatusOK, FormatSong(song))
	}
}

// FormatSong renders a song resource payload.
func FormatSong(song *Song) map[string]any {
	payload := map[string]any{
		"object":     api.ObjectSong,
		"id":         song.ID,
		"title":      song.Title,
		"duration":   song.Duration,
		"spotify_id": song.SpotifyID,
		"created_at": api.RFC3339Millis(song.CreatedAt),
	}
	if song.Artist != nil && *song.Artist != "" {
		payload["artist"] = *song.Artist
	}
	if song.Thumbnail != nil && *song.Thumbnail != "" {
		payload["thumbnail"] = *song.Thumbnail
	}
	if song.SpotifyURI != nil && *song.SpotifyURI != "" {
		payload["spotify_uri"] = *song.SpotifyURI
	}
	return payload
}
