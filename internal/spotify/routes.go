package spotify

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/apperrors"
	"github.com/harmonyapp/harmony/internal/auth"
	"github.com/harmonyapp/harmony/internal/config"
)

// RegisterRoutes wires the Spotify account-link and catalog routes.
func RegisterRoutes(router chi.Router, client *Client, creds *CredentialRepository, cfg config.Config) {
	// Account link (OAuth redirect flow)
	router.Method(http.MethodGet, "/v1/auth/spotify/link", api.Handler(startLink(client, creds, cfg)))
	router.Method(http.MethodGet, "/v1/auth/spotify/callback", api.Handler(completeLink(client, creds)))
	router.Method(http.MethodDelete, "/v1/auth/spotify/link", api.Handler(unlink(creds)))

	// Catalog and playback control
	router.Method(http.MethodGet, "/v1/spotify/search", api.Handler(search(client)))
	router.Method(http.MethodGet, "/v1/spotify/tracks/{track_id}", api.Handler(getTrack(client)))
	router.Method(http.MethodPut, "/v1/spotify/player/play", api.Handler(startPlayback(client)))
}

func startLink(client *Client, creds *CredentialRepository, cfg config.Config) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		state := uuid.NewString()
		ttl := linkStateTTL(cfg)
		if err := creds.CreateLinkState(state, user.ID, ttl); err != nil {
			return apperrors.NewInternalError("Failed to start account link")
		}

		authorizeURL := client.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))

		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object":        "spotify_link_start",
			"authorize_url": authorizeURL,
			"state":         state,
		})
	}
}

func completeLink(client *Client, creds *CredentialRepository) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if code == "" || state == "" {
			return apperrors.NewValidationError("code and state are required", nil)
		}

		userID, expired, err := creds.ConsumeLinkState(state)
		if err != nil {
			return apperrors.NewInternalError("Failed to resolve link state")
		}
		if expired {
			return apperrors.NewUnauthorizedError("Link request has expired", apperrors.ErrorCodeLinkStateExpired)
		}
		if userID == "" {
			return apperrors.NewUnauthorizedError("Unknown link state", apperrors.ErrorCodeLinkStateInvalid)
		}

		token, err := client.oauthConfig.Exchange(r.Context(), code)
		if err != nil {
			return apperrors.NewAppError(apperrors.ErrorCodeSpotifyAPIError, "Spotify rejected the authorization code", 502, nil)
		}

		if err := creds.SaveToken(userID, token); err != nil {
			return apperrors.NewInternalError("Failed to store Spotify credentials")
		}

		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object": "spotify_link",
			"linked": true,
		})
	}
}

func unlink(creds *CredentialRepository) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		if err := creds.DeleteToken(user.ID); err != nil {
			return apperrors.NewInternalError("Failed to unlink Spotify account")
		}

		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object": "spotify_link",
			"linked": false,
		})
	}
}

func search(client *Client) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		query := r.URL.Query().Get("q")
		results, err := client.Search(r.Context(), user.ID, query)
		if err != nil {
			return mapClientError(err, "Search failed")
		}

		return api.WriteResource(w, http.StatusOK, map[string]any{
			"object":  "search_results",
			"tracks":  results.Tracks,
			"albums":  results.Albums,
			"artists": results.Artists,
		})
	}
}

func getTrack(client *Client) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		trackID := chi.URLParam(r, "track_id")
		if trackID == "" {
			return apperrors.NewValidationError("track_id is required", nil)
		}

		track, err := client.GetTrack(r.Context(), user.ID, trackID)
		if err != nil {
			return mapClientError(err, "Failed to fetch track")
		}

		return api.WriteResource(w, http.StatusOK, track)
	}
}

func startPlayback(client *Client) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		var input StartPlaybackInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
		if len(input.URIs) == 0 {
			return apperrors.NewValidationError("uris is required", nil)
		}

		if err := client.StartPlayback(r.Context(), user.ID, input); err != nil {
			return mapClientError(err, "Failed to start playback")
		}

		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object":  "playback_start",
			"started": true,
		})
	}
}

func mapClientError(err error, fallback string) error {
	switch err {
	case ErrNotLinked:
		return apperrors.NewForbiddenError("No Spotify account linked", apperrors.ErrorCodeSpotifyNotLinked)
	case ErrTokenExpired:
		return apperrors.NewUnauthorizedError("Spotify token expired, re-link required", apperrors.ErrorCodeSpotifyTokenExpired)
	default:
		return apperrors.NewAppError(apperrors.ErrorCodeSpotifyAPIError, fallback, 502, nil)
	}
}

func linkStateTTL(cfg config.Config) time.Duration {
	return time.Duration(cfg.LinkStateTTLSec) * time.Second
}
