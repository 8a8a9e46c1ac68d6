package playback

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/apperrors"
	"github.com/harmonyapp/harmony/internal/auth"
	"github.com/harmonyapp/harmony/internal/rooms"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The SPA is served from a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes wires playback routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/rooms/{room_id}/playback", api.Handler(getPlayback(service)))
	router.Method(http.MethodPut, "/v1/rooms/{room_id}/playback", api.Handler(putPlayback(service)))
	router.Method(http.MethodGet, "/v1/rooms/{room_id}/playback/ws", api.Handler(watchPlayback(service)))
}

// getPlayback handles GET /v1/rooms/{room_id}/playback
func getPlayback(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomID := chi.URLParam(r, "room_id")
		state, err := service.Get(user.ID, roomID)
		if err != nil {
			return mapPlaybackError(err, roomID)
		}

		if state == nil {
			// Idle room: same shape as a written state, zero-valued.
			return api.WriteResource(w, http.StatusOK, formatIdleState(roomID))
		}

		return api.WriteResource(w, http.StatusOK, formatState(state))
	}
}

// putPlayback handles PUT /v1/rooms/{room_id}/playback
func putPlayback(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		var input UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
		if input.CurrentPosition < 0 {
			return apperrors.NewValidationError("current_position must not be negative", nil)
		}

		roomID := chi.URLParam(r, "room_id")
		state, applied, err := service.Update(user.ID, roomID, input)
		if err != nil {
			return mapPlaybackError(err, roomID)
		}

		payload := formatState(state)
		payload["applied"] = applied
		return api.WriteResource(w, http.StatusOK, payload)
	}
}

// watchPlayback handles GET /v1/rooms/{room_id}/playback/ws
func watchPlayback(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomID := chi.URLParam(r, "room_id")
		if err := service.CanAccess(user.ID, roomID); err != nil {
			return mapPlaybackError(err, roomID)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			return nil
		}

		// Push the current state so a late joiner does not wait for the
		// next write.
		if state, stateErr := service.repo.Get(roomID); stateErr == nil && state != nil {
			_ = conn.WriteJSON(formatState(state))
		}

		service.hub.Subscribe(roomID, conn)
		return nil
	}
}

func mapPlaybackError(err error, roomID string) error {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		return apperrors.NewNotFoundResource("room", roomID)
	case errors.Is(err, rooms.ErrRoomPrivate):
		return apperrors.NewForbiddenError("You do not have access to this room", apperrors.ErrorCodeRoomPrivate)
	case errors.Is(err, ErrUnknownSong):
		return apperrors.NewValidationError("current_song_id does not reference a known song", nil)
	default:
		return apperrors.NewInternalError("Playback operation failed")
	}
}

// formatIdleState mirrors formatState for rooms that have never seen a
// playback write, so both branches of GET share one shape.
func formatIdleState(roomID string) map[string]any {
	return map[string]any{
		"object":           api.ObjectPlaybackState,
		"room_id":          roomID,
		"current_song_id":  nil,
		"is_playing":       false,
		"current_position": 0,
		"updated_at":       nil,
	}
}

func formatState(state *State) map[string]any {
	return map[string]any{
		"object":           api.ObjectPlaybackState,
		"room_id":          state.RoomID,
		"current_song_id":  state.CurrentSongID,
		"is_playing":       state.IsPlaying,
		"current_position": state.CurrentPosition,
		"updated_at":       api.RFC3339Millis(state.UpdatedAt),
	}
}
