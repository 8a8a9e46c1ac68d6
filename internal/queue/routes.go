package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/apperrors"
	"github.com/harmonyapp/harmony/internal/auth"
	"github.com/harmonyapp/harmony/internal/rooms"
	"github.com/harmonyapp/harmony/internal/songs"
	"github.com/harmonyapp/harmony/internal/spotify"
)

// RegisterRoutes wires queue routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodPost, "/v1/rooms/{room_id}/queue", api.Handler(enqueue(service)))
	router.Method(http.MethodGet, "/v1/rooms/{room_id}/queue", api.Handler(listQueue(service)))
	router.Method(http.MethodDelete, "/v1/rooms/{room_id}/queue/{entry_id}", api.Handler(removeEntry(service)))
}

// enqueue handles POST /v1/rooms/{room_id}/queue
func enqueue(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		var body struct {
			Track *spotify.Track `json:"track"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
		if body.Track == nil {
			return apperrors.NewValidationError("track is required", nil)
		}

		roomID := chi.URLParam(r, "room_id")
		queued, err := service.Enqueue(user.ID, roomID, body.Track)
		if err != nil {
			return mapQueueError(err, roomID)
		}

		return api.WriteResource(w, http.StatusCreated, formatQueuedSong(queued))
	}
}

// listQueue handles GET /v1/rooms/{room_id}/queue
func listQueue(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomID := chi.URLParam(r, "room_id")
		queued, err := service.List(user.ID, roomID)
		if err != nil {
			return mapQueueError(err, roomID)
		}

		formatted := make([]map[string]any, 0, len(queued))
		for i := range queued {
			formatted = append(formatted, formatQueuedSong(&queued[i]))
		}

		return api.WriteList(w, "/v1/rooms/"+roomID+"/queue", formatted, false)
	}
}

// removeEntry handles DELETE /v1/rooms/{room_id}/queue/{entry_id}
func removeEntry(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomID := chi.URLParam(r, "room_id")
		entryID := chi.URLParam(r, "entry_id")

		if err := service.Remove(user.ID, roomID, entryID); err != nil {
			switch {
			case errors.Is(err, ErrEntryNotFound), errors.Is(err, sql.ErrNoRows):
				return apperrors.NewNotFoundError("Queue entry not found", apperrors.ErrorCodeQueueEntryNotFound)
			case errors.Is(err, ErrNotAllowed):
				return apperrors.NewForbiddenError("Only the adder or room creator can remove a queue entry")
			default:
				return mapQueueError(err, roomID)
			}
		}

		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object":  "queue_entry_removed",
			"removed": true,
		})
	}
}

func mapQueueError(err error, roomID string) error {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		return apperrors.NewNotFoundResource("room", roomID)
	case errors.Is(err, rooms.ErrRoomPrivate):
		return apperrors.NewForbiddenError("You do not have access to this room", apperrors.ErrorCodeRoomPrivate)
	case errors.Is(err, songs.ErrInvalidTrack):
		return apperrors.NewValidationError("track data is missing id or name", nil)
	default:
		return apperrors.NewInternalError("Queue operation failed")
	}
}

func formatQueuedSong(item *QueuedSong) map[string]any {
	payload := songs.FormatSong(&item.Song)
	payload["object"] = api.ObjectQueueEntry
	payload["queue_entry_id"] = item.EntryID
	payload["queue_position"] = item.Position
	payload["added_by"] = item.AddedBy
	payload["added_at"] = api.RFC3339Millis(item.AddedAt)
	return payload
}
