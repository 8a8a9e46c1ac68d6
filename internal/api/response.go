package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/harmonyapp/harmony/internal/apperrors"
)

// Object type identifiers used in resource payloads.
const (
	ObjectRoom          = "room"
	ObjectRoomMember    = "room_member"
	ObjectSong          = "song"
	ObjectQueueEntry    = "queue_entry"
	ObjectPlaybackState = "playback_state"
	ObjectProfile       = "profile"
	ObjectTokenPair     = "token_pair"
)

// ListResponse is the Stripe-style list envelope for all collection endpoints.
// Example: {"object": "list", "data": [...], "has_more": false, "url": "/v1/rooms"}
type ListResponse struct {
	Object  string `json:"object"`   // Always "list"
	Data    any    `json:"data"`     // Array of resources
	HasMore bool   `json:"has_more"` // Whether more items exist beyond this page
	URL     string `json:"url"`      // The URL for this list endpoint
}

// ErrorResponse wraps errors in Stripe format.
type ErrorResponse struct {
	Error apperrors.ErrorBody `json:"error"`
}

// WriteJSON sends a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError serializes an AppError into the Stripe-style error response.
// Response format: {"error": {"type": "...", "code": "...", "message": "..."}}
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.EnsureAppError(err)

	response := ErrorResponse{
		Error: appErr.ErrorBody(),
	}

	_ = WriteJSON(w, appErr.StatusCode, response)
}

// WriteList writes a Stripe-style list response.
// Example: WriteList(w, "/v1/rooms", rooms, false)
func WriteList(w http.ResponseWriter, url string, data any, hasMore bool) error {
	return WriteJSON(w, http.StatusOK, ListResponse{
		Object:  "list",
		Data:    data,
		HasMore: hasMore,
		URL:     url,
	})
}

// WriteResource writes a single resource directly (Stripe-style, no wrapper).
// The resource should already have an "object" field set.
func WriteResource(w http.ResponseWriter, status int, resource any) error {
	return WriteJSON(w, status, resource)
}

// WriteAction writes an action result directly (Stripe-style, no wrapper).
func WriteAction(w http.ResponseWriter, status int, result any) error {
	return WriteJSON(w, status, result)
}

// RFC3339Millis formats a timestamp with millisecond precision for responses.
func RFC3339Millis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
