package rooms

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/apperrors"
	"github.com/harmonyapp/harmony/internal/auth"
)

// RegisterRoutes wires room directory routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodPost, "/v1/rooms", api.Handler(createRoom(service)))
	router.Method(http.MethodGet, "/v1/rooms", api.Handler(listRooms(service)))
	router.Method(http.MethodGet, "/v1/rooms/{room_id}", api.Handler(getRoom(service)))
	router.Method(http.MethodPost, "/v1/rooms/{room_id}/join", api.Handler(joinRoom(service)))
	router.Method(http.MethodPost, "/v1/rooms/{room_id}/leave", api.Handler(leaveRoom(service)))
	router.Method(http.MethodGet, "/v1/rooms/{room_id}/members", api.Handler(listMembers(service)))
}

// createRoom handles POST /v1/rooms
func createRoom(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		var input CreateRoomInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		// Name is validated before any database call.
		input.Name = strings.TrimSpace(input.Name)
		if input.Name == "" {
			return apperrors.NewValidationError("name is required", nil)
		}
		if utf8.RuneCountInString(input.Name) > MaxRoomNameLength {
			return apperrors.NewValidationError("name must be at most 100 characters", map[string]any{
				"max_length": MaxRoomNameLength,
			})
		}
		input.Description = strings.TrimSpace(input.Description)
		input.CoverImage = strings.TrimSpace(input.CoverImage)

		room, err := service.Create(user.ID, input)
		if err != nil {
			return apperrors.NewInternalError("Failed to create room")
		}

		return api.WriteResource(w, http.StatusCreated, formatRoom(room, ""))
	}
}

// listRooms handles GET /v1/rooms
func listRooms(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomList, err := service.List(user.ID)
		if err != nil {
			return apperrors.NewInternalError("Failed to list rooms")
		}

		formatted := make([]map[string]any, 0, len(roomList))
		for i := range roomList {
			formatted = append(formatted, formatRoom(&roomList[i], ""))
		}

		return api.WriteList(w, "/v1/rooms", formatted, false)
	}
}

// getRoom handles GET /v1/rooms/{room_id}
func getRoom(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomID := chi.URLParam(r, "room_id")
		room, access, err := service.Get(user.ID, roomID)
		if err != nil {
			return mapRoomError(err, roomID)
		}

		return api.WriteResource(w, http.StatusOK, formatRoom(room, access))
	}
}

// joinRoom handles POST /v1/rooms/{room_id}/join
func joinRoom(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomID := chi.URLParam(r, "room_id")
		if err := service.Join(user.ID, roomID); err != nil {
			if err == ErrRoomPrivate {
				return apperrors.NewForbiddenError("Private rooms can only be joined by their creator", apperrors.ErrorCodeRoomPrivate)
			}
			return mapRoomError(err, roomID)
		}

		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object": "room_join",
			"joined": true,
		})
	}
}

// leaveRoom handles POST /v1/rooms/{room_id}/leave
func leaveRoom(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomID := chi.URLParam(r, "room_id")
		if err := service.Leave(user.ID, roomID); err != nil {
			return mapRoomError(err, roomID)
		}

		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object": "room_leave",
			"left":   true,
		})
	}
}

// listMembers handles GET /v1/rooms/{room_id}/members
func listMembers(service *Service) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		roomID := chi.URLParam(r, "room_id")
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		if limit < 1 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		members, hasMore, err := service.Members(user.ID, roomID, limit, offset)
		if err != nil {
			return mapRoomError(err, roomID)
		}

		formatted := make([]map[string]any, 0, len(members))
		for _, member := range members {
			entry := map[string]any{
				"object":       api.ObjectRoomMember,
				"id":           member.ID,
				"room_id":      member.RoomID,
				"user_id":      member.UserID,
				"display_name": member.DisplayName,
				"joined_at":    api.RFC3339Millis(member.JoinedAt),
			}
			if member.AvatarURL != nil && *member.AvatarURL != "" {
				entry["avatar_url"] = *member.AvatarURL
			}
			formatted = append(formatted, entry)
		}

		return api.WriteList(w, "/v1/rooms/"+roomID+"/members", formatted, hasMore)
	}
}

func mapRoomError(err error, roomID string) error {
	switch err {
	case ErrRoomNotFound:
		return apperrors.NewNotFoundResource("room", roomID)
	case ErrRoomPrivate:
		return apperrors.NewForbiddenError("You do not have access to this room", apperrors.ErrorCodeRoomPrivate)
	default:
		return apperrors.NewInternalError("Room lookup failed")
	}
}

func formatRoom(room *Room, access Access) map[string]any {
	payload := map[string]any{
		"object":     api.ObjectRoom,
		"id":         room.ID,
		"name":       room.Name,
		"is_private": room.IsPrivate,
		"created_by": room.CreatedBy,
		"created_at": api.RFC3339Millis(room.CreatedAt),
		"updated_at": api.RFC3339Millis(room.UpdatedAt),
	}
	if room.Description != nil && *room.Description != "" {
		payload["description"] = *room.Description
	}
	if room.CoverImage != nil && *room.CoverImage != "" {
		payload["cover_image"] = *room.CoverImage
	}
	if access != "" {
		payload["access"] = string(access)
	}
	return payload
}

func queryInt(r *http.Request, key string, fallback int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
