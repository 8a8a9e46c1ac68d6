package rooms

import "time"

// Access describes how the caller may see a room.
type Access string

const (
	AccessPublic         Access = "public"
	AccessPrivateMember  Access = "private-member"
	AccessPrivateCreator Access = "private-creator"
)

// MaxRoomNameLength is the longest accepted room name after trimming.
const MaxRoomNameLength = 100

// Room is a shared listening session.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CoverImage  *string   `json:"cover_image,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member is a room membership row joined with the member's profile.
type Member struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// CreateRoomInput contains the input for creating a room.
type CreateRoomInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image"`
	IsPrivate   bool   `json:"is_private"`
}
