package rooms

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository handles database operations for rooms and memberships.
// Uses separate reader/writer connections for optimal SQLite concurrency.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Create inserts a new room.
func (r *Repository) Create(input CreateRoomInput, creatorID string) (*Room, error) {
	id := uuid.New().String()
	now := nowISO()

	var description, coverImage any
	if input.Description != "" {
		description = input.Description
	}
	if input.CoverImage != "" {
		coverImage = input.CoverImage
	}

	_, err := r.writer.Exec(`
		INSERT INTO rooms (id, name, description, cover_image, is_private, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.Name, description, coverImage, boolToInt(input.IsPrivate), creatorID, now, now)
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

// GetByID retrieves a room by id. Returns nil when absent.
func (r *Repository) GetByID(id string) (*Room, error) {
	row := r.reader.QueryRow(`
		SELECT id, name, description, cover_image, is_private, created_by, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`, id)
	return scanRoom(row)
}

// ListVisible returns the union of public rooms and rooms the user created or
// joined, newest first. The join matches at most one membership row per room,
// so no deduplication is needed.
func (r *Repository) ListVisible(userID string) ([]Room, error) {
	rows, err := r.reader.Query(`
		SELECT r.id, r.name, r.description, r.cover_image, r.is_private, r.created_by, r.created_at, r.updated_at
		FROM rooms r
		LEFT JOIN room_members m ON m.room_id = r.id AND m.user_id = ?
		WHERE r.is_private = 0 OR r.created_by = ? OR m.user_id IS NOT NULL
		ORDER BY r.created_at DESC, r.rowid DESC
	`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Room
	for rows.Next() {
		room, err := scanRoomRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *room)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if result == nil {
		result = []Room{}
	}

	return result, nil
}

// AddMember inserts a membership row. A duplicate (room, user) pair fails
// with a unique constraint error; callers treat that as already-joined.
func (r *Repository) AddMember(roomID, userID string) error {
	id := uuid.New().String()
	_, err := r.writer.Exec(`
		INSERT INTO room_members (id, room_id, user_id, joined_at)
		VALUES (?, ?, ?, ?)
	`, id, roomID, userID, nowISO())
	return err
}

// RemoveMember deletes a membership row. Removing an absent row is not an error.
func (r *Repository) RemoveMember(roomID, userID string) error {
	_, err := r.writer.Exec(`
		DELETE FROM room_members
		WHERE room_id = ? AND user_id = ?
	`, roomID, userID)
	return err
}

// IsMember reports whether the user has a membership row for the room.
func (r *Repository) IsMember(roomID, userID string) (bool, error) {
	var count int
	err := r.reader.QueryRow(`
		SELECT COUNT(*) FROM room_members
		WHERE room_id = ? AND user_id = ?
	`, roomID, userID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListMembers returns a page of members joined with their profiles.
func (r *Repository) ListMembers(roomID string, limit, offset int) ([]Member, error) {
	rows, err := r.reader.Query(`
		SELECT m.id, m.room_id, m.user_id, p.display_name, p.avatar_url, m.joined_at
		FROM room_members m
		JOIN profiles p ON p.id = m.user_id
		WHERE m.room_id = ?
		ORDER BY m.joined_at ASC, m.rowid ASC
		LIMIT ? OFFSET ?
	`, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var member Member
		var avatarURL sql.NullString
		var joinedAt string
		if err := rows.Scan(&member.ID, &member.RoomID, &member.UserID, &member.DisplayName, &avatarURL, &joinedAt); err != nil {
			return nil, err
		}
		if avatarURL.Valid {
			member.AvatarURL = &avatarURL.String
		}
		member.JoinedAt = parseTime(joinedAt)
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if members == nil {
		members = []Member{}
	}

	return members, nil
}

// CountMembers returns the total membership count for a room.
func (r *Repository) CountMembers(roomID string) (int, error) {
	var count int
	err := r.reader.QueryRow(`
		SELECT COUNT(*) FROM room_members WHERE room_id = ?
	`, roomID).Scan(&count)
	return count, err
}

func scanRoom(row *sql.Row) (*Room, error) {
	var room Room
	var description, coverImage sql.NullString
	var isPrivate int
	var createdAt, updatedAt string

	err := row.Scan(&room.ID, &room.Name, &description, &coverImage, &isPrivate, &room.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	applyRoomNullables(&room, description, coverImage, isPrivate, createdAt, updatedAt)
	return &room, nil
}

func scanRoomRows(rows *sql.Rows) (*Room, error) {
	var room Room
	var description, coverImage sql.NullString
	var isPrivate int
	var createdAt, updatedAt string

	err := rows.Scan(&room.ID, &room.Name, &description, &coverImage, &isPrivate, &room.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	applyRoomNullables(&room, description, coverImage, isPrivate, createdAt, updatedAt)
	return &room, nil
}

func applyRoomNullables(room *Room, description, coverImage sql.NullString, isPrivate int, createdAt, updatedAt string) {
	if description.Valid {
		room.Description = &description.String
	}
	if coverImage.Valid {
		room.CoverImage = &coverImage.String
	}
	room.IsPrivate = isPrivate != 0
	room.CreatedAt = parseTime(createdAt)
	room.UpdatedAt = parseTime(updatedAt)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	return time.Time{}
}
