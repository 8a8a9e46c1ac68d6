package playback

import (
	"database/sql"
	"errors"
	"time"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// timeFormat is fixed-width UTC so lexicographic comparison in SQL matches
// chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Repository handles database operations for playback states.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Get retrieves the playback state for a room. Returns nil when no state has
// been written yet; rooms have no pre-created row.
func (r *Repository) Get(roomID string) (*State, error) {
	row := r.reader.QueryRow(`
		SELECT room_id, current_song_id, is_playing, current_position, updated_at
		FROM playback_states
		WHERE room_id = ?
	`, roomID)

	var state State
	var currentSongID sql.NullString
	var isPlaying int
	var updatedAt string

	err := row.Scan(&state.RoomID, &currentSongID, &isPlaying, &state.CurrentPosition, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if currentSongID.Valid {
		state.CurrentSongID = &currentSongID.String
	}
	state.IsPlaying = isPlaying != 0
	if t, parseErr := time.Parse(timeFormat, updatedAt); parseErr == nil {
		state.UpdatedAt = t
	}

	return &state, nil
}

// Upsert writes the playback state for a room. The conflict clause only
// applies the update when the incoming timestamp is not older than the
// stored one, so a late-arriving stale write cannot regress state.
// Returns whether the write was applied.
func (r *Repository) Upsert(roomID string, input UpdateInput, updatedAt time.Time) (bool, error) {
	result, err := r.writer.Exec(`
		INSERT INTO playback_states (room_id, current_song_id, is_playing, current_position, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			current_song_id = excluded.current_song_id,
			is_playing = excluded.is_playing,
			current_position = excluded.current_position,
			updated_at = excluded.updated_at
		WHERE excluded.updated_at >= playback_states.updated_at
	`, roomID, input.CurrentSongID, boolToInt(input.IsPlaying), input.CurrentPosition,
		updatedAt.UTC().Format(timeFormat))
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
