package queue

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

// Repository handles database operations for queue entries.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// InsertAtTail appends an entry with the next position for the room.
// The position is computed inside the insert itself, on the single writer
// connection, so concurrent enqueues cannot observe the same maximum and
// collide; positions start at 0 for an empty queue.
func (r *Repository) InsertAtTail(roomID, songID, addedBy string) (*Entry, error) {
	id := uuid.New().String()
	now := nowISO()

	_, err := r.writer.Exec(`
		INSERT INTO queue_entries (id, room_id, song_id, position, added_by, added_at)
		SELECT ?, ?, ?, COALESCE(MAX(position) + 1, 0), ?, ?
		FROM queue_entries
		WHERE room_id = ?
	`, id, roomID, songID, addedBy, now, roomID)
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

// GetByID retrieves a queue entry by id. Returns nil when absent.
func (r *Repository) GetByID(id string) (*Entry, error) {
	row := r.reader.QueryRow(`
		SELECT id, room_id, song_id, position, added_by, added_at
		FROM queue_entries
		WHERE id = ?
	`, id)

	var entry Entry
	var addedAt string
	err := row.Scan(&entry.ID, &entry.RoomID, &entry.SongID, &entry.Position, &entry.AddedBy, &addedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	entry.AddedAt = parseTime(addedAt)

	return &entry, nil
}

// ListWithSongs returns the room's queue in ascending position order, joined
// with the song rows. The inner join drops entries whose song no longer
// resolves.
func (r *Repository) ListWithSongs(roomID string) ([]QueuedSong, error) {
	rows, err := r.reader.Query(`
		SELECT q.id, q.position, q.added_by, q.added_at,
		       s.id, s.title, s.artist, s.duration, s.thumbnail, s.spotify_id, s.spotify_uri, s.created_at
		FROM queue_entries q
		JOIN songs s ON s.id = q.song_id
		WHERE q.room_id = ?
		ORDER BY q.position ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []QueuedSong
	for rows.Next() {
		var item QueuedSong
		var artist, thumbnail, spotifyURI sql.NullString
		var addedAt, songCreatedAt string

		err := rows.Scan(
			&item.EntryID, &item.Position, &item.AddedBy, &addedAt,
			&item.Song.ID, &item.Song.Title, &artist, &item.Song.Duration,
			&thumbnail, &item.Song.SpotifyID, &spotifyURI, &songCreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if artist.Valid {
			item.Song.Artist = &artist.String
		}
		if thumbnail.Valid {
			item.Song.Thumbnail = &thumbnail.String
		}
		if spotifyURI.Valid {
			item.Song.SpotifyURI = &spotifyURI.String
		}
		item.AddedAt = parseTime(addedAt)
		item.Song.CreatedAt = parseTime(songCreatedAt)

		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if result == nil {
		result = []QueuedSong{}
	}

	return result, nil
}

// Delete removes a queue entry.
func (r *Repository) Delete(id string) error {
	result, err := r.writer.Exec("DELETE FROM queue_entries WHERE id = ?", id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// DeleteOrphans removes entries whose song row no longer exists.
// Returns the number of rows removed.
func (r *Repository) DeleteOrphans() (int64, error) {
	result, err := r.writer.Exec(`
		DELETE FROM queue_entries
		WHERE song_id NOT IN (SELECT id FROM songs)
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
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
