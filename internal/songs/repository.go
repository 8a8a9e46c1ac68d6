package songs

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

// Repository handles database operations for songs.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// GetByID retrieves a song by id. Returns nil when absent.
func (r *Repository) GetByID(id string) (*Song, error) {
	row := r.reader.QueryRow(`
		SELECT id, title, artist, duration, thumbnail, spotify_id, spotify_uri, created_at
		FROM songs
		WHERE id = ?
	`, id)
	return scanSong(row)
}

// GetBySpotifyID retrieves a song by its Spotify id. Returns nil when absent.
func (r *Repository) GetBySpotifyID(spotifyID string) (*Song, error) {
	row := r.reader.QueryRow(`
		SELECT id, title, artist, duration, thumbnail, spotify_id, spotify_uri, created_at
		FROM songs
		WHERE spotify_id = ?
	`, spotifyID)
	return scanSong(row)
}

// Insert creates a song if no row with the same Spotify id exists, then
// returns the canonical row either way. The conflict clause makes concurrent
// resolves of the same track converge on a single row.
func (r *Repository) Insert(song Song) (*Song, error) {
	if song.ID == "" {
		song.ID = uuid.New().String()
	}

	_, err := r.writer.Exec(`
		INSERT INTO songs (id, title, artist, duration, thumbnail, spotify_id, spotify_uri, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spotify_id) DO NOTHING
	`, song.ID, song.Title, song.Artist, song.Duration, song.Thumbnail, song.SpotifyID, song.SpotifyURI, nowISO())
	if err != nil {
		return nil, err
	}

	return r.GetBySpotifyID(song.SpotifyID)
}

func scanSong(row *sql.Row) (*Song, error) {
	var song Song
	var artist, thumbnail, spotifyURI sql.NullString
	var createdAt string

	err := row.Scan(&song.ID, &song.Title, &artist, &song.Duration, &thumbnail, &song.SpotifyID, &spotifyURI, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if artist.Valid {
		song.Artist = &artist.String
	}
	if thumbnail.Valid {
		song.Thumbnail = &thumbnail.String
	}
	if spotifyURI.Valid {
		song.SpotifyURI = &spotifyURI.String
	}
	song.CreatedAt = parseTime(createdAt)

	return &song, nil
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
