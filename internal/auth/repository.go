package auth

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

// Profile is a registered user.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	passwordHash string
}

// PasswordHash exposes the stored hash for credential checks.
func (p *Profile) PasswordHash() string { return p.passwordHash }

// ProfileRepository handles database operations for profiles.
type ProfileRepository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(dbPair DBPair) *ProfileRepository {
	return &ProfileRepository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Create inserts a new profile. Returns sql.ErrNoRows-free errors only; a
// duplicate email surfaces as a sqlite unique constraint error.
func (r *ProfileRepository) Create(email, displayName, passwordHash string) (*Profile, error) {
	id := uuid.New().String()
	now := nowISO()

	_, err := r.writer.Exec(`
		INSERT INTO profiles (id, email, display_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, email, displayName, passwordHash, now, now)
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

// GetByID retrieves a profile by id. Returns nil when absent.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	row := r.reader.QueryRow(`
		SELECT id, email, display_name, password_hash, avatar_url, created_at, updated_at
		FROM profiles
		WHERE id = ?
	`, id)
	return scanProfile(row)
}

// GetByEmail retrieves a profile by email. Returns nil when absent.
func (r *ProfileRepository) GetByEmail(email string) (*Profile, error) {
	row := r.reader.QueryRow(`
		SELECT id, email, display_name, password_hash, avatar_url, created_at, updated_at
		FROM profiles
		WHERE email = ?
	`, email)
	return scanProfile(row)
}

// UpdateAvatar sets the avatar URL for a profile.
func (r *ProfileRepository) UpdateAvatar(id string, avatarURL *string) error {
	now := nowISO()
	result, err := r.writer.Exec(`
		UPDATE profiles
		SET avatar_url = ?, updated_at = ?
		WHERE id = ?
	`, avatarURL, now, id)
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

func scanProfile(row *sql.Row) (*Profile, error) {
	var profile Profile
	var avatarURL sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.DisplayName,
		&profile.passwordHash,
		&avatarURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if avatarURL.Valid {
		profile.AvatarURL = &avatarURL.String
	}
	profile.CreatedAt = parseTime(createdAt)
	profile.UpdatedAt = parseTime(updatedAt)

	return &profile, nil
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
