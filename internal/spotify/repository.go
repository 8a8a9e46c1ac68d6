package spotify

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// CredentialRepository persists per-profile Spotify OAuth tokens and the
// short-lived link states used during the redirect flow.
type CredentialRepository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(dbPair DBPair) *CredentialRepository {
	return &CredentialRepository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// SaveToken upserts the OAuth token for a profile.
func (r *CredentialRepository) SaveToken(userID string, token *oauth2.Token) error {
	now := nowISO()
	refreshToken := token.RefreshToken

	// Spotify omits the refresh token on refresh grants. Keep the stored one.
	if refreshToken == "" {
		existing, err := r.GetToken(userID)
		if err != nil {
			return err
		}
		if existing != nil {
			refreshToken = existing.RefreshToken
		}
	}

	_, err := r.writer.Exec(`
		INSERT INTO spotify_credentials (user_id, access_token, refresh_token, token_type, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, userID, token.AccessToken, refreshToken, token.TokenType,
		token.Expiry.UTC().Format(time.RFC3339), now, now)
	return err
}

// GetToken loads the OAuth token for a profile. Returns nil when not linked.
func (r *CredentialRepository) GetToken(userID string) (*oauth2.Token, error) {
	row := r.reader.QueryRow(`
		SELECT access_token, refresh_token, token_type, expires_at
		FROM spotify_credentials
		WHERE user_id = ?
	`, userID)

	var accessToken, refreshToken, tokenType, expiresAt string
	err := row.Scan(&accessToken, &refreshToken, &tokenType, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		expiry = time.Time{}
	}

	return &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		Expiry:       expiry,
	}, nil
}

// DeleteToken removes the stored credentials for a profile.
func (r *CredentialRepository) DeleteToken(userID string) error {
	_, err := r.writer.Exec("DELETE FROM spotify_credentials WHERE user_id = ?", userID)
	return err
}

// IsLinked reports whether a profile has stored credentials.
func (r *CredentialRepository) IsLinked(userID string) (bool, error) {
	token, err := r.GetToken(userID)
	if err != nil {
		return false, err
	}
	return token != nil, nil
}

// ==========================================================================
// Link states
// ==========================================================================

// CreateLinkState stores a state nonce for a pending OAuth redirect.
func (r *CredentialRepository) CreateLinkState(state, userID string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := r.writer.Exec(`
		INSERT INTO spotify_link_states (state, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, state, userID, now.Add(ttl).Format(time.RFC3339), now.Format(time.RFC3339))
	return err
}

// ConsumeLinkState resolves and deletes a state nonce.
// Returns the owning user id, or expired=true when past its TTL.
func (r *CredentialRepository) ConsumeLinkState(state string) (userID string, expired bool, err error) {
	row := r.reader.QueryRow(`
		SELECT user_id, expires_at
		FROM spotify_link_states
		WHERE state = ?
	`, state)

	var expiresAt string
	if err := row.Scan(&userID, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	if _, err := r.writer.Exec("DELETE FROM spotify_link_states WHERE state = ?", state); err != nil {
		return "", false, err
	}

	expiry, parseErr := time.Parse(time.RFC3339, expiresAt)
	if parseErr != nil || time.Now().UTC().After(expiry) {
		return "", true, nil
	}

	return userID, false, nil
}

// PruneExpiredLinkStates deletes link states past their TTL.
// Returns the number of rows removed.
func (r *CredentialRepository) PruneExpiredLinkStates() (int64, error) {
	result, err := r.writer.Exec(`
		DELETE FROM spotify_link_states
		WHERE expires_at < ?
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
