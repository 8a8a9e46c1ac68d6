package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/harmonyapp/harmony/internal/config"
)

var (
	// ErrNotLinked is returned when a profile has no Spotify credentials.
	ErrNotLinked = errors.New("spotify account not linked")
	// ErrTokenExpired is returned on a 401 from the Spotify API; the account
	// must be re-linked.
	ErrTokenExpired = errors.New("spotify token expired")
)

// Client is an HTTP client for the Spotify Web API, authenticating each call
// with the linked credentials of the acting profile.
type Client struct {
	oauthConfig *oauth2.Config
	creds       *CredentialRepository
	httpClient  *http.Client
	baseURL     string
	logger      *log.Logger
}

// NewClient creates a new Spotify client.
func NewClient(cfg config.Config, creds *CredentialRepository, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		oauthConfig: NewOAuthConfig(cfg),
		creds:       creds,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.SpotifyTimeoutMs) * time.Millisecond},
		baseURL:     cfg.SpotifyAPIURL,
		logger:      logger,
	}
}

// NewOAuthConfig builds the oauth2 configuration for the account-link flow.
func NewOAuthConfig(cfg config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURL:  cfg.SpotifyRedirectURI,
		Scopes: []string{
			"streaming",
			"user-read-email",
			"user-read-playback-state",
			"user-modify-playback-state",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.SpotifyAccountsURL + "/authorize",
			TokenURL: cfg.SpotifyAccountsURL + "/api/token",
		},
	}
}

// AccessToken returns a valid access token for the profile, refreshing and
// persisting it when expired. Returns ErrNotLinked when no credentials exist.
func (c *Client) AccessToken(ctx context.Context, userID string) (string, error) {
	stored, err := c.creds.GetToken(userID)
	if err != nil {
		return "", err
	}
	if stored == nil {
		return "", ErrNotLinked
	}

	source := c.oauthConfig.TokenSource(ctx, stored)
	token, err := source.Token()
	if err != nil {
		// Only a rejected refresh grant means the link is dead; a network
		// failure on the way to the token endpoint is not.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("refresh spotify token: %w", err)
	}

	if token.AccessToken != stored.AccessToken {
		if err := c.creds.SaveToken(userID, token); err != nil {
			c.logger.Printf("Failed to persist refreshed token for %s: %v", userID, err)
		}
	}

	return token.AccessToken, nil
}

// Search queries the Spotify catalog for tracks, albums and artists.
func (c *Client) Search(ctx context.Context, userID, query string) (*SearchResults, error) {
	if query == "" {
		return &SearchResults{Tracks: []Track{}, Albums: []Album{}, Artists: []Artist{}}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track,album,artist")
	params.Set("limit", "10")

	var resp searchResponse
	if err := c.getJSON(ctx, userID, "/v1/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	results := &SearchResults{Tracks: []Track{}, Albums: []Album{}, Artists: []Artist{}}
	if resp.Tracks != nil {
		results.Tracks = resp.Tracks.Items
	}
	if resp.Albums != nil {
		results.Albums = resp.Albums.Items
	}
	if resp.Artists != nil {
		results.Artists = resp.Artists.Items
	}
	return results, nil
}

// GetTrack fetches a single track by Spotify id.
func (c *Client) GetTrack(ctx context.Context, userID, trackID string) (*Track, error) {
	var track Track
	if err := c.getJSON(ctx, userID, "/v1/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// StartPlayback starts playback of the given URIs on a specific device.
// Spotify responds 204 on success.
func (c *Client) StartPlayback(ctx context.Context, userID string, input StartPlaybackInput) error {
	token, err := c.AccessToken(ctx, userID)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/v1/me/player/play"
	if input.DeviceID != "" {
		endpoint += "?device_id=" + url.QueryEscape(input.DeviceID)
	}

	body := map[string]any{"uris": input.URIs}
	if input.PositionMs > 0 {
		body["position_ms"] = input.PositionMs
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrTokenExpired
	default:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("start playback failed: status %d, body: %s", resp.StatusCode, string(raw))
	}
}

func (c *Client) getJSON(ctx context.Context, userID, path string, out any) error {
	token, err := c.AccessToken(ctx, userID)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrTokenExpired
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("spotify api call failed: status %d, body: %s", resp.StatusCode, string(raw))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
