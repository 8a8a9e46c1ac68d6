package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harmonyapp/harmony/internal/auth"
	"github.com/harmonyapp/harmony/internal/config"
	"github.com/harmonyapp/harmony/internal/db"
)

func setupTestClient(t *testing.T, apiHandler http.Handler) (*Client, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	profile, err := auth.NewService(dbPair, nil).Register("alice@example.com", "Alice", "password-123")
	require.NoError(t, err)

	api := httptest.NewServer(apiHandler)
	t.Cleanup(api.Close)

	cfg := config.Config{
		SpotifyClientID:     "client-id",
		SpotifyClientSecret: "client-secret",
		SpotifyRedirectURI:  "http://localhost/callback",
		SpotifyAPIURL:       api.URL,
		SpotifyAccountsURL:  api.URL,
		SpotifyTimeoutMs:    2000,
	}

	creds := NewCredentialRepository(dbPair)
	require.NoError(t, creds.SaveToken(profile.ID, &oauth2.Token{
		AccessToken:  "valid-token",
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}))

	return NewClient(cfg, creds, nil), profile.ID
}

func TestSearchParsesResults(t *testing.T) {
	client, userID := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/search", r.URL.Path)
		require.Equal(t, "Bearer valid-token", r.Header.Get("Authorization"))
		require.Equal(t, "radiohead", r.URL.Query().Get("q"))
		require.Equal(t, "track,album,artist", r.URL.Query().Get("type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tracks": {"items": [{"id": "t1", "name": "Creep", "duration_ms": 238000}]},
			"artists": {"items": [{"id": "a1", "name": "Radiohead"}]}
		}`))
	}))

	results, err := client.Search(context.Background(), userID, "radiohead")
	require.NoError(t, err)
	require.Len(t, results.Tracks, 1)
	require.Equal(t, "Creep", results.Tracks[0].Name)
	require.Len(t, results.Artists, 1)
	require.Empty(t, results.Albums)
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	client, userID := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no API call expected for an empty query")
	}))

	results, err := client.Search(context.Background(), userID, "")
	require.NoError(t, err)
	require.Empty(t, results.Tracks)
}

func TestGetTrack(t *testing.T) {
	client, userID := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/tracks/abc123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "abc123",
			"name": "Midnight City",
			"uri": "spotify:track:abc123",
			"duration_ms": 243500,
			"artists": [{"id": "a1", "name": "M83"}],
			"album": {"id": "al1", "name": "Hurry Up, We're Dreaming", "images": [{"url": "https://img/640.jpg"}]}
		}`))
	}))

	track, err := client.GetTrack(context.Background(), userID, "abc123")
	require.NoError(t, err)
	require.Equal(t, "Midnight City", track.Name)
	require.Equal(t, 243500, track.DurationMs)
	require.Len(t, track.Artists, 1)
	require.Equal(t, "https://img/640.jpg", track.Album.Images[0].URL)
}

func TestStartPlayback(t *testing.T) {
	client, userID := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v1/me/player/play", r.URL.Path)
		require.Equal(t, "device-1", r.URL.Query().Get("device_id"))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.StartPlayback(context.Background(), userID, StartPlaybackInput{
		DeviceID: "device-1",
		URIs:     []string{"spotify:track:abc123"},
	})
	require.NoError(t, err)
}

func TestUnauthorizedMapsToTokenExpired(t *testing.T) {
	client, userID := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.GetTrack(context.Background(), userID, "abc123")
	require.ErrorIs(t, err, ErrTokenExpired)

	err = client.StartPlayback(context.Background(), userID, StartPlaybackInput{URIs: []string{"spotify:track:x"}})
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshRejectedMapsToTokenExpired(t *testing.T) {
	client, userID := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/token", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
	}))

	require.NoError(t, client.creds.SaveToken(userID, &oauth2.Token{
		AccessToken:  "stale-token",
		RefreshToken: "revoked-refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	_, err := client.AccessToken(context.Background(), userID)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTransportErrorIsNotTokenExpired(t *testing.T) {
	client, userID := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no API call expected when the token endpoint is down")
	}))

	require.NoError(t, client.creds.SaveToken(userID, &oauth2.Token{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	// Point the refresh at a port nothing listens on.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()
	client.oauthConfig.Endpoint.TokenURL = dead.URL + "/api/token"

	_, err := client.AccessToken(context.Background(), userID)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTokenExpired)
}

func TestUnlinkedProfile(t *testing.T) {
	client, _ := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no API call expected for an unlinked profile")
	}))

	_, err := client.Search(context.Background(), "stranger", "query")
	require.ErrorIs(t, err, ErrNotLinked)
}
