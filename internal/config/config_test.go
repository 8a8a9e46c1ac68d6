package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-key-minimum-32-chars-long")
	t.Setenv("SPOTIFY_CLIENT_ID", "client-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "client-secret")
	t.Setenv("SPOTIFY_REDIRECT_URI", "http://localhost:8080/v1/auth/spotify/callback")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 3600, cfg.JWTAccessTokenExpirySec)
	require.Equal(t, "https://api.spotify.com", cfg.SpotifyAPIURL)
	require.Equal(t, "0 4 * * *", cfg.MaintenanceSchedule)
	require.Equal(t, 600, cfg.LinkStateTTLSec)
	require.Equal(t, 30, cfg.PlaybackPingIntervalSec)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY", "120")
	t.Setenv("MAINTENANCE_SCHEDULE", "*/15 * * * *")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 120, cfg.JWTAccessTokenExpirySec)
	require.Equal(t, "*/15 * * * *", cfg.MaintenanceSchedule)
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRequiresSpotifySettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")

	_, err := Load()
	require.ErrorContains(t, err, "SPOTIFY_CLIENT_SECRET")
}

func TestLoadRejectsRelativeRedirectURI(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SPOTIFY_REDIRECT_URI", "/v1/auth/spotify/callback")

	_, err := Load()
	require.ErrorContains(t, err, "absolute URL")
}

func TestLoadIgnoresMalformedInts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3600, cfg.JWTAccessTokenExpirySec)
}
