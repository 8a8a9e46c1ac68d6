package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the base server configuration.
type Config struct {
	Host         string
	Port         string
	SQLiteDBPath string
	Env          string

	JWTSecret                string
	JWTAccessTokenExpirySec  int
	JWTRefreshTokenExpirySec int

	// Spotify OAuth settings. All three are required at startup: the track
	// resolver, search, and playback control are unusable without a linked
	// Spotify account.
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string
	SpotifyAPIURL       string
	SpotifyAccountsURL  string
	SpotifyTimeoutMs    int

	// LinkStateTTLSec is how long a pending OAuth link state stays valid.
	LinkStateTTLSec int

	// MaintenanceSchedule is a cron expression for the cleanup job.
	MaintenanceSchedule string

	// PlaybackPingIntervalSec is the websocket keepalive interval.
	PlaybackPingIntervalSec int
}

// Load reads configuration from environment variables with defaults.
// Missing or malformed required values are a startup error.
func Load() (Config, error) {
	cfg := Config{
		Host:                     envString("HOST", "0.0.0.0"),
		Port:                     envString("PORT", "8080"),
		SQLiteDBPath:             envString("SQLITE_DB_PATH", "./data/harmony.db"),
		Env:                      envString("APP_ENV", "development"),
		JWTSecret:                envString("JWT_SECRET", ""),
		JWTAccessTokenExpirySec:  envInt("JWT_ACCESS_TOKEN_EXPIRY", 3600),
		JWTRefreshTokenExpirySec: envInt("JWT_REFRESH_TOKEN_EXPIRY", 2592000),
		SpotifyClientID:          envString("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret:      envString("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyRedirectURI:       envString("SPOTIFY_REDIRECT_URI", ""),
		SpotifyAPIURL:            envString("SPOTIFY_API_URL", "https://api.spotify.com"),
		SpotifyAccountsURL:       envString("SPOTIFY_ACCOUNTS_URL", "https://accounts.spotify.com"),
		SpotifyTimeoutMs:         envInt("SPOTIFY_TIMEOUT_MS", 10000),
		LinkStateTTLSec:          envInt("LINK_STATE_TTL_SECONDS", 600),
		MaintenanceSchedule:      envString("MAINTENANCE_SCHEDULE", "0 4 * * *"),
		PlaybackPingIntervalSec:  envInt("PLAYBACK_PING_INTERVAL_SECONDS", 30),
	}

	if len(strings.TrimSpace(cfg.JWTSecret)) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if cfg.SpotifyClientID == "" {
		return Config{}, fmt.Errorf("SPOTIFY_CLIENT_ID is required")
	}
	if cfg.SpotifyClientSecret == "" {
		return Config{}, fmt.Errorf("SPOTIFY_CLIENT_SECRET is required")
	}
	if cfg.SpotifyRedirectURI == "" {
		return Config{}, fmt.Errorf("SPOTIFY_REDIRECT_URI is required")
	}
	if !strings.HasPrefix(cfg.SpotifyRedirectURI, "http://") && !strings.HasPrefix(cfg.SpotifyRedirectURI, "https://") {
		return Config{}, fmt.Errorf("SPOTIFY_REDIRECT_URI must be an absolute URL")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
