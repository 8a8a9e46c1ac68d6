package server

import (
	"context"
	"log"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/auth"
	"github.com/harmonyapp/harmony/internal/config"
	"github.com/harmonyapp/harmony/internal/db"
	"github.com/harmonyapp/harmony/internal/maintenance"
	"github.com/harmonyapp/harmony/internal/openapi"
	"github.com/harmonyapp/harmony/internal/playback"
	"github.com/harmonyapp/harmony/internal/queue"
	"github.com/harmonyapp/harmony/internal/rooms"
	"github.com/harmonyapp/harmony/internal/songs"
	"github.com/harmonyapp/harmony/internal/spotify"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// Options controls server wiring.
type Options struct {
	// DisableMaintenance skips the background cleanup runner (for tests).
	DisableMaintenance bool
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)
	router.Use(auth.Middleware(cfg))

	registerHealthRoutes(router)
	openapi.RegisterRoutes(router)

	credentialRepo := spotify.NewCredentialRepository(dbPair)
	spotifyClient := spotify.NewClient(cfg, credentialRepo, nil)

	authService := auth.NewService(dbPair, nil)
	auth.RegisterRoutes(router, authService, cfg, credentialRepo)
	spotify.RegisterRoutes(router, spotifyClient, credentialRepo, cfg)

	roomsService := rooms.NewService(dbPair, nil)
	rooms.RegisterRoutes(router, roomsService)

	songsService := songs.NewService(dbPair, nil)
	songs.RegisterRoutes(router, songsService)

	queueService := queue.NewService(dbPair, roomsService, songsService, nil)
	queue.RegisterRoutes(router, queueService)

	hub := playback.NewHub(time.Duration(cfg.PlaybackPingIntervalSec)*time.Second, nil)
	playbackService := playback.NewService(dbPair, roomsService, hub, nil)
	playback.RegisterRoutes(router, playbackService)

	var runner *maintenance.Runner
	if !options.DisableMaintenance {
		runner, err = maintenance.NewRunner(cfg.MaintenanceSchedule, credentialRepo, queueService.Repo(), nil)
		if err != nil {
			_ = dbPair.Close()
			return nil, nil, err
		}
		runner.Start()
	}

	shutdown := func(ctx context.Context) error {
		if runner != nil {
			runner.Stop()
		}
		if ctx == nil {
			ctx = context.Background()
		}
		return dbPair.Close()
	}

	return router, shutdown, nil
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "harmony",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
