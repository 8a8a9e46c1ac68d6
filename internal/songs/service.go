package songs

import (
	"errors"
	"log"
	"math"
	"strings"

	"github.com/harmonyapp/harmony/internal/spotify"
)

// ErrInvalidTrack is returned when the track payload is missing its id or name.
var ErrInvalidTrack = errors.New("track data is missing id or name")

// Service resolves external catalog tracks into canonical song records.
type Service struct {
	logger *log.Logger
	repo   *Repository
}

// NewService creates a new song resolver service.
func NewService(dbPair DBPair, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		logger: logger,
		repo:   NewRepository(dbPair),
	}
}

// Repo exposes the underlying repository for other packages.
func (s *Service) Repo() *Repository { return s.repo }

// Resolve finds or creates the song record for a Spotify track.
// Calling it twice with the same track id yields the same row; at most one
// insert ever happens per Spotify id.
func (s *Service) Resolve(track *spotify.Track) (*Song, error) {
	if track == nil || track.ID == "" || track.Name == "" {
		return nil, ErrInvalidTrack
	}

	existing, err := s.repo.GetBySpotifyID(track.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	song := Song{
		Title:     track.Name,
		Duration:  int(math.Round(float64(track.DurationMs) / 1000.0)),
		SpotifyID: track.ID,
	}

	if len(track.Artists) > 0 {
		names := make([]string, 0, len(track.Artists))
		for _, artist := range track.Artists {
			names = append(names, artist.Name)
		}
		joined := strings.Join(names, ", ")
		song.Artist = &joined
	}

	if len(track.Album.Images) > 0 && track.Album.Images[0].URL != "" {
		thumbnail := track.Album.Images[0].URL
		song.Thumbnail = &thumbnail
	}

	if track.URI != "" {
		uri := track.URI
		song.SpotifyURI = &uri
	}

	created, err := s.repo.Insert(song)
	if err != nil {
		s.logger.Printf("Failed to create song for track %s: %v", track.ID, err)
		return nil, err
	}

	return created, nil
}

// Get retrieves a song by id. Returns nil when absent.
func (s *Service) Get(id string) (*Song, error) {
	return s.repo.GetByID(id)
}
