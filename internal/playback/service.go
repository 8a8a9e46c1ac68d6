package playback

import (
	"errors"
	"log"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/harmonyapp/harmony/internal/rooms"
)

// ErrUnknownSong is returned when a playback write references a song id that
// does not exist.
var ErrUnknownSong = errors.New("current_song_id does not reference a known song")

// Service owns the per-room playback state and its live subscribers.
type Service struct {
	logger   *log.Logger
	repo     *Repository
	roomsSvc *rooms.Service
	hub      *Hub
	now      func() time.Time
}

// NewService creates a new playback service.
func NewService(dbPair DBPair, roomsSvc *rooms.Service, hub *Hub, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		logger:   logger,
		repo:     NewRepository(dbPair),
		roomsSvc: roomsSvc,
		hub:      hub,
		now:      time.Now,
	}
}

// Get returns the room's playback state, or nil when nothing has been
// written yet.
func (s *Service) Get(userID, roomID string) (*State, error) {
	if err := s.roomsSvc.CanAccess(userID, roomID); err != nil {
		return nil, err
	}

	return s.repo.Get(roomID)
}

// Update writes a full playback snapshot for the room, stamped with the
// server clock. Writes that lose the timestamp race are dropped and the
// stored state is returned instead, so the caller always sees the winner.
func (s *Service) Update(userID, roomID string, input UpdateInput) (*State, bool, error) {
	if err := s.roomsSvc.CanAccess(userID, roomID); err != nil {
		return nil, false, err
	}

	applied, err := s.repo.Upsert(roomID, input, s.now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, false, ErrUnknownSong
		}
		s.logger.Printf("Failed to write playback state for room %s: %v", roomID, err)
		return nil, false, err
	}

	state, err := s.repo.Get(roomID)
	if err != nil {
		return nil, false, err
	}

	if applied && s.hub != nil {
		s.hub.Broadcast(roomID, state)
	} else if !applied {
		s.logger.Printf("Dropped stale playback write for room %s", roomID)
	}

	return state, applied, nil
}

// CanAccess reports whether the caller may watch the room's playback.
func (s *Service) CanAccess(userID, roomID string) error {
	return s.roomsSvc.CanAccess(userID, roomID)
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
