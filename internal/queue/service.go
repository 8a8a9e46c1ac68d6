package queue

import (
	"errors"
	"log"

	"github.com/harmonyapp/harmony/internal/rooms"
	"github.com/harmonyapp/harmony/internal/songs"
	"github.com/harmonyapp/harmony/internal/spotify"
)

var (
	// ErrEntryNotFound is returned when a queue entry id resolves to nothing.
	ErrEntryNotFound = errors.New("queue entry not found")
	// ErrNotAllowed is returned when the caller may not remove an entry.
	ErrNotAllowed = errors.New("not allowed to remove this entry")
)

// Service maintains the ordered queue of songs per room.
type Service struct {
	logger   *log.Logger
	repo     *Repository
	roomsSvc *rooms.Service
	songsSvc *songs.Service
}

// NewService creates a new queue service.
func NewService(dbPair DBPair, roomsSvc *rooms.Service, songsSvc *songs.Service, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		logger:   logger,
		repo:     NewRepository(dbPair),
		roomsSvc: roomsSvc,
		songsSvc: songsSvc,
	}
}

// Repo exposes the underlying repository for maintenance jobs.
func (s *Service) Repo() *Repository { return s.repo }

// Enqueue resolves the track to a canonical song and appends it to the
// room's queue. Room visibility is checked first; positions start at 0.
func (s *Service) Enqueue(userID, roomID string, track *spotify.Track) (*QueuedSong, error) {
	if err := s.roomsSvc.CanAccess(userID, roomID); err != nil {
		return nil, err
	}

	song, err := s.songsSvc.Resolve(track)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.InsertAtTail(roomID, song.ID, userID)
	if err != nil {
		s.logger.Printf("Failed to enqueue song %s in room %s: %v", song.ID, roomID, err)
		return nil, err
	}

	s.logger.Printf("Enqueued %q in room %s at position %d", song.Title, roomID, entry.Position)

	return &QueuedSong{
		Song:     *song,
		EntryID:  entry.ID,
		Position: entry.Position,
		AddedBy:  entry.AddedBy,
		AddedAt:  entry.AddedAt,
	}, nil
}

// List returns the room's queue in playback order.
func (s *Service) List(userID, roomID string) ([]QueuedSong, error) {
	if err := s.roomsSvc.CanAccess(userID, roomID); err != nil {
		return nil, err
	}

	return s.repo.ListWithSongs(roomID)
}

// Remove deletes a queue entry. Only the member who added the entry or the
// room's creator may remove it.
func (s *Service) Remove(userID, roomID, entryID string) error {
	room, _, err := s.roomsSvc.Get(userID, roomID)
	if err != nil {
		return err
	}

	entry, err := s.repo.GetByID(entryID)
	if err != nil {
		return err
	}
	if entry == nil || entry.RoomID != roomID {
		return ErrEntryNotFound
	}

	if entry.AddedBy != userID && room.CreatedBy != userID {
		return ErrNotAllowed
	}

	return s.repo.Delete(entryID)
}
