package rooms

import (
	"errors"
	"log"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrRoomNotFound is returned when a room id resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomPrivate is returned when a private room is neither created by
	// nor shared with the caller.
	ErrRoomPrivate = errors.New("room is private")
)

// Service provides the room directory: creation, visibility and membership.
type Service struct {
	logger *log.Logger
	repo   *Repository
}

// NewService creates a new rooms service.
func NewService(dbPair DBPair, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		logger: logger,
		repo:   NewRepository(dbPair),
	}
}

// Create inserts a room owned by the caller and joins them to it.
// The membership insert is best-effort: the room is created either way.
func (s *Service) Create(userID string, input CreateRoomInput) (*Room, error) {
	room, err := s.repo.Create(input, userID)
	if err != nil {
		s.logger.Printf("Failed to create room: %v", err)
		return nil, err
	}

	if err := s.repo.AddMember(room.ID, userID); err != nil && !isUniqueViolation(err) {
		s.logger.Printf("Failed to add creator %s to room %s: %v", userID, room.ID, err)
	}

	s.logger.Printf("Created room %s (%s)", room.Name, room.ID)
	return room, nil
}

// List returns every room visible to the caller, newest first.
func (s *Service) List(userID string) ([]Room, error) {
	return s.repo.ListVisible(userID)
}

// Get resolves a room and the caller's access to it.
// Visibility priority: public, then membership, then creator.
func (s *Service) Get(userID, roomID string) (*Room, Access, error) {
	room, err := s.repo.GetByID(roomID)
	if err != nil {
		return nil, "", err
	}
	if room == nil {
		return nil, "", ErrRoomNotFound
	}

	if !room.IsPrivate {
		return room, AccessPublic, nil
	}

	isMember, err := s.repo.IsMember(roomID, userID)
	if err != nil {
		return nil, "", err
	}
	if isMember {
		return room, AccessPrivateMember, nil
	}

	if room.CreatedBy == userID {
		return room, AccessPrivateCreator, nil
	}

	return nil, "", ErrRoomPrivate
}

// Join adds the caller to a room. Joining a room twice succeeds without a
// second membership row. Private rooms may only be joined by their creator.
func (s *Service) Join(userID, roomID string) error {
	room, err := s.repo.GetByID(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}

	if room.IsPrivate && room.CreatedBy != userID {
		return ErrRoomPrivate
	}

	if err := s.repo.AddMember(roomID, userID); err != nil {
		if isUniqueViolation(err) {
			// Already a member; treated as success.
			return nil
		}
		s.logger.Printf("Failed to join room %s: %v", roomID, err)
		return err
	}

	return nil
}

// Leave removes the caller's membership. Leaving a room the caller never
// joined succeeds.
func (s *Service) Leave(userID, roomID string) error {
	room, err := s.repo.GetByID(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}

	return s.repo.RemoveMember(roomID, userID)
}

// Members returns a page of room members plus whether more exist.
// Gated by the same visibility rule as Get.
func (s *Service) Members(userID, roomID string, limit, offset int) ([]Member, bool, error) {
	if _, _, err := s.Get(userID, roomID); err != nil {
		return nil, false, err
	}

	members, err := s.repo.ListMembers(roomID, limit, offset)
	if err != nil {
		return nil, false, err
	}

	total, err := s.repo.CountMembers(roomID)
	if err != nil {
		return nil, false, err
	}

	return members, offset+len(members) < total, nil
}

// CanAccess reports whether the caller may see the room at all.
func (s *Service) CanAccess(userID, roomID string) error {
	_, _, err := s.Get(userID, roomID)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
