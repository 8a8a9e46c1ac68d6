package auth

import (
	"errors"
	"log"
	"strings"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service provides profile registration and credential checks.
type Service struct {
	logger   *log.Logger
	profiles *ProfileRepository
}

// NewService creates a new auth service.
func NewService(dbPair DBPair, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		logger:   logger,
		profiles: NewProfileRepository(dbPair),
	}
}

// Profiles exposes the underlying repository for other packages.
func (s *Service) Profiles() *ProfileRepository { return s.profiles }

// Register creates a profile with a bcrypt password hash.
func (s *Service) Register(email, displayName, password string) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.Create(email, displayName, string(hash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		s.logger.Printf("Failed to create profile: %v", err)
		return nil, err
	}

	s.logger.Printf("Registered profile %s (%s)", profile.DisplayName, profile.ID)
	return profile, nil
}

// Authenticate verifies credentials and returns the matching profile.
func (s *Service) Authenticate(email, password string) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	profile, err := s.profiles.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash()), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return profile, nil
}

// GetProfile retrieves a profile by id. Returns nil when absent.
func (s *Service) GetProfile(id string) (*Profile, error) {
	return s.profiles.GetByID(id)
}

// UpdateAvatar stores a new avatar URL for the profile and returns the
// updated row. A nil URL clears the avatar.
func (s *Service) UpdateAvatar(id string, avatarURL *string) (*Profile, error) {
	if err := s.profiles.UpdateAvatar(id, avatarURL); err != nil {
		return nil, err
	}
	return s.profiles.GetByID(id)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
