// Package auth handles logging in, registering and deleting accounts.
package auth

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/diamondburned/chika/internal/catalog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum length of a new password.
const MinPasswordLength = 4

var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongPassword    = errors.New("wrong password")
	ErrEmailTaken       = errors.New("email is already taken")
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.Errorf("password must be at least %d characters", MinPasswordLength)
)

type Service struct {
	db   *catalog.Database
	cost int
}

func NewService(db *catalog.Database) *Service {
	return &Service{db: db, cost: bcrypt.DefaultCost}
}

// HashPassword generates a bcrypt hash of the password.
func (s *Service) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(b), nil
}

// Login checks the credentials and returns the user.
func (s *Service) Login(email, password string) (*catalog.User, error) {
	if !IsEmail(email) {
		return nil, ErrInvalidEmail
	}

	user, ok := s.db.User(email)
	if !ok {
		return nil, ErrUserNotFound
	}

	legacy, ok := checkPassword(user.PasswordHash, password)
	if !ok {
		return nil, ErrWrongPassword
	}

	if legacy {
		s.upgradeHash(user, password)
	}

	return user, nil
}

// upgradeHash replaces a legacy hash with a bcrypt one. Failures are only
// logged, since the login itself succeeded.
func (s *Service) upgradeHash(user *catalog.User, password string) {
	hash, err := s.HashPassword(password)
	if err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("failed to upgrade password hash")
		return
	}

	user.PasswordHash = hash

	if err := s.db.AddUser(user); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("failed to save upgraded password hash")
		return
	}

	log.Info().Str("email", user.Email).Msg("upgraded legacy password hash")
}

// checkPassword compares the password against the hash. Legacy MD5 hex hashes
// are accepted too, in which case legacy is true.
func checkPassword(hash, password string) (legacy, ok bool) {
	if isLegacyHash(hash) {
		sum := md5.Sum([]byte(password))
		got := hex.EncodeToString(sum[:])
		return true, subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(hash))) == 1
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return false, err == nil
}

func isLegacyHash(hash string) bool {
	if len(hash) != md5.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// Register creates a new user with an empty library.
func (s *Service) Register(email, username, password, repeatPassword string) (*catalog.User, error) {
	if !IsEmail(email) {
		return nil, ErrInvalidEmail
	}

	if _, ok := s.db.User(email); ok {
		return nil, ErrEmailTaken
	}

	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}

	if password != repeatPassword {
		return nil, ErrPasswordMismatch
	}

	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	library := &catalog.Library{
		ID:        uuid.NewString(),
		Songs:     []string{},
		Albums:    []string{},
		Playlists: []string{},
	}

	if err := s.db.AddLibrary(library); err != nil {
		return nil, errors.Wrap(err, "failed to create library")
	}

	user := &catalog.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		LibraryID:    library.ID,
	}

	if err := s.db.AddUser(user); err != nil {
		return nil, errors.Wrap(err, "failed to save user")
	}

	return user, nil
}

// DeleteAccount deletes the user. Their library and playlists are kept.
func (s *Service) DeleteAccount(email string) error {
	return s.db.DeleteUser(email)
}
