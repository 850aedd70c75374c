// Package auth implements the web-login boundary: user accounts with
// bcrypt password hashes and opaque session tokens held in a TTL'd session
// store. Ownership-gated registry operations resolve their acting user
// through this package before reaching the core.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/pkg/logger"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords,
	// so login failures do not reveal which accounts exist.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNoSession means the presented token is unknown or expired.
	ErrNoSession = errors.New("no active session")
)

// Session is a logged-in user's resolved identity.
type Session struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

// SessionStore holds active sessions. Implemented in memory and on Redis.
type SessionStore interface {
	Put(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// Service handles login, logout and session resolution.
type Service struct {
	users    storage.UserStore
	sessions SessionStore
	ttl      time.Duration
	logger   *logger.Logger
}

// NewService creates a new auth service
func NewService(users storage.UserStore, sessions SessionStore, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		logger:   log,
	}
}

// Login checks the credentials and issues a fresh session token.
func (s *Service) Login(ctx context.Context, name, password string) (*Session, error) {
	user, err := s.users.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		Token:    uuid.New().String(),
		UserID:   user.ID,
		UserName: user.Name,
	}
	if err := s.sessions.Put(ctx, session, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("User logged in", logger.F("user", user.Name))
	return session, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Resolve maps a session token to the acting user. ErrNoSession when the
// token is unknown or expired.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	return s.sessions.Get(ctx, token)
}

// CreateUser provisions a login account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, name, password string) (*models.User, error) {
	if name == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Name: name, PasswordHash: string(hash)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("user %q already exists", name)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
