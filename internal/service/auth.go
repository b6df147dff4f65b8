package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// sessionTTL bounds how long a bearer token stays valid
const sessionTTL = 7 * 24 * time.Hour

// AuthService manages accounts and bearer sessions. Passwords are stored as
// bcrypt hashes only.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	logger   *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, sessions SessionStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates an account and opens a session for it
func (s *AuthService) Register(ctx context.Context, payload *models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(payload.Name)
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if name == "" || email == "" {
		return nil, models.NewValidationError("name and email are required")
	}
	if len(payload.Password) < 8 {
		return nil, models.NewValidationError("password must be at least 8 characters")
	}

	if _, err := s.users.FindByEmail(email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User registered", "id", user.ID, "email", user.Email)
	return s.openSession(user)
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, payload *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))

	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.users.Update(user); err != nil {
		s.logger.WarnContext(ctx, "Failed to record last login", "id", user.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "User logged in", "id", user.ID, "email", user.Email)
	return s.openSession(user)
}

// Logout invalidates a session token; unknown tokens are a no-op
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(token)
}

// Authenticate resolves a bearer token to its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", models.ErrUnauthorized)
	}
	session, err := s.sessions.FindByToken(token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid or expired token", models.ErrUnauthorized)
		}
		return nil, err
	}
	user, err := s.users.FindByID(session.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", models.ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin seeds (or repairs) the admin account from configuration.
// Nothing happens when the password is unset.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if password == "" {
		s.logger.WarnContext(ctx, "ADMIN_PASSWORD not set, skipping admin account seed")
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(email)
	switch {
	case err == nil:
		if user.IsAdmin {
			return nil
		}
		user.IsAdmin = true
		return s.users.Update(user)
	case errors.Is(err, models.ErrNotFound):
		hash, herr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if herr != nil {
			return fmt.Errorf("failed to hash admin password: %w", herr)
		}
		admin := &models.User{
			ID:           uuid.New().String(),
			Name:         "Administrator",
			Email:        email,
			PasswordHash: string(hash),
			IsAdmin:      true,
		}
		if cerr := s.users.Create(admin); cerr != nil {
			return cerr
		}
		s.logger.InfoContext(ctx, "Admin account seeded", "email", email)
		return nil
	default:
		return err
	}
}

// ListUsers returns all accounts
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.FindAll()
}

// GetUser returns one account by id
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.FindByID(id)
}

// UpdateUser edits an account's name and email
func (s *AuthService) UpdateUser(ctx context.Context, id string, payload *models.UpdateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(payload.Name)
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if name == "" || email == "" {
		return nil, models.NewValidationError("name and email are required")
	}

	user, err := s.users.FindByID(id)
	if err != nil {
		return nil, err
	}
	if other, err := s.users.FindByEmail(email); err == nil && other.ID != user.ID {
		return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	user.Name = name
	user.Email = email
	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. The caller is responsible for purging the
// account's requests first (see LifecycleService.PurgeOwner).
func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(id)
}

func (s *AuthService) openSession(user *models.User) (*models.AuthResponse, error) {
	session := &models.Session{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(sessionTTL),
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}
