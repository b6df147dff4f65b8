package database

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"gorm.io/gorm"
)

// UserRepository provides database operations for User
type UserRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Create inserts a new user into the database
func (r *UserRepository) Create(user *models.User) error {
	result := r.db.Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: email already registered", models.ErrConflict)
		}
		r.logger.Error("Failed to create user in database", "error", result.Error)
		return wrapStorage("create user", result.Error)
	}
	r.logger.Debug("User created in database", "id", user.ID, "email", user.Email)
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Failed to find user by ID", "id", id, "error", result.Error)
		return nil, wrapStorage("find user", result.Error)
	}
	return &user, nil
}

// FindByEmail retrieves a user by email
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
		}
		r.logger.Error("Failed to find user by email", "error", result.Error)
		return nil, wrapStorage("find user", result.Error)
	}
	return &user, nil
}

// FindAll retrieves all users, newest first
func (r *UserRepository) FindAll() ([]*models.User, error) {
	var users []*models.User
	result := r.db.Order("created_at DESC, id DESC").Find(&users)
	if result.Error != nil {
		r.logger.Error("Failed to find all users", "error", result.Error)
		return nil, wrapStorage("list users", result.Error)
	}
	return users, nil
}

// Update persists changes to a user
func (r *UserRepository) Update(user *models.User) error {
	result := r.db.Save(user)
	if result.Error != nil {
		r.logger.Error("Failed to update user", "id", user.ID, "error", result.Error)
		return wrapStorage("update user", result.Error)
	}
	r.logger.Debug("User updated in database", "id", user.ID)
	return nil
}

// Delete removes a user and their sessions
func (r *UserRepository) Delete(id string) error {
	result := r.db.Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		r.logger.Error("Failed to delete user", "id", id, "error", result.Error)
		return wrapStorage("delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err := r.db.Delete(&models.Session{}, "user_id = ?", id).Error; err != nil {
		r.logger.Error("Failed to delete user sessions", "id", id, "error", err)
		return wrapStorage("delete sessions", err)
	}
	r.logger.Debug("User deleted from database", "id", id)
	return nil
}

// SessionRepository provides database operations for Session
type SessionRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Create inserts a new session
func (r *SessionRepository) Create(session *models.Session) error {
	result := r.db.Create(session)
	if result.Error != nil {
		r.logger.Error("Failed to create session", "error", result.Error)
		return wrapStorage("create session", result.Error)
	}
	return nil
}

// FindByToken retrieves a live session by its token. Expired sessions are
// reported as not found and removed opportunistically.
func (r *SessionRepository) FindByToken(token string) (*models.Session, error) {
	var session models.Session
	result := r.db.First(&session, "token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session: %w", models.ErrNotFound)
		}
		r.logger.Error("Failed to find session", "error", result.Error)
		return nil, wrapStorage("find session", result.Error)
	}
	if session.Expired(time.Now()) {
		r.db.Delete(&models.Session{}, "token = ?", token)
		return nil, fmt.Errorf("session expired: %w", models.ErrNotFound)
	}
	return &session, nil
}

// Delete removes a session; deleting an unknown token is a no-op
func (r *SessionRepository) Delete(token string) error {
	result := r.db.Delete(&models.Session{}, "token = ?", token)
	if result.Error != nil {
		r.logger.Error("Failed to delete session", "error", result.Error)
		return wrapStorage("delete session", result.Error)
	}
	return nil
}
