package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email string) *models.User {
	return &models.User{
		ID:           uuid.New().String(),
		Name:         "Alex Example",
		Email:        email,
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhash",
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	require.NoError(t, repo.Create(newUser("alex@example.com")))

	err := repo.Create(newUser("alex@example.com"))
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	user := newUser("alex@example.com")
	require.NoError(t, repo.Create(user))

	found, err := repo.FindByEmail("alex@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByEmail("nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_DeleteCascadesSessions(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)

	user := newUser("alex@example.com")
	require.NoError(t, users.Create(user))

	session := &models.Session{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Create(session))

	require.NoError(t, users.Delete(user.ID))

	_, err := sessions.FindByToken(session.Token)
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = users.Delete(user.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSessionRepository_ExpiredTokenIsNotFound(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	session := &models.Session{
		Token:     uuid.New().String(),
		UserID:    uuid.New().String(),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, repo.Create(session))

	_, err := repo.FindByToken(session.Token)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSessionRepository_DeleteUnknownTokenIsNoop(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	assert.NoError(t, repo.Delete("does-not-exist"))
}

func TestSettingsRepository_DefaultsToOperational(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))

	settings, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, models.StatusOperational, settings.SystemStatus)
}

func TestSettingsRepository_SetStatus(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))

	require.NoError(t, repo.SetStatus(models.StatusMaintenance))

	settings, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, models.StatusMaintenance, settings.SystemStatus)

	err = repo.SetStatus("broken")
	assert.ErrorIs(t, err, models.ErrValidation)
}
