package database

import (
	"sync"
	"testing"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacityRepository_EnsureKeepsExistingTotals(t *testing.T) {
	repo := NewCapacityRepository(newTestDB(t))

	require.NoError(t, repo.Ensure(models.GameMinecraft, 5))
	require.NoError(t, repo.SetTotal(models.GameMinecraft, 8))

	// A restart re-runs Ensure with the configured default
	require.NoError(t, repo.Ensure(models.GameMinecraft, 5))

	row, err := repo.Get(models.GameMinecraft)
	require.NoError(t, err)
	assert.Equal(t, 8, row.TotalSlots)
}

func TestCapacityRepository_Get_UnknownGame(t *testing.T) {
	repo := NewCapacityRepository(newTestDB(t))

	_, err := repo.Get(models.GameTerraria)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCapacityRepository_TryClaimUntilExhausted(t *testing.T) {
	repo := NewCapacityRepository(newTestDB(t))
	require.NoError(t, repo.Ensure(models.GameTerraria, 2))

	require.NoError(t, repo.TryClaim(models.GameTerraria))
	require.NoError(t, repo.TryClaim(models.GameTerraria))

	err := repo.TryClaim(models.GameTerraria)
	assert.ErrorIs(t, err, models.ErrCapacityExhausted)

	row, err := repo.Get(models.GameTerraria)
	require.NoError(t, err)
	assert.Equal(t, 2, row.ClaimedSlots)
	assert.Zero(t, row.Available())
}

func TestCapacityRepository_TryClaim_UnknownGame(t *testing.T) {
	repo := NewCapacityRepository(newTestDB(t))

	err := repo.TryClaim(models.GameSatisfactory)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCapacityRepository_ReleaseFlooredAtZero(t *testing.T) {
	repo := NewCapacityRepository(newTestDB(t))
	require.NoError(t, repo.Ensure(models.GameMinecraft, 3))

	require.NoError(t, repo.TryClaim(models.GameMinecraft))
	require.NoError(t, repo.Release(models.GameMinecraft))

	// Double release must not create phantom capacity
	require.NoError(t, repo.Release(models.GameMinecraft))

	row, err := repo.Get(models.GameMinecraft)
	require.NoError(t, err)
	assert.Zero(t, row.ClaimedSlots)
	assert.Equal(t, 3, row.Available())
}

func TestCapacityRepository_SetTotal(t *testing.T) {
	repo := NewCapacityRepository(newTestDB(t))
	require.NoError(t, repo.Ensure(models.GameMinecraft, 5))
	require.NoError(t, repo.TryClaim(models.GameMinecraft))
	require.NoError(t, repo.TryClaim(models.GameMinecraft))

	// Growing and shrinking down to the claimed count are fine
	require.NoError(t, repo.SetTotal(models.GameMinecraft, 10))
	require.NoError(t, repo.SetTotal(models.GameMinecraft, 2))

	// Shrinking below the claimed count is refused
	err := repo.SetTotal(models.GameMinecraft, 1)
	assert.ErrorIs(t, err, models.ErrConflict)

	err = repo.SetTotal(models.GameMinecraft, -1)
	assert.ErrorIs(t, err, models.ErrValidation)

	row, err := repo.Get(models.GameMinecraft)
	require.NoError(t, err)
	assert.Equal(t, 2, row.TotalSlots)
	assert.Equal(t, 2, row.ClaimedSlots)
}

func TestCapacityRepository_ConcurrentClaims(t *testing.T) {
	repo := NewCapacityRepository(newTestDB(t))
	require.NoError(t, repo.Ensure(models.GameSatisfactory, 3))

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.TryClaim(models.GameSatisfactory)
		}()
	}
	wg.Wait()
	close(results)

	claimed := 0
	for err := range results {
		if err == nil {
			claimed++
		} else {
			assert.ErrorIs(t, err, models.ErrCapacityExhausted)
		}
	}
	assert.Equal(t, 3, claimed, "exactly one claim per slot")

	row, err := repo.Get(models.GameSatisfactory)
	require.NoError(t, err)
	assert.Equal(t, 3, row.ClaimedSlots)
}
