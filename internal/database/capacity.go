package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"gorm.io/gorm"
)

// CapacityRepository provides database operations for the slot ledger.
// Claim and release are single conditional updates, never read-then-write
// pairs, so two admins approving concurrently cannot both take the last slot.
type CapacityRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewCapacityRepository creates a new capacity repository
func NewCapacityRepository(db *DB) *CapacityRepository {
	return &CapacityRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Ensure creates the capacity row for a game if it does not exist yet.
// Existing rows keep their configured totals.
func (r *CapacityRepository) Ensure(game models.Game, totalSlots int) error {
	row := models.GameCapacity{Game: game, TotalSlots: totalSlots}
	result := r.db.Where("game = ?", game).FirstOrCreate(&row)
	if result.Error != nil {
		r.logger.Error("Failed to ensure capacity row", "game", game, "error", result.Error)
		return wrapStorage("ensure capacity", result.Error)
	}
	return nil
}

// Get retrieves the capacity row for a game
func (r *CapacityRepository) Get(game models.Game) (*models.GameCapacity, error) {
	var row models.GameCapacity
	result := r.db.First(&row, "game = ?", game)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("capacity for %s: %w", game, models.ErrNotFound)
		}
		r.logger.Error("Failed to get capacity", "game", game, "error", result.Error)
		return nil, wrapStorage("get capacity", result.Error)
	}
	return &row, nil
}

// List retrieves all capacity rows
func (r *CapacityRepository) List() ([]models.GameCapacity, error) {
	var rows []models.GameCapacity
	result := r.db.Order("game").Find(&rows)
	if result.Error != nil {
		r.logger.Error("Failed to list capacity", "error", result.Error)
		return nil, wrapStorage("list capacity", result.Error)
	}
	return rows, nil
}

// TryClaim atomically takes one slot for the game. The WHERE clause is the
// compare half of the compare-and-swap: zero affected rows means either the
// game is unknown or every slot is claimed.
func (r *CapacityRepository) TryClaim(game models.Game) error {
	result := r.db.Model(&models.GameCapacity{}).
		Where("game = ? AND claimed_slots < total_slots", game).
		UpdateColumn("claimed_slots", gorm.Expr("claimed_slots + 1"))
	if result.Error != nil {
		r.logger.Error("Failed to claim slot", "game", game, "error", result.Error)
		return wrapStorage("claim slot", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.Get(game); err != nil {
			return err
		}
		return fmt.Errorf("game %s: %w", game, models.ErrCapacityExhausted)
	}
	r.logger.Debug("Slot claimed", "game", game)
	return nil
}

// Release returns one slot for the game. The claimed count is floored at
// zero so a double release cannot masquerade as capacity growth.
func (r *CapacityRepository) Release(game models.Game) error {
	result := r.db.Model(&models.GameCapacity{}).
		Where("game = ? AND claimed_slots > 0", game).
		UpdateColumn("claimed_slots", gorm.Expr("claimed_slots - 1"))
	if result.Error != nil {
		r.logger.Error("Failed to release slot", "game", game, "error", result.Error)
		return wrapStorage("release slot", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warn("Slot release ignored, nothing claimed", "game", game)
	} else {
		r.logger.Debug("Slot released", "game", game)
	}
	return nil
}

// SetTotal resizes a game's slot inventory. Shrinking below the currently
// claimed count is refused so claimed <= total never needs repair.
func (r *CapacityRepository) SetTotal(game models.Game, totalSlots int) error {
	if totalSlots < 0 {
		return models.NewValidationError("total_slots must not be negative")
	}
	result := r.db.Model(&models.GameCapacity{}).
		Where("game = ? AND claimed_slots <= ?", game, totalSlots).
		UpdateColumn("total_slots", totalSlots)
	if result.Error != nil {
		r.logger.Error("Failed to set capacity", "game", game, "error", result.Error)
		return wrapStorage("set capacity", result.Error)
	}
	if result.RowsAffected == 0 {
		row, err := r.Get(game)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %d slots already claimed for %s", models.ErrConflict, row.ClaimedSlots, game)
	}
	r.logger.Info("Capacity updated", "game", game, "total_slots", totalSlots)
	return nil
}
