package database

import (
	"log/slog"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"gorm.io/gorm"
)

// settingsRowID pins the single shared settings record
const settingsRowID = 1

// SettingsRepository provides database operations for the shared settings row
type SettingsRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Get retrieves the settings row, creating it as operational on first use
func (r *SettingsRepository) Get() (*models.Settings, error) {
	row := models.Settings{ID: settingsRowID, SystemStatus: models.StatusOperational}
	result := r.db.Where("id = ?", settingsRowID).FirstOrCreate(&row)
	if result.Error != nil {
		r.logger.Error("Failed to load settings", "error", result.Error)
		return nil, wrapStorage("load settings", result.Error)
	}
	return &row, nil
}

// SetStatus updates the system status
func (r *SettingsRepository) SetStatus(status models.SystemStatus) error {
	if !status.Valid() {
		return models.NewValidationError("unknown system_status: " + string(status))
	}
	if _, err := r.Get(); err != nil {
		return err
	}
	result := r.db.Model(&models.Settings{}).
		Where("id = ?", settingsRowID).
		UpdateColumn("system_status", status)
	if result.Error != nil {
		r.logger.Error("Failed to update settings", "error", result.Error)
		return wrapStorage("update settings", result.Error)
	}
	r.logger.Info("System status updated", "system_status", status)
	return nil
}
