package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM database connection
type DB struct {
	*gorm.DB
	logger *slog.Logger
}

// New creates a new database connection and migrates the schema
func New(dbPath string, log *slog.Logger) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Keep GORM quiet; we log through slog. TranslateError turns driver
	// unique-constraint failures into gorm.ErrDuplicatedKey.
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connection established", "path", dbPath)

	if err := db.AutoMigrate(
		&models.ServerRequest{},
		&models.GameCapacity{},
		&models.User{},
		&models.Session{},
		&models.Settings{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate schemas: %w", err)
	}

	log.Info("Database schemas migrated successfully")

	return &DB{
		DB:     db,
		logger: log,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// wrapStorage tags a failed persistence call so callers can match it with
// errors.Is(err, models.ErrStorageUnavailable) while keeping the cause
func wrapStorage(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(models.ErrStorageUnavailable, err))
}
