package database

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestDB opens a throwaway sqlite database under t.TempDir(). The
// connection pool is pinned to a single connection so concurrent test
// writers serialize instead of tripping over sqlite's file lock.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := New(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}
