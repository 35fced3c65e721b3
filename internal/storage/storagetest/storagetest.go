// Package storagetest opens throwaway databases for tests.
package storagetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Gopher0727/occult/config"
	"github.com/Gopher0727/occult/internal/storage"
	logger "github.com/Gopher0727/occult/middleware/log"
)

// NewSQLite returns a migrated database private to t. It lives in a temp
// file so that a connection discarded by a cancelled transaction does not
// take the data with it.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "occult.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		LogLevel: "silent",
	}
	db, err := storage.Open(cfg, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))

	t.Cleanup(func() { _ = storage.Close(db) })
	return db
}
