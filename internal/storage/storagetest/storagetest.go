// Package storagetest opens throwaway SQLite databases for store tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"mmss/internal/storage"
)

// SQLite returns a migrated database in the test's temp dir, closed on cleanup.
func SQLite(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.Migrate(context.Background(), db))
	return db
}
