package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/raidline/internal/infrastructure/sqlite"
)

func TestNewDB_CreatesSchemaAndDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "parties.db")

	db, err := sqlite.NewDB(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'parties'`).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "parties", name)
}

func TestNewDB_ReopenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parties.db")

	db, err := sqlite.NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening an already-migrated database must not error.
	db, err = sqlite.NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
