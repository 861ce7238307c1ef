package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestMigrationsFS(t *testing.T) {
	migrations, err := MigrationsFS()
	require.NoError(t, err)

	latest, err := LatestMigrationVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)
}

func TestMigrateUpDown(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer db.Close()

	migrations, err := MigrationsFS()
	require.NoError(t, err)

	version, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(migrations))
	assert.True(t, tableExists(t, db, "classification_runs"))

	version, dirty, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// A second up is a no-op.
	require.NoError(t, db.MigrateUp(migrations))

	require.NoError(t, db.MigrateDown(migrations))
	version, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.True(t, tableExists(t, db, "classification_runs"))

	require.NoError(t, db.MigrateDown(migrations))
	assert.False(t, tableExists(t, db, "classification_runs"))
}

func TestLatestMigrationVersion_Empty(t *testing.T) {
	_, err := LatestMigrationVersion(fstest.MapFS{})
	assert.Error(t, err)
}

func TestMigrateUp_NilFS(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "nil.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, db.MigrateUp(nil))
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	db1, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := NewDB(path)
	require.NoError(t, err)
	defer db2.Close()
	assert.True(t, tableExists(t, db2, "classification_runs"))
}
