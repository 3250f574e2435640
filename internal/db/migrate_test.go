package db

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n))
	return n > 0
}

func columnExists(t *testing.T, db *DB, table, column string) bool {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		if name == column {
			return true
		}
	}
	return false
}

func TestEmbeddedMigrations(t *testing.T) {
	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)

	latest, err := LatestMigrationVersion(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)
}

func TestNewDB_MigratesToLatest(t *testing.T) {
	db, _ := setupTestDB(t)
	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)

	version, dirty, err := db.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	assert.True(t, tableExists(t, db, "vad_runs"))
	assert.True(t, tableExists(t, db, "vad_rows"))
	assert.True(t, columnExists(t, db, "vad_rows", "status"))
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := NewDB(path)
	require.NoError(t, err)
	runID, err := first.RecordRun("persisted", nil, testRows())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewDB(path)
	require.NoError(t, err)
	defer second.Close()

	rows, err := second.RunRows(runID)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestMigrateDownAndUp(t *testing.T) {
	db, _ := setupTestDB(t)
	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)

	require.NoError(t, db.MigrateDown(migrationsFS))
	version, _, err := db.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, columnExists(t, db, "vad_rows", "status"))

	require.NoError(t, db.MigrateUp(migrationsFS))
	assert.True(t, columnExists(t, db, "vad_rows", "status"))
}

func TestMigrateVersion_Fresh(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)
	version, dirty, err := db.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestNewMigrate_NilFS(t *testing.T) {
	db, _ := setupTestDB(t)
	assert.Error(t, db.MigrateUp(nil))
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    string
	}{
		{name: "no action", args: nil, wantErr: true, want: "Usage"},
		{name: "help", args: []string{"help"}, want: "Commands:"},
		{name: "up", args: []string{"up"}, want: "All migrations applied"},
		{name: "status", args: []string{"status"}, want: "Current version: 2"},
		{name: "down", args: []string{"down"}, want: "Rolled back"},
		{name: "status after down", args: []string{"status"}, want: "Current version: 1"},
		{name: "force without version", args: []string{"force"}, wantErr: true},
		{name: "force bad version", args: []string{"force", "two"}, wantErr: true},
		{name: "force", args: []string{"force", "1"}, want: "Forced migration version to 1"},
		{name: "unknown", args: []string{"sideways"}, wantErr: true, want: "Usage"},
	}
	// Cases share one database and run in order.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RunMigrateCommand(tt.args, path, &out)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.want != "" {
				assert.True(t, strings.Contains(out.String(), tt.want), "output %q should contain %q", out.String(), tt.want)
			}
		})
	}
}
