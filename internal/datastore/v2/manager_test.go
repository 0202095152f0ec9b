package v2

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alliancehq/alliance-manager/internal/conf"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "alliance.db")

	mgr, err := Open(Config{Type: "sqlite", Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	require.NoError(t, mgr.Initialize())
	assert.Equal(t, "sqlite", mgr.Dialect())

	for _, model := range entities.All() {
		assert.True(t, mgr.DB().Migrator().HasTable(model), "missing table for %T", model)
	}

	// Migrating twice is a no-op.
	require.NoError(t, mgr.Initialize())
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(Config{Type: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")

	_, err = Open(Config{Type: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty DSN")
}

func TestConfigFromSettings(t *testing.T) {
	s := &conf.Settings{Database: conf.DatabaseSettings{
		Type:   "mysql",
		SQLite: conf.SQLiteSettings{Path: "x.db"},
		MySQL:  conf.MySQLSettings{Host: "db", Port: 3306, Username: "u", Password: "p", Database: "d"},
	}}

	cfg := ConfigFromSettings(s)
	assert.Equal(t, "mysql", cfg.Type)
	assert.Equal(t, "x.db", cfg.Path)
	assert.Equal(t, "u:p@tcp(db:3306)/d?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN)
}
