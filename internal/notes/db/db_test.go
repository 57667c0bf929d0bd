package db_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetnotes/internal/notes/config"
	"sheetnotes/internal/notes/db"
)

func TestMigrationsURL(t *testing.T) {
	t.Run("absolute path", func(t *testing.T) {
		dir := t.TempDir()
		url, err := db.MigrationsURL(dir)
		require.NoError(t, err)
		assert.Equal(t, "file://"+dir, url)
	})

	t.Run("relative path", func(t *testing.T) {
		url, err := db.MigrationsURL("migrations/notes")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "file:///"))
		assert.True(t, strings.HasSuffix(url, filepath.Join("migrations", "notes")))
	})
}

func TestNewFailsOnMissingMigrations(t *testing.T) {
	cfg := &config.PostgresConfig{
		Host:          "localhost",
		Port:          5432,
		User:          "postgres",
		Password:      "postgres",
		Database:      "notes",
		MinConn:       1,
		MaxConn:       2,
		MigrationsDir: filepath.Join(t.TempDir(), "missing"),
	}

	database, err := db.New(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, database)
	assert.Contains(t, err.Error(), db.ErrDBMigrations)
}
