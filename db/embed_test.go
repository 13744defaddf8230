package db_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ometra-Hela/Alize/db"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(db.Migrations, db.MigrationsDir+"/*.sql")
	require.NoError(t, err)
	require.Len(t, files, 3)

	for _, name := range files {
		raw, err := fs.ReadFile(db.Migrations, name)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(string(raw), "-- +goose Up"), name)
		assert.Contains(t, string(raw), "-- +goose Down", name)
	}
}
