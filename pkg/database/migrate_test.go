package database

import (
	"io/fs"
	"path"
	"testing"

	"watchlist/pkg/database/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"00001_create_users.sql", "00002_create_movies.sql"}, names)
}

func TestCollect(t *testing.T) {
	files, err := Collect()
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, int64(1), files[0].Version)
	assert.Equal(t, "00001_create_users.sql", path.Base(files[0].Source))
	assert.Equal(t, int64(2), files[1].Version)
}
