package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/storage"
)

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.Store.Seed = true
	conf.Store.DataFile = filepath.Join(t.TempDir(), "data.json")

	store, err := storage.Open(ctx, conf)
	require.NoError(t, err)
	assert.Equal(t, core.StoreMemory, store.Engine)
	assert.Nil(t, store.SQL)

	students, err := store.Students.QueryStudents(ctx, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, students)
	require.NoError(t, store.Close())

	// the snapshot is reloaded and seeding does not duplicate rows
	reopened, err := storage.Open(ctx, conf)
	require.NoError(t, err)
	again, err := reopened.Students.QueryStudents(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, again, len(students))
}

func TestOpen_UnknownEngine(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Store.Engine = "mongo"

	_, err := storage.Open(context.Background(), conf)
	assert.ErrorIs(t, err, storage.ErrUnknownEngine)
}
