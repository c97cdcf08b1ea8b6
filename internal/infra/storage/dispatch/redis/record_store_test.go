package redis

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/infra/storage"
	"github.com/ahrav/handyhire/internal/infra/storage/dispatch/storetest"
)

func TestRecordStore(t *testing.T) {
	client, cleanup := storage.SetupRedisContainer(t)
	defer cleanup()

	storetest.Run(t, func(t *testing.T) dispatch.RecordStore {
		// A fresh prefix per subtest keeps the suites isolated.
		return NewRecordStore(client, "test-"+uuid.NewString(), storage.NoOpTracer())
	})
}

func TestRecordStore_QuerySkipsDanglingIndexEntries(t *testing.T) {
	client, cleanup := storage.SetupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRecordStore(client, "", storage.NoOpTracer())

	rec := storetest.NewWorker(t, "sami")
	require.NoError(t, store.Create(ctx, rec))
	require.NoError(t, client.SAdd(ctx, store.indexKey(), uuid.NewString()).Err())

	filter, err := dispatch.EligibleWorkersFilter("Plumber")
	require.NoError(t, err)
	got, err := store.Query(ctx, filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestRecordStore_CorruptDocument(t *testing.T) {
	client, cleanup := storage.SetupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRecordStore(client, "", storage.NoOpTracer())

	id := uuid.New()
	require.NoError(t, client.Set(ctx, store.recordKey(id), "{not json", 0).Err())

	_, err := store.Get(ctx, id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, dispatch.ErrRecordNotFound)
}

func TestRecordStore_CreateIndexesAtomically(t *testing.T) {
	client, cleanup := storage.SetupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRecordStore(client, "test-"+uuid.NewString(), storage.NoOpTracer())

	rec := storetest.NewWorker(t, "sami")
	require.NoError(t, store.Create(ctx, rec))

	indexed, err := client.SIsMember(ctx, store.indexKey(), rec.ID.String()).Result()
	require.NoError(t, err)
	assert.True(t, indexed)

	dup := rec.Clone()
	dup.Username = "impostor"
	assert.ErrorIs(t, store.Create(ctx, dup), dispatch.ErrRecordExists)

	members, err := client.SCard(ctx, store.indexKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), members)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "sami", got.Username)
	assert.Equal(t, int64(1), got.Version)
}
