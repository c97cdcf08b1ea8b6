package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/infra/storage/dispatch/storetest"
)

func TestRecordStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) dispatch.RecordStore { return NewRecordStore() })
}

func TestRecordStore_ReturnsCopies(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	rec := storetest.NewWorker(t, "sami")
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	got.Username = "mutated"

	again, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "sami", again.Username)
}
