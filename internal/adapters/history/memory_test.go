package history_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/adapters/history"
)

func TestMemoryStoreGetUnseen(t *testing.T) {
	store := history.NewMemoryStore(zap.NewNop())
	rec, err := store.Get(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemoryStoreUpsertLifecycle(t *testing.T) {
	store := history.NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	first := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	rec, created, err := store.Upsert(ctx, "alice@example.com", first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, rec.MessageCount)
	assert.Equal(t, first, rec.FirstSeen)

	rec, created, err = store.Upsert(ctx, "alice@example.com", second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, rec.MessageCount)
	assert.Equal(t, first, rec.FirstSeen)
	assert.Equal(t, second, rec.LastSeen)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := history.NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	rec, _, err := store.Upsert(ctx, "alice@example.com", now)
	require.NoError(t, err)
	rec.MessageCount = 999

	fresh, err := store.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.MessageCount)
}

func TestMemoryStoreConcurrentUpserts(t *testing.T) {
	store := history.NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	createdCount := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := store.Upsert(ctx, "burst@example.com", time.Now())
			assert.NoError(t, err)
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	creations := 0
	for created := range createdCount {
		if created {
			creations++
		}
	}
	assert.Equal(t, 1, creations)

	rec, err := store.Get(ctx, "burst@example.com")
	require.NoError(t, err)
	assert.Equal(t, n, rec.MessageCount)
}
