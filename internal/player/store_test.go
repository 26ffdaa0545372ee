package player

import (
	"context"
	"os"
	"testing"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQueue() []models.QueuedTrack {
	t := tr("a")
	t.Meta = map[string]models.MetaValue{"year": models.MetaInt(1999)}
	return []models.QueuedTrack{
		{ID: "q1", Track: t, Playing: true},
		{ID: "q2", Track: tr("b")},
	}
}

func exerciseStore(t *testing.T, store QueueStore) {
	t.Helper()
	ctx := context.Background()
	id := "store-test-" + shared.GenerateID()

	empty, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Save(ctx, id, sampleQueue()))
	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].ID)
	assert.True(t, got[0].Playing)
	year, ok := got[0].Track.Meta["year"].Int()
	assert.True(t, ok)
	assert.Equal(t, int64(1999), year)

	require.NoError(t, store.Clear(ctx, id))
	got, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = store.Load(ctx, "")
	assert.ErrorIs(t, err, shared.ErrMissingArgument)
}

func TestMemoryQueueStore(t *testing.T) {
	exerciseStore(t, NewMemoryQueueStore())

	t.Run("saved queue is copied", func(t *testing.T) {
		store := NewMemoryQueueStore()
		q := sampleQueue()
		require.NoError(t, store.Save(context.Background(), "p", q))
		q[0].ID = "mutated"

		got, err := store.Load(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "q1", got[0].ID)
	})
}

func TestRedisCodec(t *testing.T) {
	assert.Equal(t, "medley:queue:kitchen", queueKey("kitchen"))

	raw, err := encodeQueue(sampleQueue())
	require.NoError(t, err)
	got, err := decodeQueue(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, queueURIs(got))

	_, err = decodeQueue([]byte("{not json"))
	assert.ErrorIs(t, err, shared.ErrDecode)
}

func TestRedisQueueStore(t *testing.T) {
	addr := os.Getenv("MEDLEY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MEDLEY_TEST_REDIS_ADDR not set")
	}

	store, err := OpenRedisQueueStore(context.Background(), shared.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestOpenRedisQueueStoreRequiresAddr(t *testing.T) {
	_, err := OpenRedisQueueStore(context.Background(), shared.RedisConfig{})
	assert.ErrorIs(t, err, shared.ErrMissingConfig)
}
