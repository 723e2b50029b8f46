package cachesvc

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisCache needs a live server, e.g. TEST_REDIS_URL=redis://localhost:6379/15
func TestRedisCache(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache(client)
	prefix := "test:" + uuid.New().String() + ":"
	defer func() { _ = c.DeletePrefix(ctx, prefix) }()

	var got []lesson
	found, err := c.Get(ctx, prefix+"a", &got)
	require.NoError(t, err)
	assert.False(t, found)

	orig := []lesson{{Room: "B2", Start: "08:00"}}
	for i := 0; i < scanCount+5; i++ {
		require.NoError(t, c.Set(ctx, prefix+uuid.New().String(), orig, time.Minute))
	}
	require.NoError(t, c.Set(ctx, prefix+"a", orig, time.Minute))

	found, err = c.Get(ctx, prefix+"a", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, orig, got)

	require.NoError(t, c.DeletePrefix(ctx, prefix))
	keys, err := client.Keys(ctx, prefix+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}
