//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis_RoundTripAndGeneration(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	c, err := NewRedis(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Set(ctx, "read:0:clients", []byte("x"), time.Minute))

	val, ok, err := c.Get(ctx, "read:0:clients")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), val)

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Invalidate(ctx))

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)

	_, ok, err = c.Get(ctx, "read:2:clients")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := c.client.TTL(ctx, "read:0:clients").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl, "old generation entries expire on their own")
}
