package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindful-resolve/internal/model"
)

func newTestCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionCache(client, 30*time.Second, 5*time.Second, time.Minute), srv
}

func TestSessionCacheRoundTrip(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	_, hit, err := c.GetSession(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetSession(ctx, &model.Session{SessionCode: "AB12CD", Partner1Perspective: "I felt ignored"}))

	got, hit, err := c.GetSession(ctx, "AB12CD")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "I felt ignored", got.Partner1Perspective)

	srv.FastForward(31 * time.Second)
	_, hit, err = c.GetSession(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSessionCacheDirtyMarker(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	dirty, err := c.IsDirty(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, c.MarkDirty(ctx, "AB12CD"))
	dirty, err = c.IsDirty(ctx, "AB12CD")
	require.NoError(t, err)
	assert.True(t, dirty)

	srv.FastForward(6 * time.Second)
	dirty, err = c.IsDirty(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestSessionCacheGenerationLock(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	token, ok, err := c.AcquireGenerationLock(ctx, "AB12CD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = c.AcquireGenerationLock(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseGenerationLock(ctx, "AB12CD", token))
	_, ok, err = c.AcquireGenerationLock(ctx, "AB12CD")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionCacheReleaseKeepsOtherHoldersLock(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	stale, ok, err := c.AcquireGenerationLock(ctx, "AB12CD")
	require.NoError(t, err)
	require.True(t, ok)

	// the first holder outlives the lock TTL and someone else takes it
	srv.FastForward(61 * time.Second)
	current, ok, err := c.AcquireGenerationLock(ctx, "AB12CD")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, stale, current)

	require.NoError(t, c.ReleaseGenerationLock(ctx, "AB12CD", stale))
	_, ok, err = c.AcquireGenerationLock(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, ok, "stale release must not drop the current lock")

	require.NoError(t, c.ReleaseGenerationLock(ctx, "AB12CD", current))
	_, ok, err = c.AcquireGenerationLock(ctx, "AB12CD")
	require.NoError(t, err)
	assert.True(t, ok)
}
