package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aeliadev/cazan/internal/checksum"
	"github.com/aeliadev/cazan/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	c, err := Open(filepath.Join(t.TempDir(), ".cazan", "cache.db"))
	require.NoError(t, err, "failed to open test cache")

	t.Cleanup(func() {
		c.Close()
	})
	return c
}

var square = []geometry.Triangle{
	{{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 9, Y: 9}},
	{{X: 0, Y: 0}, {X: 9, Y: 9}, {X: 0, Y: 9}},
}

func TestCache_PutGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	d := checksum.Bytes([]byte("sprite"))

	_, ok, err := c.Get(ctx, d, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, d, 3, square))

	got, ok, err := c.Get(ctx, d, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, square, got)

	// A different epsilon is a different entry.
	_, ok, err = c.Get(ctx, d, 1.5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_PutReplaces(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	d := checksum.Bytes([]byte("sprite"))

	require.NoError(t, c.Put(ctx, d, 3, square))
	require.NoError(t, c.Put(ctx, d, 3, square[:1]))

	got, ok, err := c.Get(ctx, d, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 1)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCache_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	d := checksum.Bytes([]byte("sprite"))

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, d, 3, square))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, d, 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_SchemaMismatchResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, checksum.Bytes([]byte("a")), 3, square))
	_, err = c.db.Exec("PRAGMA user_version = 999")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCache_Prune(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, checksum.Bytes([]byte("a")), 3, square))

	removed, err := c.PruneOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	removed, err = c.PruneOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := checksum.Bytes([]byte{byte(i)})
			if err := c.Put(ctx, d, 3, square); err != nil {
				t.Errorf("Put(%d): %v", i, err)
				return
			}
			if _, ok, err := c.Get(ctx, d, 3); err != nil || !ok {
				t.Errorf("Get(%d) = %v, %v", i, ok, err)
			}
		}(i)
	}
	wg.Wait()

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}
