package cache

import (
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises the round trip the fetcher relies on for rate-limit blocking.
// Skipped when no memcached instance is reachable.
func TestMemcacheServiceBlockMarkRoundTrip(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")

	if _, err := mc.client.Get("ping"); err != nil && err != memcache.ErrCacheMiss {
		t.Skip("memcached is not available, skipping test")
	}

	key := "fetchblock:https://shop.example/products.json"
	require.NoError(t, mc.Set(key, []byte("blocked"), 2*time.Second))

	value, err := mc.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "blocked", string(value))

	// deleting the mark unblocks the host before the TTL runs out
	require.NoError(t, mc.Delete(key))
	_, err = mc.Get(key)
	assert.ErrorIs(t, err, memcache.ErrCacheMiss)
}
