package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"yjkwon/offerharvester/logger"
)

// MemcacheService implements CacheService on memcached. The fetcher keeps its
// rate-limit block marks here so a host that answered 429 stays blocked across
// every worker of the process, not just the one that saw the response.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService connects to the memcached instance at serverAddr.
func NewMemcacheService(serverAddr string) *MemcacheService {
	logger.ForCache().Debug().Str("addr", serverAddr).Msg("memcache service ready")
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get returns the value stored under key, memcache.ErrCacheMiss when absent
// or expired. A miss on a fetch-block key means the host is clear to fetch.
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores value under key until expiration elapses. Block marks carry a
// placeholder value; only the key's presence matters.
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes the value stored under key, unblocking a fetch-block key
// before its expiration.
func (m *MemcacheService) Delete(key string) error {
	return m.client.Delete(key)
}
