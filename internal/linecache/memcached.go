package linecache

import (
	"errors"
	"log"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcachedTier caches line arrays in an external memcached cluster so
// multiple processes working on the same dataset share one computation.
// Connectivity problems degrade to misses; they never abort resolution.
type MemcachedTier struct {
	client *memcache.Client
}

// NewMemcachedTier connects to the given memcached servers.
func NewMemcachedTier(servers ...string) *MemcachedTier {
	return &MemcachedTier{client: memcache.New(servers...)}
}

func (t *MemcachedTier) Name() string { return "memcached" }

func (t *MemcachedTier) TryGet(key string) ([]byte, bool, error) {
	item, err := t.client.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			log.Printf("memcached get %s: %v", key, err)
		}
		return nil, false, nil
	}
	return item.Value, true, nil
}

func (t *MemcachedTier) Put(key string, data []byte) error {
	err := t.client.Add(&memcache.Item{Key: key, Value: data})
	if errors.Is(err, memcache.ErrNotStored) {
		// Another process stored it first.
		return nil
	}
	return err
}
