package linecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	SharedCacheSizeMB int
	SharedTTL         time.Duration
	ProductCacheSize  int
}

// Manager owns the shared in-process byte cache used as a cache tier and the
// LRU cache for derived geometry products (hulls, sample points).
type Manager struct {
	shared   *bigcache.BigCache
	products *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	sharedConfig := bigcache.Config{
		Shards:             256,
		LifeWindow:         cfg.SharedTTL,
		CleanWindow:        cfg.SharedTTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       4 * 1024 * 1024, // line_index for a large survey
		HardMaxCacheSize:   cfg.SharedCacheSizeMB,
		Verbose:            false,
	}

	shared, err := bigcache.New(context.Background(), sharedConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared cache: %w", err)
	}

	products, err := lru.New[string, []byte](cfg.ProductCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create product cache: %w", err)
	}

	return &Manager{shared: shared, products: products}, nil
}

// SharedTier exposes the byte cache as a line-array cache tier.
func (m *Manager) SharedTier() Tier { return &sharedTier{cache: m.shared} }

type sharedTier struct {
	cache *bigcache.BigCache
}

func (t *sharedTier) Name() string { return "shared" }

func (t *sharedTier) TryGet(key string) ([]byte, bool, error) {
	data, err := t.cache.Get(key)
	if err != nil {
		// bigcache reports misses as errors; never fatal.
		return nil, false, nil
	}
	return data, true, nil
}

func (t *sharedTier) Put(key string, data []byte) error {
	return t.cache.Set(key, data)
}

// GetProduct retrieves a derived product from cache.
func (m *Manager) GetProduct(key string) ([]byte, bool) {
	return m.products.Get(key)
}

// SetProduct stores a derived product in cache.
func (m *Manager) SetProduct(key string, data []byte) {
	m.products.Add(key, data)
}

// ArrayKey builds the tier key for a cached line array.
func ArrayKey(identity, array string) string {
	return identity + "_" + array
}

// ProductKey builds a cache key for a derived product from its parameters.
func ProductKey(identity, kind string, params map[string]interface{}) string {
	base := fmt.Sprintf("%s:%s", kind, identity)
	if len(params) == 0 {
		return base
	}

	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(base))
	for _, k := range names {
		h.Write([]byte(fmt.Sprintf("%s=%v", k, params[k])))
	}
	return base + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// PurgeProducts drops every cached derived product.
func (m *Manager) PurgeProducts() {
	m.products.Purge()
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"shared_cache_len":  m.shared.Len(),
		"shared_cache_cap":  m.shared.Capacity(),
		"product_cache_len": m.products.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.shared.Close()
}
