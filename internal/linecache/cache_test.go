package linecache

import (
	"bytes"
	"testing"
	"time"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		SharedCacheSizeMB: 8,
		SharedTTL:         time.Minute,
		ProductCacheSize:  16,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSharedTierRoundTrip(t *testing.T) {
	m := testManager(t)
	tier := m.SharedTier()

	key := ArrayKey("survey-a", "line")
	if _, ok, err := tier.TryGet(key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	payload := EncodeInt32([]int32{1, 2, 3})
	if err := tier.Put(key, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := tier.TryGet(key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload corrupted")
	}
}

func TestProductCache(t *testing.T) {
	m := testManager(t)

	key := ProductKey("survey-a", "convex_hull", nil)
	if _, ok := m.GetProduct(key); ok {
		t.Fatal("expected product miss")
	}

	m.SetProduct(key, []byte("geojson"))
	got, ok := m.GetProduct(key)
	if !ok || string(got) != "geojson" {
		t.Fatalf("unexpected product: ok=%v data=%q", ok, got)
	}

	m.PurgeProducts()
	if _, ok := m.GetProduct(key); ok {
		t.Fatal("expected miss after purge")
	}
}
