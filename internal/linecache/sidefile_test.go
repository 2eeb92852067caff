package linecache

import (
	"bytes"
	"os"
	"testing"
)

func TestDiskTierRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tier, err := NewDiskTier(dir, "survey-a")
	if err != nil {
		t.Fatalf("NewDiskTier: %v", err)
	}
	defer tier.Close()

	key := ArrayKey("survey-a", "line")
	if _, ok, err := tier.TryGet(key); err != nil || ok {
		t.Fatalf("expected clean miss before Put, got ok=%v err=%v", ok, err)
	}

	payload := EncodeInt32([]int32{10, 20, 30})
	if err := tier.Put(key, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// A fresh tier over the same directory sees the stored array.
	reopened, err := NewDiskTier(dir, "survey-a")
	if err != nil {
		t.Fatalf("NewDiskTier: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.TryGet(key)
	if err != nil || !ok {
		t.Fatalf("expected hit after reopen, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload corrupted across reopen")
	}
}

func TestDiskTierMergesArrays(t *testing.T) {
	dir := t.TempDir()
	tier, err := NewDiskTier(dir, "survey-a")
	if err != nil {
		t.Fatalf("NewDiskTier: %v", err)
	}
	defer tier.Close()

	lineKey := ArrayKey("survey-a", "line")
	indexKey := ArrayKey("survey-a", "line_index")
	if err := tier.Put(lineKey, EncodeInt32([]int32{1})); err != nil {
		t.Fatalf("Put line: %v", err)
	}
	if err := tier.Put(indexKey, EncodeInt32([]int32{0, 0})); err != nil {
		t.Fatalf("Put line_index: %v", err)
	}

	// The second Put must not clobber the first array.
	if _, ok, err := tier.TryGet(lineKey); err != nil || !ok {
		t.Fatalf("line array lost after second Put: ok=%v err=%v", ok, err)
	}
	if _, ok, err := tier.TryGet(indexKey); err != nil || !ok {
		t.Fatalf("line_index array missing: ok=%v err=%v", ok, err)
	}
}

func TestDiskTierCorruptFileSurfacesError(t *testing.T) {
	dir := t.TempDir()
	tier, err := NewDiskTier(dir, "survey-a")
	if err != nil {
		t.Fatalf("NewDiskTier: %v", err)
	}
	defer tier.Close()

	key := ArrayKey("survey-a", "line")
	if err := tier.Put(key, EncodeInt32([]int32{1, 2})); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Truncate the side file to garbage.
	if err := os.WriteFile(tier.Path(), []byte{0xff, 0xff}, 0o644); err != nil {
		t.Fatalf("corrupting file: %v", err)
	}

	if _, _, err := tier.TryGet(key); err == nil {
		t.Fatal("corrupt side file must surface an error, not a miss")
	}
}
