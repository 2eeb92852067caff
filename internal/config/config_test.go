package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Hull.BufferDistance != 0.02 || cfg.Hull.MaxPolygons != 5 {
		t.Fatalf("unexpected hull defaults: %+v", cfg.Hull)
	}
	if cfg.Hull.MaxIterations != 16 {
		t.Fatalf("MaxIterations = %d, want 16", cfg.Hull.MaxIterations)
	}
}

func TestLoadAppliesDefaultsForMissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `
server:
  port: 9000
data:
  store_path: /srv/surveys
hull:
  max_polygons: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Fatalf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Data.StorePath != "/srv/surveys" {
		t.Fatalf("StorePath = %q", cfg.Data.StorePath)
	}
	if cfg.Hull.MaxPolygons != 3 {
		t.Fatalf("MaxPolygons = %d, want 3", cfg.Hull.MaxPolygons)
	}
	// Everything unset falls back to defaults.
	if cfg.Data.Backend != "store" {
		t.Fatalf("Backend = %q, want store", cfg.Data.Backend)
	}
	if cfg.Hull.Offset != 0.0005 {
		t.Fatalf("Offset = %v, want 0.0005", cfg.Hull.Offset)
	}
	if cfg.Cache.SharedSizeMB != 256 {
		t.Fatalf("SharedSizeMB = %d, want 256", cfg.Cache.SharedSizeMB)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
