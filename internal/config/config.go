// Package config handles configuration loading for the survey line server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Hull   HullConfig   `yaml:"hull"`
	Render RenderConfig `yaml:"render"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DataConfig contains data source settings.
type DataConfig struct {
	// StorePath is the directory of the chunked survey store.
	StorePath string `yaml:"store_path"`

	// Backend selects the storage backend: "store" or "tiledb".
	Backend string `yaml:"backend"`
}

// CacheConfig contains line-array and product caching settings.
type CacheConfig struct {
	SharedSizeMB   int `yaml:"shared_size_mb"`
	SharedTTLMin   int `yaml:"shared_ttl_minutes"`
	ProductEntries int `yaml:"product_entries"`

	// MemcachedServers enables the memcached tier when non-empty.
	MemcachedServers []string `yaml:"memcached_servers"`

	// SideFileDir enables the on-disk tier when non-empty.
	SideFileDir string `yaml:"side_file_dir"`
}

// HullConfig contains concave hull derivation settings.
type HullConfig struct {
	BufferDistance float64 `yaml:"buffer_distance"`
	Offset         float64 `yaml:"offset"`
	Tolerance      float64 `yaml:"tolerance"`
	MaxPolygons    int     `yaml:"max_polygons"`
	MaxVertices    int     `yaml:"max_vertices"`
	MaxIterations  int     `yaml:"max_iterations"`
}

// RenderConfig contains quicklook rendering settings.
type RenderConfig struct {
	ImageSize int `yaml:"image_size"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			StorePath: "./data/survey",
			Backend:   "store",
		},
		Cache: CacheConfig{
			SharedSizeMB:   256,
			SharedTTLMin:   10,
			ProductEntries: 128,
		},
		Hull: HullConfig{
			BufferDistance: 0.02,
			Offset:         0.0005,
			Tolerance:      0.0005,
			MaxPolygons:    5,
			MaxVertices:    1000,
			MaxIterations:  16,
		},
		Render: RenderConfig{
			ImageSize: 1024,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Data.StorePath == "" {
		cfg.Data.StorePath = defaults.Data.StorePath
	}
	if cfg.Data.Backend == "" {
		cfg.Data.Backend = defaults.Data.Backend
	}
	if cfg.Cache.SharedSizeMB == 0 {
		cfg.Cache.SharedSizeMB = defaults.Cache.SharedSizeMB
	}
	if cfg.Cache.SharedTTLMin == 0 {
		cfg.Cache.SharedTTLMin = defaults.Cache.SharedTTLMin
	}
	if cfg.Cache.ProductEntries == 0 {
		cfg.Cache.ProductEntries = defaults.Cache.ProductEntries
	}
	if cfg.Hull.BufferDistance == 0 {
		cfg.Hull.BufferDistance = defaults.Hull.BufferDistance
	}
	if cfg.Hull.Offset == 0 {
		cfg.Hull.Offset = defaults.Hull.Offset
	}
	if cfg.Hull.Tolerance == 0 {
		cfg.Hull.Tolerance = defaults.Hull.Tolerance
	}
	if cfg.Hull.MaxPolygons == 0 {
		cfg.Hull.MaxPolygons = defaults.Hull.MaxPolygons
	}
	if cfg.Hull.MaxVertices == 0 {
		cfg.Hull.MaxVertices = defaults.Hull.MaxVertices
	}
	if cfg.Hull.MaxIterations == 0 {
		cfg.Hull.MaxIterations = defaults.Hull.MaxIterations
	}
	if cfg.Render.ImageSize == 0 {
		cfg.Render.ImageSize = defaults.Render.ImageSize
	}
}
