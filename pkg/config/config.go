// Package config loads treescope configuration from TOML.
//
// Configuration is looked up in the working directory first
// (treescope.toml), then in ~/.config/treescope/treescope.toml. A missing
// file yields the compiled defaults; CLI flags override file values on
// top of that.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/treescope/pkg/errors"
)

// FileName is the configuration file name.
const FileName = "treescope.toml"

// Config is the full treescope configuration tree.
type Config struct {
	Engine Engine `toml:"engine"`
	Force  Force  `toml:"force"`
	Cache  CacheC `toml:"cache"`
	Scan   Scan   `toml:"scan"`
	Server Server `toml:"server"`
}

// Engine configures layout computation.
type Engine struct {
	Padding       float64 `toml:"padding"`
	MinCell       float64 `toml:"min_cell"`
	MaxDepth      int     `toml:"max_depth"`
	CacheCapacity int     `toml:"cache_capacity"`
}

// Force configures the force-directed strategy.
type Force struct {
	Steps     int     `toml:"steps"`
	DT        float64 `toml:"dt"`
	Damping   float64 `toml:"damping"`
	Repulsion float64 `toml:"repulsion"`
	Spring    float64 `toml:"spring"`
}

// CacheC configures the byte cache backend.
type CacheC struct {
	// Backend is one of: file, memory, redis, none.
	Backend string `toml:"backend"`
	// Dir is the file backend's directory; empty means
	// ~/.cache/treescope.
	Dir string `toml:"dir"`
	// RedisAddr is the redis backend's host:port.
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// Scan configures directory ingestion.
type Scan struct {
	IgnorePatterns []string `toml:"ignore_patterns"`
	IncludeHidden  bool     `toml:"include_hidden"`
	MaxDepth       int      `toml:"max_depth"`
}

// Server configures the HTTP host.
type Server struct {
	Addr string `toml:"addr"`
	// MongoURI enables the Mongo-backed scan store when set.
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`
}

// Default returns the compiled default configuration.
func Default() Config {
	return Config{
		Engine: Engine{
			Padding:       2,
			MinCell:       4,
			MaxDepth:      8,
			CacheCapacity: 128,
		},
		Force: Force{
			Steps:     200,
			DT:        0.02,
			Damping:   0.85,
			Repulsion: 0.02,
			Spring:    4.0,
		},
		Cache: CacheC{
			Backend: "file",
		},
		Server: Server{
			Addr:    ":8080",
			MongoDB: "treescope",
		},
	}
}

// Load reads the configuration from path. An empty path searches the
// standard locations; a missing file in that case returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	return cfg, nil
}

// findConfig returns the first standard config path that exists.
func findConfig() string {
	candidates := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "treescope", FileName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// CacheDir returns the file cache directory, defaulting to
// ~/.cache/treescope.
func (c CacheC) CacheDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "treescope")
	}
	return ".treescope-cache"
}
