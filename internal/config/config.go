// Package config handles meshletgen configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"

	"go.uber.org/multierr"

	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

// Config holds all build settings.
type Config struct {
	Meshlet MeshletConfig `yaml:"meshlet"`
	Cache   CacheConfig   `yaml:"cache"`
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
}

// MeshletConfig holds clustering parameters.
type MeshletConfig struct {
	Algorithm                string `yaml:"algorithm"` // simple, greedy_vertex or greedy_distance
	VertexLimit              uint32 `yaml:"vertex_limit"`
	PrimitiveLimit           uint32 `yaml:"primitive_limit"`
	TrianglesPerMeshlet      int    `yaml:"triangles_per_meshlet"` // simple only, 0 = fill
	Squeeze                  bool   `yaml:"squeeze"`               // greedy_vertex only
	NearestNeighbourOrdering bool   `yaml:"nearest_neighbour_ordering"`
	DebugColors              bool   `yaml:"debug_colors"`
}

// CacheConfig holds meshlet cache settings.
type CacheConfig struct {
	Dir        string `yaml:"dir"`
	Regenerate bool   `yaml:"regenerate"` // ignore existing cache files
}

// BuildConfig holds pipeline settings.
type BuildConfig struct {
	Workers int  `yaml:"workers"`
	Verify  bool `yaml:"verify"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Meshlet: MeshletConfig{
			Algorithm:      meshlet.StrategyGreedyDistance,
			VertexLimit:    meshlet.DefaultVertexLimit,
			PrimitiveLimit: meshlet.DefaultPrimitiveLimit,
			Squeeze:        true,
		},
		Cache: CacheConfig{
			Dir: filepath.Join(ConfigDir(), "cache"),
		},
		Build: BuildConfig{
			Workers: runtime.NumCPU(),
			Verify:  true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Limits returns the configured meshlet capacity.
func (c *Config) Limits() meshlet.Limits {
	return meshlet.Limits{
		VertexLimit:    c.Meshlet.VertexLimit,
		PrimitiveLimit: c.Meshlet.PrimitiveLimit,
	}
}

// Strategy returns the configured clustering strategy with its options.
func (c *Config) Strategy() (meshlet.Strategy, error) {
	s, err := meshlet.ParseStrategy(c.Meshlet.Algorithm)
	if err != nil {
		return nil, err
	}
	switch s.(type) {
	case meshlet.Simple:
		return meshlet.Simple{TrianglesPerMeshlet: c.Meshlet.TrianglesPerMeshlet}, nil
	case meshlet.GreedyVertex:
		return meshlet.GreedyVertex{
			Squeeze:                  c.Meshlet.Squeeze,
			NearestNeighbourOrdering: c.Meshlet.NearestNeighbourOrdering,
		}, nil
	default:
		return s, nil
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs error
	errs = multierr.Append(errs, c.Limits().Validate())
	if _, err := c.Strategy(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Meshlet.TrianglesPerMeshlet < 0 {
		errs = multierr.Append(errs, fmt.Errorf("triangles_per_meshlet must not be negative, got %d", c.Meshlet.TrianglesPerMeshlet))
	}
	if c.Build.Workers < 1 {
		errs = multierr.Append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Build.Workers))
	}
	if c.Cache.Dir == "" {
		errs = multierr.Append(errs, fmt.Errorf("cache dir must be set"))
	}
	return errs
}
