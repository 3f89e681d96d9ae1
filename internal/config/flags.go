package config

import (
	"flag"
	"fmt"
	"math"

	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile      = flag.String("log-file", "", "Write logs to this file as well")
	flagAlgorithm    = flag.String("algorithm", "", "Clustering algorithm: simple, greedy_vertex, greedy_distance")
	flagVertexLimit  = flag.Uint("vertex-limit", 0, "Maximum vertices per meshlet (3-256)")
	flagPrimLimit    = flag.Uint("primitive-limit", 0, "Maximum triangles per meshlet (1-255)")
	flagTrisPerMlet  = flag.Int("triangles-per-meshlet", 0, "Triangles per meshlet for the simple algorithm")
	flagSqueeze      = flag.Bool("squeeze", false, "Squeeze border triangles into full meshlets (greedy_vertex)")
	flagNoSqueeze    = flag.Bool("no-squeeze", false, "Disable squeezing (greedy_vertex)")
	flagNearestOrder = flag.Bool("nearest-order", false, "Visit triangles nearest-first (greedy_vertex)")
	flagDebugColors  = flag.Bool("debug-colors", false, "Render each meshlet in its own color")
	flagNoVerify     = flag.Bool("no-verify", false, "Skip coverage and connectivity checks")
	flagCacheDir     = flag.String("cache-dir", "", "Meshlet cache directory")
	flagRegenerate   = flag.Bool("regenerate", false, "Ignore cached meshlet files")
	flagWorkers      = flag.Int("workers", 0, "Number of meshes built in parallel")
)

// ParseFlags parses command-line flags. Subcommands pass the arguments
// following their name.
func ParseFlags(args []string) error {
	return flag.CommandLine.Parse(args)
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagAlgorithm != "" {
		cfg.Meshlet.Algorithm = *flagAlgorithm
	}
	if *flagVertexLimit > 0 {
		v, err := limitFlag("vertex-limit", *flagVertexLimit)
		if err != nil {
			return err
		}
		cfg.Meshlet.VertexLimit = v
	}
	if *flagPrimLimit > 0 {
		v, err := limitFlag("primitive-limit", *flagPrimLimit)
		if err != nil {
			return err
		}
		cfg.Meshlet.PrimitiveLimit = v
	}
	if *flagTrisPerMlet > 0 {
		cfg.Meshlet.TrianglesPerMeshlet = *flagTrisPerMlet
	}
	if *flagSqueeze {
		cfg.Meshlet.Squeeze = true
	}
	if *flagNoSqueeze {
		cfg.Meshlet.Squeeze = false
	}
	if *flagNearestOrder {
		cfg.Meshlet.NearestNeighbourOrdering = true
	}
	if *flagDebugColors {
		cfg.Meshlet.DebugColors = true
	}
	if *flagNoVerify {
		cfg.Build.Verify = false
	}
	if *flagCacheDir != "" {
		cfg.Cache.Dir = *flagCacheDir
	}
	if *flagRegenerate {
		cfg.Cache.Regenerate = true
	}
	if *flagWorkers > 0 {
		cfg.Build.Workers = *flagWorkers
	}
	return nil
}

// limitFlag narrows a limit flag to uint32 without wrapping around.
func limitFlag(name string, v uint) (uint32, error) {
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: -%s %d out of range", meshlet.ErrInvalidLimits, name, v)
	}
	return uint32(v), nil
}
