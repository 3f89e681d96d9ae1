// meshlettool builds, inspects and checks meshlet cache files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/Faultbox/meshletgen/internal/config"
	"github.com/Faultbox/meshletgen/internal/logger"
	"github.com/Faultbox/meshletgen/internal/meshstore"
	"github.com/Faultbox/meshletgen/pkg/formats"
	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build", "b":
		cmdBuild(args)
	case "info":
		cmdInfo(args)
	case "verify":
		cmdVerify(args)
	case "dump":
		cmdDump(args)
	case "export":
		cmdExport(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshlettool - meshlet generation utility

Usage:
  meshlettool <command> [options]

Commands:
  build [flags] <file.gltf|glb>...        Cluster meshes and write meshlet cache files
  info <file.meshlet>                     Show meshlet file summary
  verify [-mesh N] <file.meshlet> <file.glb>
                                          Check a meshlet file against its source mesh
  dump [-n N] <file.meshlet>              Dump descriptors
  export [-mesh N] <file.meshlet> <file.glb> <out.glb>
                                          Write meshlets and their bounds as a colored GLB
  config [flags] [file.yaml]              Write the effective configuration

Build flags (see -h after build for all):
  -algorithm simple|greedy_vertex|greedy_distance
  -vertex-limit N -primitive-limit N
  -cache-dir DIR -regenerate -workers N -debug

Examples:
  meshlettool build -algorithm greedy_vertex -vertex-limit 64 scene.glb
  meshlettool info ~/.config/meshletgen/cache/scene.glb_0.0-*.meshlet
  meshlettool verify scene.meshlet scene.glb`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdBuild(args []string) {
	if err := config.ParseFlags(args); err != nil {
		fail(err)
	}
	inputs := config.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: meshlettool build [flags] <file.gltf|glb>...")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.JSON = cfg.Logging.JSON
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fail(err)
	}
	defer logger.Sync()

	var meshes []*meshlet.Mesh
	for _, path := range inputs {
		m, err := formats.LoadGLTFMeshes(path, cfg.Limits())
		if err != nil {
			fail(err)
		}
		logger.Debug("loaded meshes", zap.String("file", path), zap.Int("meshes", len(m)))
		meshes = append(meshes, m...)
	}

	store, err := meshstore.NewFromConfig(cfg)
	if err != nil {
		fail(err)
	}
	logger.Info("building meshes",
		zap.Int("meshes", len(meshes)),
		zap.String("algorithm", cfg.Meshlet.Algorithm),
		zap.Uint32("vertex_limit", cfg.Meshlet.VertexLimit),
		zap.Uint32("primitive_limit", cfg.Meshlet.PrimitiveLimit),
		zap.Int("workers", cfg.Build.Workers),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, buildErr := store.BuildAll(ctx, meshes, cfg.Cache.Regenerate)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MESH\tMESHLETS\tSOURCE\tVIOLATIONS\tFILE")
	var cached, written int
	for _, r := range results {
		if r == nil {
			continue
		}
		source := "generated"
		if r.Cached {
			source = "cache"
			cached++
		}
		if r.CachePath != "" {
			written++
		}
		if len(r.Violations) > 0 {
			logger.Warn("mesh failed verification", zap.String("mesh", r.ID), zap.Int("violations", len(r.Violations)))
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", r.ID, len(r.Buffers.Descriptors), source, len(r.Violations), r.CachePath)
	}
	w.Flush()
	logger.Sugar.Infof("%d meshlet files in %s (%d from cache)", written, cfg.Cache.Dir, cached)

	if buildErr != nil {
		logger.Error("build failed", zap.Error(buildErr))
		logger.Sync()
		fail(buildErr)
	}
}

// cmdConfig writes the configuration that build would use, defaults merged
// with the config file and flags, to the given path or the user config dir.
func cmdConfig(args []string) {
	if err := config.ParseFlags(args); err != nil {
		fail(err)
	}
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}

	path := filepath.Join(config.ConfigDir(), "config.yaml")
	if rest := config.Args(); len(rest) > 0 {
		path = rest[0]
		err = cfg.SaveTo(path)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		fail(err)
	}
	fmt.Printf("Wrote %s\n", path)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshlettool info <file.meshlet>")
		os.Exit(1)
	}

	b, err := formats.ParseMeshletFileFromPath(args[0])
	if err != nil {
		fail(err)
	}

	var verts, prims, debug int
	minPrims, maxPrims := 0, 0
	for i, d := range b.Descriptors {
		verts += d.NumVertices()
		prims += d.NumPrimitives()
		if d.RenderMode() == meshlet.RenderDebugColors {
			debug++
		}
		if i == 0 || d.NumPrimitives() < minPrims {
			minPrims = d.NumPrimitives()
		}
		maxPrims = max(maxPrims, d.NumPrimitives())
	}

	fmt.Printf("File:       %s\n", args[0])
	fmt.Printf("Meshlets:   %d\n", len(b.Descriptors))
	fmt.Printf("Triangles:  %d\n", prims)
	fmt.Printf("Global idx: %d\n", len(b.Global))
	fmt.Printf("Local idx:  %d\n", len(b.Local))
	if n := len(b.Descriptors); n > 0 {
		fmt.Printf("Avg verts:  %.1f\n", float64(verts)/float64(n))
		fmt.Printf("Avg tris:   %.1f (min %d, max %d)\n", float64(prims)/float64(n), minPrims, maxPrims)
		fmt.Printf("Debug:      %d meshlets\n", debug)
	}
}

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	meshIndex := fs.Int("mesh", 0, "Index of the triangle mesh in the glTF file")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshlettool verify [-mesh N] <file.meshlet> <file.gltf|glb>")
		os.Exit(1)
	}

	b, mesh := loadPair(fs.Arg(0), fs.Arg(1), *meshIndex)

	if err := meshlet.VerifyBuffers(b, mesh.Indices); err != nil {
		violations := meshlet.Violations(err)
		for _, v := range violations {
			fmt.Println(v)
		}
		fmt.Fprintf(os.Stderr, "%s: %d violation(s)\n", mesh.ID, len(violations))
		os.Exit(1)
	}
	fmt.Printf("%s: OK (%d meshlets, %d triangles)\n", mesh.ID, len(b.Descriptors), mesh.TriangleCount())
}

// descriptorView is the decoded form of a descriptor for dumping.
type descriptorView struct {
	Index             int
	NumVertices       int
	NumPrimitives     int
	RenderMode        string
	IndexBufferOffset uint32
	Bounds            string
	Vertices          []uint32
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	limit := fs.Int("n", 0, "Dump at most N descriptors (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshlettool dump [-n N] <file.meshlet>")
		os.Exit(1)
	}

	b, err := formats.ParseMeshletFileFromPath(fs.Arg(0))
	if err != nil {
		fail(err)
	}

	dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	for i, d := range b.Descriptors {
		if *limit > 0 && i >= *limit {
			break
		}
		off := d.IndexBufferOffset()
		dumper.Fdump(os.Stdout, descriptorView{
			Index:             i,
			NumVertices:       d.NumVertices(),
			NumPrimitives:     d.NumPrimitives(),
			RenderMode:        d.RenderMode().String(),
			IndexBufferOffset: off,
			Bounds:            fmt.Sprintf("%012x", d.Bounds()),
			Vertices:          b.Global[off : off+uint32(d.NumVertices())],
		})
	}
}

// loadPair reads a meshlet file and the source mesh it was built from.
func loadPair(meshletPath, gltfPath string, index int) (*meshlet.Buffers, *meshlet.Mesh) {
	b, err := formats.ParseMeshletFileFromPath(meshletPath)
	if err != nil {
		fail(err)
	}
	meshes, err := formats.LoadGLTFMeshes(gltfPath, meshlet.DefaultLimits())
	if err != nil {
		fail(err)
	}
	if index < 0 || index >= len(meshes) {
		fail(fmt.Errorf("mesh index %d out of range, file has %d meshes", index, len(meshes)))
	}
	return b, meshes[index]
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	meshIndex := fs.Int("mesh", 0, "Index of the triangle mesh in the glTF file")
	fs.Parse(args)

	if fs.NArg() < 3 {
		fmt.Fprintln(os.Stderr, "Usage: meshlettool export [-mesh N] <file.meshlet> <file.gltf|glb> <out.glb>")
		os.Exit(1)
	}

	b, mesh := loadPair(fs.Arg(0), fs.Arg(1), *meshIndex)
	if err := formats.SaveDebugGLB(fs.Arg(2), mesh, b, mesh.Bounds()); err != nil {
		fail(err)
	}
	fmt.Printf("Wrote %d meshlets to %s\n", len(b.Descriptors), fs.Arg(2))
}
