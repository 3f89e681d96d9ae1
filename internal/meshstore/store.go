// Package meshstore turns meshes into meshlet buffers, reusing cached
// meshlet files when they are available.
package meshstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshletgen/internal/config"
	"github.com/Faultbox/meshletgen/internal/logger"
	"github.com/Faultbox/meshletgen/pkg/formats"
	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

// Options controls how meshes are clustered.
type Options struct {
	Strategy    meshlet.Strategy
	Verify      bool
	DebugColors bool
	Workers     int
}

// Result is the outcome of building one mesh.
type Result struct {
	ID         string
	Buffers    *meshlet.Buffers
	CachePath  string
	Cached     bool
	Stats      meshlet.Stats // zero for cache hits
	Violations []error       // verification findings, output is kept regardless
}

// Store builds meshlet buffers and caches them on disk.
type Store struct {
	dir  string
	opts Options
	log  *zap.Logger
}

// New creates a store caching into dir. A nil strategy means GreedyDistance.
func New(dir string, opts Options) *Store {
	if opts.Strategy == nil {
		opts.Strategy = meshlet.GreedyDistance{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Store{
		dir:  dir,
		opts: opts,
		log:  logger.Named("meshstore"),
	}
}

// NewFromConfig creates a store from loaded configuration.
func NewFromConfig(cfg *config.Config) (*Store, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}
	return New(cfg.Cache.Dir, Options{
		Strategy:    strategy,
		Verify:      cfg.Build.Verify,
		DebugColors: cfg.Meshlet.DebugColors,
		Workers:     cfg.Build.Workers,
	}), nil
}

// CachePath returns the cache file for mesh. The name covers the mesh ID,
// its content, its limits and the clustering options, so any change to
// them misses the cache.
func (s *Store) CachePath(mesh *meshlet.Mesh) string {
	name := fmt.Sprintf("%s-%016x-%s-v%dp%d", sanitize(mesh.ID), meshHash(mesh), strategyKey(s.opts.Strategy),
		mesh.Limits.VertexLimit, mesh.Limits.PrimitiveLimit)
	if s.opts.DebugColors {
		name += "-dbg"
	}
	return filepath.Join(s.dir, name+".meshlet")
}

// Build returns the meshlet buffers for mesh. Unless regenerate is set, a
// valid cache file is returned as is; a missing or corrupt one is replaced.
func (s *Store) Build(mesh *meshlet.Mesh, regenerate bool) (*Result, error) {
	path := s.CachePath(mesh)
	log := s.log.With(zap.String("mesh", mesh.ID))

	if !regenerate {
		b, err := s.load(path, mesh)
		switch {
		case err == nil:
			log.Debug("cache hit", zap.String("path", path), zap.Int("meshlets", len(b.Descriptors)))
			if s.opts.DebugColors {
				b.DebugVertexColors(mesh.Vertices)
			}
			return &Result{ID: mesh.ID, Buffers: b, CachePath: path, Cached: true}, nil
		case errors.Is(err, os.ErrNotExist):
			log.Debug("cache miss", zap.String("path", path))
		default:
			log.Warn("discarding unusable cache file", zap.String("path", path), zap.Error(err))
		}
	}

	res, err := s.generate(mesh, log)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", mesh.ID, err)
	}
	res.CachePath = path

	if err := formats.SaveMeshletFile(path, res.Buffers); err != nil {
		log.Warn("failed to write cache", zap.String("path", path), zap.Error(err))
		res.CachePath = ""
	}
	return res, nil
}

// load reads a cache file and checks it against the mesh's limits and
// vertex count.
func (s *Store) load(path string, mesh *meshlet.Mesh) (*meshlet.Buffers, error) {
	b, err := formats.ParseMeshletFileFromPath(path)
	if err != nil {
		return nil, err
	}
	limits := mesh.Limits
	for i, d := range b.Descriptors {
		if uint32(d.NumVertices()) > limits.VertexLimit || uint32(d.NumPrimitives()) > limits.PrimitiveLimit {
			return nil, fmt.Errorf("%w: descriptor %d exceeds limits %d/%d",
				formats.ErrCorruptMeshletFile, i, limits.VertexLimit, limits.PrimitiveLimit)
		}
	}
	for i, id := range b.Global {
		if int(id) >= len(mesh.Vertices) {
			return nil, fmt.Errorf("%w: global index %d references vertex %d of %d",
				formats.ErrCorruptMeshletFile, i, id, len(mesh.Vertices))
		}
	}
	return b, nil
}

func (s *Store) generate(mesh *meshlet.Mesh, log *zap.Logger) (*Result, error) {
	start := time.Now()

	mm, err := meshlet.NewMeshletsForMesh(mesh)
	if err != nil {
		return nil, err
	}
	if err := mm.Generate(s.opts.Strategy); err != nil {
		return nil, err
	}

	res := &Result{ID: mesh.ID}
	if s.opts.Verify {
		if err := mm.Verify(); err != nil {
			res.Violations = meshlet.Violations(err)
			for _, v := range res.Violations {
				log.Warn("meshlet verification failed", zap.Error(v))
			}
		}
	}

	if s.opts.DebugColors {
		mm.ApplyDebugColors()
		mm.DebugVertexColors(mesh.Vertices)
	}

	res.Buffers, err = mm.Encode(mesh.Bounds())
	if err != nil {
		return nil, err
	}
	res.Stats = mm.Stats()

	log.Info("generated meshlets",
		zap.String("strategy", s.opts.Strategy.Name()),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Int("meshlets", res.Stats.Meshlets),
		zap.Float32("avg_vertices", res.Stats.AvgVertices),
		zap.Float32("avg_triangles", res.Stats.AvgTriangles),
		zap.Float32("vertex_fill", res.Stats.VertexFill),
		zap.Float32("primitive_fill", res.Stats.PrimitiveFill),
		zap.Int("violations", len(res.Violations)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func sanitize(id string) string {
	if id == "" {
		return "mesh"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// meshHash fingerprints vertex positions and indices.
func meshHash(mesh *meshlet.Mesh) uint64 {
	h := fnv.New64a()
	var buf [12]byte
	for _, v := range mesh.Vertices {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(v.Pos[0]))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(v.Pos[1]))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(v.Pos[2]))
		h.Write(buf[:])
	}
	for _, idx := range mesh.Indices {
		binary.LittleEndian.PutUint32(buf[0:], idx)
		h.Write(buf[:4])
	}
	return h.Sum64()
}

func strategyKey(st meshlet.Strategy) string {
	switch v := st.(type) {
	case meshlet.Simple:
		return fmt.Sprintf("simple%d", v.TrianglesPerMeshlet)
	case meshlet.GreedyVertex:
		key := "gv"
		if v.Squeeze {
			key += "s"
		}
		if v.NearestNeighbourOrdering {
			key += "n"
		}
		return key
	default:
		return "gd"
	}
}
