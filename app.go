package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chazu/meshsplit/pkg/codec"
	"github.com/chazu/meshsplit/pkg/config"
	"github.com/chazu/meshsplit/pkg/filter"
	"github.com/chazu/meshsplit/pkg/graph"
	"github.com/chazu/meshsplit/pkg/materialize"
	"github.com/chazu/meshsplit/pkg/mesh"
	"github.com/chazu/meshsplit/pkg/meshio"
	"github.com/chazu/meshsplit/pkg/sink"
	"github.com/google/uuid"
)

// ManifestName is the object written next to the component files.
const ManifestName = "manifest.toml"

// componentPrefix starts the name of every component file.
const componentPrefix = "component_"

// App runs the split pipeline for one configuration.
type App struct {
	cfg  config.Config
	log  *log.Logger
	sink sink.Sink // nil means open cfg.Output on each run
}

// PartResult describes one written component.
type PartResult struct {
	Index    int     `toml:"index"`
	Name     string  `toml:"file"`
	Location string  `toml:"-"`
	Faces    int     `toml:"faces"`
	Vertices int     `toml:"vertices"`
	Extent   float64 `toml:"extent"`
}

// Result is the outcome of a run. Written lists only components whose
// file was stored successfully.
type Result struct {
	RunID      string
	Faces      int
	Vertices   int
	Components int
	Written    []PartResult
	Skipped    []int // component numbers rejected by the filter
	Failed     []int // component numbers whose write failed
}

// NewApp creates an App. A nil logger discards all output.
func NewApp(cfg config.Config, logger *log.Logger) *App {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &App{cfg: cfg, log: logger}
}

// WithSink makes the App write to s instead of cfg.Output.
func (a *App) WithSink(s sink.Sink) *App {
	a.sink = s
	return a
}

// Run loads the input mesh, partitions it into connected components and
// writes one file per component plus a manifest.
//
// Return semantics:
//   - load, validation or filter compile failure: nil result, error, nothing written
//   - some component writes failed: result listing what was written, joined error
//   - success: result, nil
func (a *App) Run(ctx context.Context) (*Result, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	format, _ := meshio.ParseFormat(a.cfg.Format)
	comp, _ := codec.ByName(a.cfg.Compress)
	mode, _ := materialize.ParseMode(a.cfg.Vertices)

	// Compile first so a broken expression fails before any I/O.
	flt, err := filter.Compile(a.cfg.Filter)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := a.log.With("run", runID[:8])
	start := time.Now()

	// Step 1: load and validate the input mesh.
	m, err := meshio.LoadOBJ(a.cfg.Input)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded mesh", "path", a.cfg.Input, "vertices", m.VertexCount(), "faces", m.FaceCount())

	// Step 2: adjacency and components.
	adj, err := graph.BuildAdjacency(m, graph.WithWorkers(a.cfg.Workers))
	if err != nil {
		return nil, err
	}
	logger.Debug("built adjacency", "edges", adj.EdgeCount(), "elapsed", time.Since(start))

	seed := graph.SeedLowest()
	if a.cfg.RandomSeed {
		seed = graph.SeedRandom(a.cfg.Seed)
	}
	comps := graph.Components(adj, seed)
	if a.cfg.Verify {
		if err := graph.Verify(adj, comps); err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
		logger.Debug("verified partition")
	}
	logger.Info("found components", "count", len(comps))

	// Step 3: open the destination only once there is something to write.
	out := a.sink
	if out == nil {
		out, err = sink.Open(ctx, a.cfg.Output, sink.Options{
			MinioEndpoint:  a.cfg.Minio.Endpoint,
			MinioAccessKey: a.cfg.Minio.AccessKey,
			MinioSecretKey: a.cfg.Minio.SecretKey,
			MinioSecure:    a.cfg.Minio.Secure,
			S3Region:       a.cfg.S3.Region,
		})
		if err != nil {
			return nil, err
		}
	}
	if a.cfg.Clean {
		if c, ok := out.(sink.Cleaner); ok {
			n, err := c.Clean(ctx, componentPrefix)
			if err != nil {
				return nil, err
			}
			logger.Debug("removed stale components", "count", n)
		} else {
			logger.Warn("output does not support cleaning, stale components are kept", "output", a.cfg.Output)
		}
	}

	// Step 4: materialize, filter and write every component.
	parts, err := materialize.All(ctx, m, comps, mode, a.cfg.Workers)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:      runID,
		Faces:      m.FaceCount(),
		Vertices:   m.VertexCount(),
		Components: len(comps),
	}

	// Write failures are per component and never abort the others, so the
	// writers report through outcomes rather than an error group.
	outcomes := make([]partOutcome, len(parts))
	sem := make(chan struct{}, a.cfg.Workers)
	var wg sync.WaitGroup
	for i, p := range parts {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = a.writePart(ctx, out, m, p, flt, format, comp)
		}()
	}
	wg.Wait()

	var errs []error
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			logger.Error("write failed", "component", o.part.Index, "err", o.err)
			res.Failed = append(res.Failed, o.part.Index)
			errs = append(errs, o.err)
		case o.skipped:
			logger.Debug("filtered out", "component", o.part.Index)
			res.Skipped = append(res.Skipped, o.part.Index)
		default:
			logger.Debug("wrote component", "component", o.part.Index, "location", o.part.Location, "faces", o.part.Faces)
			res.Written = append(res.Written, o.part)
		}
	}

	// Step 5: the manifest lists exactly what was written.
	if a.cfg.Manifest {
		if err := a.writeManifest(ctx, out, res, format, comp, mode); err != nil {
			logger.Error("manifest write failed", "err", err)
			errs = append(errs, err)
		}
	}

	logger.Info("done",
		"components", res.Components,
		"written", len(res.Written),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
		"elapsed", time.Since(start))
	return res, errors.Join(errs...)
}

type partOutcome struct {
	part    PartResult
	skipped bool
	err     error
}

// bufPool recycles encode buffers across component writes.
var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

func (a *App) writePart(ctx context.Context, out sink.Sink, m *mesh.Mesh, p *materialize.Part,
	flt *filter.Filter, format meshio.Format, comp codec.Codec) partOutcome {
	o := partOutcome{part: PartResult{
		Index:    p.Index,
		Name:     fmt.Sprintf("%s%d%s%s", componentPrefix, p.Index, format.Ext(), comp.Ext()),
		Faces:    p.FaceCount(),
		Vertices: p.ReferencedVertices(),
	}}
	if box, ok := m.Bounds(p.SourceFaces); ok {
		o.part.Extent = mesh.Extent(box)
	}
	o.part.Location = out.Location(o.part.Name)

	keep, err := flt.Match(ctx, filter.Stats{
		Index:     o.part.Index,
		Triangles: o.part.Faces,
		Vertices:  o.part.Vertices,
		Extent:    o.part.Extent,
	})
	if err != nil {
		o.err = fmt.Errorf("component %d: %w", p.Index, err)
		return o
	}
	if !keep {
		o.skipped = true
		return o
	}

	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	err = codec.Encode(comp, buf, func(w io.Writer) error {
		return format.Write(w, p.Mesh())
	})
	if err == nil {
		err = out.Put(ctx, o.part.Name, buf.Bytes())
	}
	if err != nil {
		o.err = fmt.Errorf("component %d (%s): %w", p.Index, o.part.Location, err)
	}
	return o
}
