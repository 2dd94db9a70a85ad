package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chazu/meshsplit/pkg/config"
	"github.com/chazu/meshsplit/pkg/meshio"
	"github.com/chazu/meshsplit/pkg/sink"
	"github.com/klauspost/compress/zstd"
)

func testConfig(input string) config.Config {
	cfg := config.Default()
	cfg.Input = input
	return cfg
}

// TestE2ETwoQuads runs the whole pipeline on the bundled example: load,
// partition, materialize and write to a local directory.
func TestE2ETwoQuads(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("examples/two_quads.obj")
	cfg.Output = dir

	res, err := NewApp(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Components != 2 {
		t.Fatalf("expected 2 components, got %d", res.Components)
	}
	if len(res.Written) != 2 {
		t.Fatalf("expected 2 written parts, got %d", len(res.Written))
	}

	wantFaces := [][][]int{
		{{0, 1, 2}, {0, 2, 3}},
		{{4, 5, 6}, {4, 6, 7}},
	}
	for i, want := range wantFaces {
		path := filepath.Join(dir, res.Written[i].Name)
		if want := fmt.Sprintf("component_%d.obj", i+1); res.Written[i].Name != want {
			t.Errorf("part %d: unexpected name %q", i, res.Written[i].Name)
		}
		m, err := meshio.LoadOBJ(path)
		if err != nil {
			t.Fatalf("reload %s: %v", path, err)
		}
		// Global mode keeps the full vertex list.
		if m.VertexCount() != 8 {
			t.Errorf("%s: expected 8 vertices, got %d", path, m.VertexCount())
		}
		if m.FaceCount() != len(want) {
			t.Fatalf("%s: expected %d faces, got %d", path, len(want), m.FaceCount())
		}
		for f, face := range want {
			got := m.Face(f)
			for k := range face {
				if got[k] != face[k] {
					t.Errorf("%s face %d: got %v, want %v", path, f, got, face)
					break
				}
			}
		}
	}

	if _, err := os.Stat(filepath.Join(dir, ManifestName)); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestRunCompact(t *testing.T) {
	mem := sink.NewMemorySink()
	cfg := testConfig("examples/two_quads.obj")
	cfg.Vertices = "compact"

	res, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, ok := mem.Get("component_2.obj")
	if !ok {
		t.Fatalf("component_2.obj missing, have %v", mem.Names())
	}
	m, err := meshio.ReadOBJ(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadOBJ: %v", err)
	}
	if m.VertexCount() != 4 {
		t.Fatalf("expected 4 compacted vertices, got %d", m.VertexCount())
	}
	// First referenced vertex of the second quad is source vertex 5 at (3,0,0).
	if v := m.Vertex(0); v[0] != 3 || v[1] != 0 || v[2] != 0 {
		t.Errorf("unexpected first vertex %v", v)
	}
	if res.Written[1].Vertices != 4 {
		t.Errorf("expected 4 referenced vertices, got %d", res.Written[1].Vertices)
	}
}

func TestRunManifest(t *testing.T) {
	mem := sink.NewMemorySink()
	cfg := testConfig("examples/two_quads.obj")

	res, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, ok := mem.Get(ManifestName)
	if !ok {
		t.Fatal("manifest missing")
	}
	man, err := ReadManifest(data)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if man.RunID != res.RunID {
		t.Errorf("run id: got %q, want %q", man.RunID, res.RunID)
	}
	if man.Components != 2 || man.Faces != 4 {
		t.Errorf("counts: got %d components / %d faces", man.Components, man.Faces)
	}
	if len(man.Parts) != 2 || man.Parts[0].Name != "component_1.obj" {
		t.Errorf("unexpected parts %+v", man.Parts)
	}
	if man.Parts[0].Extent <= 0 {
		t.Errorf("expected positive extent, got %v", man.Parts[0].Extent)
	}
}

func TestRunNoManifest(t *testing.T) {
	mem := sink.NewMemorySink()
	cfg := testConfig("examples/two_quads.obj")
	cfg.Manifest = false

	if _, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := mem.Get(ManifestName); ok {
		t.Error("manifest written although disabled")
	}
}

func TestRunSTLZstd(t *testing.T) {
	mem := sink.NewMemorySink()
	cfg := testConfig("examples/two_quads.obj")
	cfg.Format = "stl"
	cfg.Compress = "zstd"

	if _, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, ok := mem.Get("component_1.stl.zst")
	if !ok {
		t.Fatalf("component_1.stl.zst missing, have %v", mem.Names())
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 80-byte header, 4-byte count, 50 bytes per triangle.
	if len(raw) != 84+2*50 {
		t.Errorf("unexpected STL size %d", len(raw))
	}
}

// writeMixedMesh writes a quad (two triangles) and a lone triangle.
func writeMixedMesh(t *testing.T) string {
	t.Helper()
	input := filepath.Join(t.TempDir(), "mixed.obj")
	src := strings.Join([]string{
		"v 0 0 0", "v 1 0 0", "v 1 1 0", "v 0 1 0",
		"v 5 5 5", "v 6 5 5", "v 5 6 5",
		"f 1 2 3", "f 1 3 4",
		"f 5 6 7",
	}, "\n")
	if err := os.WriteFile(input, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return input
}

func TestRunFilter(t *testing.T) {
	mem := sink.NewMemorySink()
	cfg := testConfig(writeMixedMesh(t))
	cfg.Filter = "(> (triangles) 1)"

	res, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Components != 2 {
		t.Fatalf("expected 2 components, got %d", res.Components)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != 2 {
		t.Errorf("expected component 2 skipped, got %v", res.Skipped)
	}
	if _, ok := mem.Get("component_1.obj"); !ok {
		t.Error("component_1.obj missing")
	}
	if _, ok := mem.Get("component_2.obj"); ok {
		t.Error("filtered component was written")
	}
}

func TestRunFilterAtom(t *testing.T) {
	for _, tc := range []struct {
		src     string
		written int
	}{
		{"true", 2},
		{"1", 2},
		{"false", 0},
	} {
		mem := sink.NewMemorySink()
		cfg := testConfig("examples/two_quads.obj")
		cfg.Filter = tc.src
		res, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background())
		if err != nil {
			t.Fatalf("filter %q: %v", tc.src, err)
		}
		if len(res.Written) != tc.written {
			t.Errorf("filter %q: wrote %d components, want %d", tc.src, len(res.Written), tc.written)
		}
	}
}

func TestRunFilterParallelMatchesSequential(t *testing.T) {
	input := writeMixedMesh(t)
	names := func(workers int) []string {
		mem := sink.NewMemorySink()
		cfg := testConfig(input)
		cfg.Workers = workers
		cfg.Manifest = false
		cfg.Filter = "(> (triangles) 1)"
		if _, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background()); err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		return mem.Names()
	}

	want := names(1)
	for i := 0; i < 5; i++ {
		got := names(4)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("workers=4: wrote %v, want %v", got, want)
		}
	}
}

func TestRunCleanRemovesStaleComponents(t *testing.T) {
	mem := sink.NewMemorySink()
	ctx := context.Background()
	for _, name := range []string{"component_3.obj", "component_9.obj.gz", "readme.txt"} {
		if err := mem.Put(ctx, name, []byte("old")); err != nil {
			t.Fatal(err)
		}
	}

	cfg := testConfig("examples/two_quads.obj")
	cfg.Clean = true
	cfg.Manifest = false
	if _, err := NewApp(cfg, nil).WithSink(mem).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"component_1.obj", "component_2.obj", "readme.txt"}
	if got := mem.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("objects: got %v, want %v", got, want)
	}
}

func TestRunWithoutCleanKeepsStaleComponents(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "component_3.obj")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig("examples/two_quads.obj")
	cfg.Output = dir
	if _, err := NewApp(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Errorf("stale file removed without -clean: %v", err)
	}

	cfg.Clean = true
	if _, err := NewApp(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run with clean: %v", err)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale file survived -clean: %v", err)
	}
}

func TestRunBadFilterWritesNothing(t *testing.T) {
	mem := sink.NewMemorySink()
	cfg := testConfig("examples/two_quads.obj")
	cfg.Filter = "(> (triangles) 1"

	if _, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background()); err == nil {
		t.Fatal("expected compile error")
	}
	if n := len(mem.Names()); n != 0 {
		t.Errorf("expected no output, got %d objects", n)
	}
}

func TestRunLoadErrorWritesNothing(t *testing.T) {
	input := filepath.Join(t.TempDir(), "bad.obj")
	if err := os.WriteFile(input, []byte("v 0 0 0\nf 1 2 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mem := sink.NewMemorySink()

	res, err := NewApp(testConfig(input), nil).WithSink(mem).Run(context.Background())
	if err == nil {
		t.Fatal("expected an error for out-of-range face index")
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	if n := len(mem.Names()); n != 0 {
		t.Errorf("expected no output, got %d objects", n)
	}
}

func TestRunMissingInput(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope.obj"))
	if _, err := NewApp(cfg, nil).WithSink(sink.NewMemorySink()).Run(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

// failingSink rejects the named objects and stores the rest.
type failingSink struct {
	*sink.MemorySink
	fail map[string]bool
}

var errDiskFull = errors.New("disk full")

func (s failingSink) Put(ctx context.Context, name string, data []byte) error {
	if s.fail[name] {
		return errDiskFull
	}
	return s.MemorySink.Put(ctx, name, data)
}

func TestRunContinuesAfterWriteFailure(t *testing.T) {
	fs := failingSink{MemorySink: sink.NewMemorySink(), fail: map[string]bool{"component_1.obj": true}}
	cfg := testConfig("examples/two_quads.obj")

	res, err := NewApp(cfg, nil).WithSink(fs).Run(context.Background())
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected errDiskFull, got %v", err)
	}
	if !strings.Contains(err.Error(), "component 1") {
		t.Errorf("error does not name the failed component: %v", err)
	}
	if res == nil {
		t.Fatal("expected a partial result")
	}
	if len(res.Failed) != 1 || res.Failed[0] != 1 {
		t.Errorf("expected component 1 failed, got %v", res.Failed)
	}
	if len(res.Written) != 1 || res.Written[0].Index != 2 {
		t.Errorf("expected only component 2 written, got %+v", res.Written)
	}
	if _, ok := fs.Get("component_2.obj"); !ok {
		t.Error("component_2.obj missing")
	}

	man, err := ReadManifest(mustGet(t, fs.MemorySink, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	if len(man.Parts) != 1 || man.Parts[0].Index != 2 {
		t.Errorf("manifest lists unwritten parts: %+v", man.Parts)
	}
	if len(man.Failed) != 1 || man.Failed[0] != 1 {
		t.Errorf("manifest failed list: %v", man.Failed)
	}
}

func mustGet(t *testing.T, s *sink.MemorySink, name string) []byte {
	t.Helper()
	data, ok := s.Get(name)
	if !ok {
		t.Fatalf("%s missing", name)
	}
	return data
}

func TestRunDeterministic(t *testing.T) {
	outputs := func(workers int) map[string]string {
		mem := sink.NewMemorySink()
		cfg := testConfig("examples/two_quads.obj")
		cfg.Workers = workers
		cfg.Manifest = false
		cfg.Verify = true
		if _, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background()); err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		got := make(map[string]string)
		for _, name := range mem.Names() {
			data, _ := mem.Get(name)
			got[name] = string(data)
		}
		return got
	}

	want := outputs(1)
	for _, workers := range []int{2, 4} {
		got := outputs(workers)
		if len(got) != len(want) {
			t.Fatalf("workers=%d: got %d files, want %d", workers, len(got), len(want))
		}
		for name, data := range want {
			if got[name] != data {
				t.Errorf("workers=%d: %s differs", workers, name)
			}
		}
	}
}

func TestRunRandomSeedCoversAllFaces(t *testing.T) {
	mem := sink.NewMemorySink()
	cfg := testConfig("examples/two_quads.obj")
	cfg.RandomSeed = true
	cfg.Seed = 7

	res, err := NewApp(cfg, nil).WithSink(mem).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	total := 0
	for _, p := range res.Written {
		total += p.Faces
	}
	if res.Components != 2 || total != 4 {
		t.Errorf("expected 2 components covering 4 faces, got %d covering %d", res.Components, total)
	}
}

// lockedBuffer lets the CLI tests read stderr while the logger writes.
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func TestCLIPrintsComponentCount(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	var stderr lockedBuffer

	code := run([]string{"-in", "examples/two_quads.obj", "-out", dir, "-compact", "-log-level", "error"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "Number of connected components: 2\n" {
		t.Errorf("unexpected stdout %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "component_2.obj")); err != nil {
		t.Errorf("component_2.obj: %v", err)
	}
}

func TestCLIFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing input flag", []string{}},
		{"unknown format", []string{"-in", "examples/two_quads.obj", "-format", "ply"}},
		{"missing file", []string{"-in", "does/not/exist.obj", "-out", t.TempDir()}},
		{"unknown flag", []string{"-bogus"}},
		{"stray argument", []string{"-in", "examples/two_quads.obj", "extra"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tc.args, &stdout, &stderr); code != 1 {
				t.Errorf("exit code %d, want 1", code)
			}
		})
	}
}

func TestParseArgsConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meshsplit.toml")
	body := "input = \"from_file.obj\"\nformat = \"stl\"\nworkers = 3\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	cfg, watchMode, err := parseArgs([]string{"-config", path, "-format", "obj", "-watch"}, &stderr)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !watchMode {
		t.Error("expected watch mode")
	}
	if cfg.Input != "from_file.obj" {
		t.Errorf("input: got %q", cfg.Input)
	}
	// Explicit flags win over the file, unset flags leave it alone.
	if cfg.Format != "obj" {
		t.Errorf("format: got %q, want obj", cfg.Format)
	}
	if cfg.Workers != 3 {
		t.Errorf("workers: got %d, want 3", cfg.Workers)
	}
}

func TestParseArgsClean(t *testing.T) {
	var stderr bytes.Buffer
	cfg, _, err := parseArgs([]string{"-in", "x.obj", "-clean"}, &stderr)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !cfg.Clean {
		t.Error("expected Clean to be set")
	}
}
