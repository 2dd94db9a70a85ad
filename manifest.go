package main

import (
	"context"
	"fmt"
	"time"

	"github.com/chazu/meshsplit/pkg/codec"
	"github.com/chazu/meshsplit/pkg/materialize"
	"github.com/chazu/meshsplit/pkg/meshio"
	"github.com/chazu/meshsplit/pkg/sink"
	"github.com/pelletier/go-toml/v2"
)

// Manifest is the TOML summary stored with each run's output.
type Manifest struct {
	RunID      string       `toml:"run_id"`
	Created    time.Time    `toml:"created"`
	Input      string       `toml:"input"`
	Format     string       `toml:"format"`
	Compress   string       `toml:"compress"`
	Vertices   string       `toml:"vertices"`
	Faces      int          `toml:"faces"`
	Components int          `toml:"components"`
	Skipped    []int        `toml:"skipped,omitempty"`
	Failed     []int        `toml:"failed,omitempty"`
	Parts      []PartResult `toml:"part"`
}

func (a *App) writeManifest(ctx context.Context, out sink.Sink, res *Result,
	format meshio.Format, comp codec.Codec, mode materialize.Mode) error {
	man := Manifest{
		RunID:      res.RunID,
		Created:    time.Now().UTC().Truncate(time.Second),
		Input:      a.cfg.Input,
		Format:     format.String(),
		Compress:   comp.Name(),
		Vertices:   mode.String(),
		Faces:      res.Faces,
		Components: res.Components,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
		Parts:      res.Written,
	}
	data, err := toml.Marshal(man)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	if err := out.Put(ctx, ManifestName, data); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// ReadManifest decodes a manifest previously written by Run.
func ReadManifest(data []byte) (Manifest, error) {
	var man Manifest
	if err := toml.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("manifest: %w", err)
	}
	return man, nil
}
