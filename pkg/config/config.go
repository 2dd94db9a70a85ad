// Package config holds the settings for a meshsplit run. Values come from
// Default, are overlaid by an optional TOML file, and finally by command
// line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/chazu/meshsplit/pkg/codec"
	"github.com/chazu/meshsplit/pkg/materialize"
	"github.com/chazu/meshsplit/pkg/meshio"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// DefaultOutput is the output directory used when none is given.
const DefaultOutput = "output_components"

// Config describes one run.
type Config struct {
	Input  string `toml:"input"`
	Output string `toml:"output"` // directory path or minio:// / s3:// URL

	Format   string `toml:"format"`   // obj | stl
	Compress string `toml:"compress"` // none | gzip | zstd | lz4
	Vertices string `toml:"vertices"` // global | compact

	RandomSeed bool   `toml:"random_seed"`
	Seed       uint64 `toml:"seed"`

	Workers  int    `toml:"workers"`
	Filter   string `toml:"filter"`
	Verify   bool   `toml:"verify"`
	Manifest bool   `toml:"manifest"`
	Clean    bool   `toml:"clean"` // remove component files left by an earlier run

	LogLevel string `toml:"log_level"`

	Minio MinioConfig `toml:"minio"`
	S3    S3Config    `toml:"s3"`
}

// MinioConfig addresses a MinIO server for minio:// outputs.
type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool   `toml:"secure"`
}

// S3Config tunes s3:// outputs. Credentials come from the AWS default chain.
type S3Config struct {
	Region string `toml:"region"`
}

// Default returns the baseline configuration: OBJ output with the full
// vertex list, no compression, deterministic seeds, one worker.
func Default() Config {
	return Config{
		Output:   DefaultOutput,
		Format:   "obj",
		Compress: "none",
		Vertices: "global",
		Workers:  1,
		Manifest: true,
		LogLevel: "info",
	}
}

// Load reads a TOML file over Default. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every enumerated field and the worker count.
func (c Config) Validate() error {
	var errs []error
	if c.Input == "" {
		errs = append(errs, fmt.Errorf("%w: input path is required", ErrInvalid))
	}
	if c.Output == "" {
		errs = append(errs, fmt.Errorf("%w: output location is required", ErrInvalid))
	}
	if _, err := meshio.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if _, err := codec.ByName(c.Compress); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if _, err := materialize.ParseMode(c.Vertices); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel))
	}
	return errors.Join(errs...)
}
