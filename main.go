// Command meshsplit splits a Wavefront OBJ triangle mesh into its
// face-connected components and writes each one as its own file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/meshsplit/pkg/config"
	"github.com/chazu/meshsplit/pkg/watch"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, executes one split (or keeps re-running it in watch
// mode) and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, watchMode, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger := newLogger(stderr, cfg.LogLevel)
	app := NewApp(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	once := func(ctx context.Context) error {
		res, err := app.Run(ctx)
		if res != nil {
			fmt.Fprintf(stdout, "Number of connected components: %d\n", res.Components)
		}
		return err
	}

	if !watchMode {
		if err := once(ctx); err != nil {
			logger.Error("run failed", "err", err)
			return 1
		}
		return 0
	}

	// Watch mode: run now, then again whenever the input changes.
	if err := once(ctx); err != nil {
		logger.Error("run failed", "err", err)
	}
	logger.Info("watching for changes", "path", cfg.Input)
	err = watch.File(ctx, cfg.Input, watch.DefaultDelay, once, func(err error) {
		logger.Error("run failed", "err", err)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watch failed", "err", err)
		return 1
	}
	return 0
}

// parseArgs builds the run configuration: defaults, then the -config file,
// then any flag the user set explicitly.
func parseArgs(args []string, stderr io.Writer) (config.Config, bool, error) {
	fs := flag.NewFlagSet("meshsplit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := config.Default()
	var (
		configPath = fs.String("config", "", "TOML configuration file")
		in         = fs.String("in", "", "input OBJ file")
		out        = fs.String("out", def.Output, "output directory or minio:// / s3:// URL; existing component files are overwritten but not removed unless -clean is set")
		seedRandom = fs.Bool("seed-random", false, "pick DFS seeds at random instead of lowest index first")
		seed       = fs.Uint64("seed", 0, "random seed used with -seed-random")
		compact    = fs.Bool("compact", false, "write only the vertices each component references")
		format     = fs.String("format", def.Format, "output format: obj or stl")
		compress   = fs.String("compress", def.Compress, "output compression: none, gzip, zstd or lz4")
		workers    = fs.Int("workers", def.Workers, "parallel workers for adjacency and writes")
		filterSrc  = fs.String("filter", "", "zygomys expression selecting components to write")
		verify     = fs.Bool("verify", false, "check the partition before writing")
		manifest   = fs.Bool("manifest", def.Manifest, "write manifest.toml next to the components")
		clean      = fs.Bool("clean", false, "remove component files from an earlier run before writing (local and in-memory outputs)")
		watchMode  = fs.Bool("watch", false, "re-run whenever the input file changes")
		logLevel   = fs.String("log-level", def.LogLevel, "log level: debug, info, warn or error")
	)
	if err := fs.Parse(args); err != nil {
		return def, false, err
	}
	if fs.NArg() > 0 {
		return def, false, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return def, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Input = *in
		case "out":
			cfg.Output = *out
		case "seed-random":
			cfg.RandomSeed = *seedRandom
		case "seed":
			cfg.Seed = *seed
		case "compact":
			if *compact {
				cfg.Vertices = "compact"
			} else {
				cfg.Vertices = "global"
			}
		case "format":
			cfg.Format = *format
		case "compress":
			cfg.Compress = *compress
		case "workers":
			cfg.Workers = *workers
		case "filter":
			cfg.Filter = *filterSrc
		case "verify":
			cfg.Verify = *verify
		case "manifest":
			cfg.Manifest = *manifest
		case "clean":
			cfg.Clean = *clean
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	return cfg, *watchMode, nil
}
