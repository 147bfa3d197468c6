// Command harmonics renders one equirectangular PNG per real spherical
// harmonic Y_l,m, 1 ≤ l ≤ max_l, |m| ≤ l, from precomputed Legendre samples.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/sphericalharmonics/internal/catalog"
	"github.com/banshee-data/sphericalharmonics/internal/config"
	"github.com/banshee-data/sphericalharmonics/internal/fsutil"
	"github.com/banshee-data/sphericalharmonics/internal/legend"
	"github.com/banshee-data/sphericalharmonics/internal/legendre"
	"github.com/banshee-data/sphericalharmonics/internal/monitoring"
	"github.com/banshee-data/sphericalharmonics/internal/render"
	"github.com/banshee-data/sphericalharmonics/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Printf("harmonics: %v", err)
		stop()
		os.Exit(1)
	}
}

// parseConfig builds the effective configuration: defaults, then the
// optional -config file, then any flags given explicitly.
func parseConfig(args []string, stdout io.Writer) (*config.RenderConfig, bool, error) {
	fs := flag.NewFlagSet("harmonics", flag.ContinueOnError)
	fs.SetOutput(stdout)

	configPath := fs.String("config", "", "Path to a JSON render config (see config/render.defaults.json)")
	showVersion := fs.Bool("version", false, "Print version and exit")

	width := fs.Int("width", 0, "Image width in pixels (φ samples)")
	height := fs.Int("height", 0, "Image height in pixels; must equal the θ samples in the data")
	maxL := fs.Int("max-l", 0, "Highest degree l to render")
	source := fs.String("source", "", "Directory holding legendres-<l>.csv files")
	cache := fs.String("cache", "", "Binary table cache path")
	recoverCache := fs.Bool("recover-cache", false, "Rebuild from sources when the cache is corrupt or stale")
	output := fs.String("output", "", "Output directory for PNG files")
	compression := fs.String("png-compression", "", "PNG compression: default, none, speed, best")
	legendPath := fs.String("legend", "", "Also write a colour-scale legend to this path")
	catalogPath := fs.String("catalog", "", "Record the run in this SQLite catalogue")
	workers := fs.Int("workers", 0, "Images rendered concurrently")
	rowWorkers := fs.Int("row-workers", 0, "Goroutines per image pass (0 = GOMAXPROCS)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil, true, nil
	}

	cfg := config.EmptyRenderConfig()
	if *configPath != "" {
		loaded, err := config.LoadRenderConfig(*configPath)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}

	// Only flags the user actually set override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = width
		case "height":
			cfg.Height = height
		case "max-l":
			cfg.MaxL = maxL
		case "source":
			cfg.SourcePath = source
		case "cache":
			cfg.CachePath = cache
		case "recover-cache":
			cfg.RecoverCorruptCache = recoverCache
		case "output":
			cfg.OutputDir = output
		case "png-compression":
			cfg.PNGCompression = compression
		case "legend":
			cfg.LegendPath = legendPath
		case "catalog":
			cfg.CatalogPath = catalogPath
		case "workers":
			cfg.Workers = workers
		case "row-workers":
			cfg.RowWorkers = rowWorkers
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, false, nil
}

// tableOptions maps the configuration onto the loader. The CSV parse pool
// keeps the loader's default size.
func tableOptions(cfg *config.RenderConfig) legendre.Options {
	return legendre.Options{
		MaxL:                cfg.GetMaxL(),
		Height:              cfg.GetHeight(),
		SourceDir:           cfg.GetSourcePath(),
		CachePath:           cfg.GetCachePath(),
		RecoverCorruptCache: cfg.GetRecoverCorruptCache(),
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, exit, err := parseConfig(args, stdout)
	if err != nil || exit {
		return err
	}

	fsys := fsutil.OSFileSystem{}
	monitoring.Logf("harmonics %s: config %s", version.Version, cfg)

	done := monitoring.Stage("load legendre table")
	table, err := legendre.Load(ctx, fsys, tableOptions(cfg))
	done()
	if err != nil {
		return err
	}

	renderer, err := render.NewRenderer(table, cfg.GetWidth(), cfg.GetHeight())
	if err != nil {
		return err
	}
	renderer.RowWorkers = cfg.GetRowWorkers()

	driver := &render.Driver{
		Renderer: renderer,
		Encoder: &render.PNGEncoder{
			FS:          fsys,
			Dir:         cfg.GetOutputDir(),
			Compression: cfg.GetPNGCompression(),
		},
		Workers: cfg.GetWorkers(),
	}

	if path := cfg.GetLegendPath(); path != "" {
		if err := legend.Write(fsys, path); err != nil {
			monitoring.Logf("harmonics: legend not written: %v", err)
		} else {
			monitoring.Logf("harmonics: wrote legend %s", path)
		}
	}

	var catRun *catalog.Run
	if path := cfg.GetCatalogPath(); path != "" {
		cat, err := catalog.Open(path)
		if err != nil {
			return err
		}
		defer cat.Close()
		catRun, err = cat.StartRun(ctx, catalog.RunParams{
			MaxL:       cfg.GetMaxL(),
			Width:      cfg.GetWidth(),
			Height:     cfg.GetHeight(),
			SourcePath: cfg.GetSourcePath(),
			OutputDir:  cfg.GetOutputDir(),
		})
		if err != nil {
			return err
		}
		driver.Recorder = catRun
		monitoring.Logf("harmonics: catalogue run %s", catRun.ID)
	}

	done = monitoring.Stage("render")
	sum, runErr := driver.RenderAll(ctx, cfg.GetMaxL())
	done()

	if catRun != nil {
		// The run context may be cancelled already; the final status must
		// still be written.
		if err := catRun.Finish(context.WithoutCancel(ctx), sum, runErr); err != nil {
			monitoring.Logf("harmonics: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(stdout, "rendered %d images: %d written, %d failed\n", sum.Rendered, sum.Written, sum.Failed)
	return nil
}
