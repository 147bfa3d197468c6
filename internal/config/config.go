package config

import (
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/sphericalharmonics/internal/legendre"
)

// DefaultConfigPath is the path to the reference render defaults file.
const DefaultConfigPath = "config/render.defaults.json"

// RenderConfig is the optional JSON configuration for a render run. Fields
// left out of the file fall back to the defaults returned by the Get*
// accessors, so partial configs are safe. Command-line flags override it.
type RenderConfig struct {
	// Image geometry. Height is also the θ sample count of the Legendre
	// data and must match it.
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`

	// MaxL is the highest degree rendered; the table holds 0..MaxL.
	MaxL *int `json:"max_l,omitempty"`

	// Data locations
	SourcePath          *string `json:"source_path,omitempty"`
	CachePath           *string `json:"cache_path,omitempty"`
	RecoverCorruptCache *bool   `json:"recover_corrupt_cache,omitempty"`

	// Output
	OutputDir      *string `json:"output_dir,omitempty"`
	PNGCompression *string `json:"png_compression,omitempty"` // default, none, speed, best
	LegendPath     *string `json:"legend_path,omitempty"`
	CatalogPath    *string `json:"catalog_path,omitempty"`

	// Concurrency
	Workers    *int `json:"workers,omitempty"`
	RowWorkers *int `json:"row_workers,omitempty"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// EmptyRenderConfig returns a RenderConfig with all fields set to nil.
func EmptyRenderConfig() *RenderConfig {
	return &RenderConfig{}
}

// Resolved returns a copy of c with every unset field filled with its
// default value.
func (c *RenderConfig) Resolved() *RenderConfig {
	compression := "default"
	if c.PNGCompression != nil {
		compression = *c.PNGCompression
	}
	return &RenderConfig{
		Width:               ptrInt(c.GetWidth()),
		Height:              ptrInt(c.GetHeight()),
		MaxL:                ptrInt(c.GetMaxL()),
		SourcePath:          ptrString(c.GetSourcePath()),
		CachePath:           ptrString(c.GetCachePath()),
		RecoverCorruptCache: ptrBool(c.GetRecoverCorruptCache()),
		OutputDir:           ptrString(c.GetOutputDir()),
		PNGCompression:      ptrString(compression),
		LegendPath:          ptrString(c.GetLegendPath()),
		CatalogPath:         ptrString(c.GetCatalogPath()),
		Workers:             ptrInt(c.GetWorkers()),
		RowWorkers:          ptrInt(c.GetRowWorkers()),
	}
}

// String renders the resolved configuration as compact JSON for logging.
func (c *RenderConfig) String() string {
	data, err := json.Marshal(c.Resolved())
	if err != nil {
		return fmt.Sprintf("<invalid config: %v>", err)
	}
	return string(data)
}

// LoadRenderConfig loads a RenderConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadRenderConfig(path string) (*RenderConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRenderConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RenderConfig) Validate() error {
	if c.Width != nil && *c.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", *c.Width)
	}
	if c.Height != nil && *c.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", *c.Height)
	}
	if c.MaxL != nil && (*c.MaxL < 1 || *c.MaxL > legendre.MaxDegree) {
		return fmt.Errorf("max_l must be between 1 and %d, got %d", legendre.MaxDegree, *c.MaxL)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.RowWorkers != nil && *c.RowWorkers < 0 {
		return fmt.Errorf("row_workers must be non-negative, got %d", *c.RowWorkers)
	}
	if c.PNGCompression != nil {
		if _, err := parseCompression(*c.PNGCompression); err != nil {
			return err
		}
	}
	return nil
}

// GetWidth returns the width value or the default.
func (c *RenderConfig) GetWidth() int {
	if c.Width == nil {
		return 6000
	}
	return *c.Width
}

// GetHeight returns the height value or the default.
func (c *RenderConfig) GetHeight() int {
	if c.Height == nil {
		return 3000
	}
	return *c.Height
}

// GetMaxL returns the max_l value or the default. The stock data set holds
// legendres-0.csv through legendres-49.csv.
func (c *RenderConfig) GetMaxL() int {
	if c.MaxL == nil {
		return 49
	}
	return *c.MaxL
}

// GetSourcePath returns the source_path value or the default.
func (c *RenderConfig) GetSourcePath() string {
	if c.SourcePath == nil {
		return "."
	}
	return *c.SourcePath
}

// GetCachePath returns the cache_path value or the default.
func (c *RenderConfig) GetCachePath() string {
	if c.CachePath == nil {
		return "legendres.bin"
	}
	return *c.CachePath
}

// GetRecoverCorruptCache returns the recover_corrupt_cache value or the default.
func (c *RenderConfig) GetRecoverCorruptCache() bool {
	if c.RecoverCorruptCache == nil {
		return false
	}
	return *c.RecoverCorruptCache
}

// GetOutputDir returns the output_dir value or the default.
func (c *RenderConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return "."
	}
	return *c.OutputDir
}

// GetPNGCompression returns the png_compression level, or the default on a
// missing or unparsable value.
func (c *RenderConfig) GetPNGCompression() png.CompressionLevel {
	if c.PNGCompression == nil {
		return png.DefaultCompression
	}
	level, err := parseCompression(*c.PNGCompression)
	if err != nil {
		return png.DefaultCompression
	}
	return level
}

// GetLegendPath returns the legend_path value or the default (disabled).
func (c *RenderConfig) GetLegendPath() string {
	if c.LegendPath == nil {
		return ""
	}
	return *c.LegendPath
}

// GetCatalogPath returns the catalog_path value or the default (disabled).
func (c *RenderConfig) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return ""
	}
	return *c.CatalogPath
}

// GetWorkers returns the number of images rendered concurrently.
func (c *RenderConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return 1
	}
	return *c.Workers
}

// GetRowWorkers returns the per-image row parallelism.
func (c *RenderConfig) GetRowWorkers() int {
	if c.RowWorkers == nil || *c.RowWorkers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.RowWorkers
}

func parseCompression(s string) (png.CompressionLevel, error) {
	switch s {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	}
	return 0, fmt.Errorf("png_compression must be one of default, none, speed, best; got %q", s)
}
