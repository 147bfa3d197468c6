// Package legend draws the diverging colour scale as a labelled colour bar,
// so a viewer can read the per-image normalisation of the rendered harmonics.
package legend

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sphericalharmonics/internal/colormap"
	"github.com/banshee-data/sphericalharmonics/internal/fsutil"
)

// Default legend size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 1.5 * vg.Inch
)

// New builds a horizontal colour-bar plot for cmap. The map must span a
// non-empty range.
func New(cmap palette.ColorMap, title string) (*plot.Plot, error) {
	if !(cmap.Max() > cmap.Min()) {
		return nil, fmt.Errorf("legend: colour map range [%g, %g] is empty", cmap.Min(), cmap.Max())
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "value relative to image range (min → max)"
	p.HideY()
	p.X.Min = cmap.Min()
	p.X.Max = cmap.Max()

	bar := &plotter.ColorBar{ColorMap: cmap, Colors: colormap.Steps}
	p.Add(bar)
	return p, nil
}

// Write renders the standard legend (the full scale over [0, 1]) to path.
// The format follows the file extension (png, svg, pdf, ...).
func Write(fsys fsutil.FileSystem, path string) error {
	p, err := New(colormap.NewDiverging(0, 1), "Spherical harmonic colour scale")
	if err != nil {
		return err
	}
	return Save(fsys, p, path, DefaultWidth, DefaultHeight)
}

// Save writes p to path through fsys.
func Save(fsys fsutil.FileSystem, p *plot.Plot, path string, w, h vg.Length) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "png"
	}
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return fmt.Errorf("legend: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("legend: create dir %s: %w", dir, err)
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("legend: create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("legend: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("legend: close %s: %w", path, err)
	}
	return nil
}
