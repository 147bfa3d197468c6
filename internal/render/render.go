// Package render turns one harmonic into an equirectangular RGB image and
// drives the batch over every (l, m) pair.
//
// Each image is produced in two strictly ordered passes: the value pass fills
// a width×height grid of harmonic values, then the colour pass maps every
// value through the diverging scale using that grid's own extrema. Rows within
// a pass are independent and are fanned out across goroutines.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/sphericalharmonics/internal/colormap"
	"github.com/banshee-data/sphericalharmonics/internal/harmonic"
	"github.com/banshee-data/sphericalharmonics/internal/legendre"
)

// ErrGeometry reports image dimensions the table cannot serve.
var ErrGeometry = errors.New("invalid image geometry")

// Image is a rendered harmonic: the raw value grid, its extrema and the
// coloured pixels.
type Image struct {
	Index  harmonic.Index
	Width  int
	Height int
	// Values is row-major: Values[y*Width+x].
	Values []float64
	Min    float64
	Max    float64
	Pixels *image.RGBA
}

// Value returns the raw harmonic value at pixel (x, y).
func (img *Image) Value(x, y int) float64 {
	return img.Values[y*img.Width+x]
}

// Renderer renders harmonics from a shared, read-only table.
type Renderer struct {
	table  *legendre.Table
	width  int
	height int

	// RowWorkers bounds the goroutines used per pass. Zero means GOMAXPROCS.
	RowWorkers int
}

// NewRenderer checks that the requested geometry matches the table: the θ
// axis is indexed directly by pixel row, so height must equal the table's
// sample count.
func NewRenderer(t *legendre.Table, width, height int) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrGeometry, width, height)
	}
	if height != t.Height() {
		return nil, fmt.Errorf("%w: height %d does not match table sampling %d", ErrGeometry, height, t.Height())
	}
	return &Renderer{table: t, width: width, height: height}, nil
}

// Table returns the table the renderer reads from.
func (r *Renderer) Table() *legendre.Table { return r.table }

func (r *Renderer) workers() int {
	if r.RowWorkers > 0 {
		return r.RowWorkers
	}
	return runtime.GOMAXPROCS(0)
}

// Render evaluates idx over the whole grid and colours it. Any evaluation
// failure aborts the render; no partial image is returned.
func (r *Renderer) Render(ctx context.Context, idx harmonic.Index) (*Image, error) {
	comp, err := harmonic.NewComponent(r.table, idx)
	if err != nil {
		return nil, err
	}

	w, h := r.width, r.height
	img := &Image{
		Index:  idx,
		Width:  w,
		Height: h,
		Values: make([]float64, w*h),
	}

	// Value pass. Pixel row y samples θ_y; column x samples φ = 2π·x/w.
	if err := r.eachRow(ctx, func(y int) error {
		return comp.Row(y, img.Values[y*w:(y+1)*w])
	}); err != nil {
		return nil, fmt.Errorf("render %s: %w", idx, err)
	}

	img.Min = floats.Min(img.Values)
	img.Max = floats.Max(img.Values)

	// Colour pass, only once the extrema are known.
	img.Pixels = image.NewRGBA(image.Rect(0, 0, w, h))
	if err := r.eachRow(ctx, func(y int) error {
		src := img.Values[y*w : (y+1)*w]
		dst := img.Pixels.Pix[y*img.Pixels.Stride:]
		for x, v := range src {
			c := colormap.Map(v, img.Min, img.Max)
			dst[4*x+0] = c.R
			dst[4*x+1] = c.G
			dst[4*x+2] = c.B
			dst[4*x+3] = c.A
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("render %s: %w", idx, err)
	}
	return img, nil
}

// eachRow runs fn for every row, each goroutine touching only its own rows.
func (r *Renderer) eachRow(ctx context.Context, fn func(y int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for y := 0; y < r.height; y++ {
		y := y
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(y)
		})
	}
	return g.Wait()
}

// Render is a convenience wrapper building a one-off Renderer.
func Render(ctx context.Context, t *legendre.Table, l, m, width, height int) (*Image, error) {
	r, err := NewRenderer(t, width, height)
	if err != nil {
		return nil, err
	}
	return r.Render(ctx, harmonic.Index{L: l, M: m})
}
