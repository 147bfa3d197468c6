package render

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/sphericalharmonics/internal/harmonic"
	"github.com/banshee-data/sphericalharmonics/internal/legendre"
	"github.com/banshee-data/sphericalharmonics/internal/monitoring"
)

// Pairs enumerates (l, m) for l = 1..maxL and m = -l..l, ascending l then m.
func Pairs(maxL int) []harmonic.Index {
	var out []harmonic.Index
	for l := 1; l <= maxL; l++ {
		for m := -l; m <= l; m++ {
			out = append(out, harmonic.Index{L: l, M: m})
		}
	}
	return out
}

// Encoder persists a rendered image and returns where it went. It is the
// boundary to image encoding and storage.
type Encoder interface {
	Encode(ctx context.Context, img *Image) (string, error)
}

// Recorder observes finished pairs, e.g. to catalogue a run.
type Recorder interface {
	Record(ctx context.Context, res Result) error
}

// Result describes the outcome for one pair.
type Result struct {
	Index harmonic.Index
	Min   float64
	Max   float64
	Path  string
	// Err is the encoder failure, if any. Evaluation failures abort the run
	// and never appear here.
	Err error
}

// Summary totals a RenderAll call. Results are in enumeration order.
type Summary struct {
	Rendered int
	Written  int
	Failed   int
	Results  []Result
}

// Driver renders every pair up to a maximum degree.
type Driver struct {
	Renderer *Renderer
	Encoder  Encoder
	// Recorder is optional.
	Recorder Recorder
	// Workers bounds how many images are in flight at once. Each in-flight
	// image holds its value grid and pixel buffer, so this is a memory knob.
	Workers int
}

// RenderAll renders l = 1..maxL, m = -l..l. An encoder failure is logged and
// the batch continues; a table or evaluation failure aborts the whole run.
//
// Each result reaches the Recorder as soon as every earlier pair has been
// recorded, so an interrupted batch still leaves a record of the images it
// wrote. Recording is not cancelled with ctx.
func (d *Driver) RenderAll(ctx context.Context, maxL int) (Summary, error) {
	table := d.Renderer.Table()
	if missing := table.Missing(1, maxL); len(missing) > 0 {
		return Summary{}, fmt.Errorf("%w: no table entry for l=%v (table holds l=%v)",
			legendre.ErrMissingLevel, missing, table.Levels())
	}

	pairs := Pairs(maxL)
	results := make([]Result, len(pairs))
	done := make([]bool, len(pairs))
	var rendered atomic.Int64

	recordCtx := context.WithoutCancel(ctx)
	var (
		mu   sync.Mutex
		next int // first pair not yet handed to the Recorder
	)
	// flush hands over results in enumeration order, stopping at the first
	// pair still in flight. The final flush skips pairs that never ran.
	flush := func(final bool) {
		for next < len(pairs) {
			if !done[next] {
				if !final {
					return
				}
				next++
				continue
			}
			d.record(recordCtx, results[next])
			next++
		}
	}

	workers := d.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, idx := range pairs {
		i, idx := i, idx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := d.Renderer.Render(gctx, idx)
			if err != nil {
				return err
			}
			n := rendered.Add(1)

			res := Result{Index: idx, Min: img.Min, Max: img.Max}
			res.Path, res.Err = d.Encoder.Encode(gctx, img)
			if res.Err != nil {
				monitoring.Logf("render: %s: encode failed: %v", idx, res.Err)
			} else {
				monitoring.Logf("render: %s -> %s [%d/%d] range [%g, %g]", idx, res.Path, n, len(pairs), img.Min, img.Max)
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			done[i] = true
			flush(false)
			return nil
		})
	}
	err := g.Wait()

	mu.Lock()
	flush(true)
	mu.Unlock()

	var sum Summary
	for i, res := range results {
		if !done[i] {
			continue
		}
		sum.Rendered++
		if res.Err != nil {
			sum.Failed++
		} else {
			sum.Written++
		}
		sum.Results = append(sum.Results, res)
	}
	return sum, err
}

func (d *Driver) record(ctx context.Context, res Result) {
	if d.Recorder == nil {
		return
	}
	if err := d.Recorder.Record(ctx, res); err != nil {
		monitoring.Logf("render: %s: record failed: %v", res.Index, err)
	}
}
