package legendre

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/sphericalharmonics/internal/fsutil"
	"github.com/banshee-data/sphericalharmonics/internal/monitoring"
)

// SourcePattern is the glob for per-degree source files, e.g. legendres-7.csv.
const SourcePattern = "legendres-*.csv"

// Options controls Load.
type Options struct {
	// MaxL is the highest degree to hold; files for larger l are ignored.
	MaxL int
	// Height is the number of θ samples each source row must contain.
	Height int
	// SourceDir holds the legendres-<l>.csv files.
	SourceDir string
	// CachePath is the binary cache location. Empty disables caching.
	CachePath string
	// RecoverCorruptCache rebuilds from SourceDir when the cache is
	// unreadable or stale, instead of failing.
	RecoverCorruptCache bool
	// Workers bounds concurrent CSV parsing. Zero means GOMAXPROCS.
	Workers int
}

// Load returns the Legendre table, preferring the cache and falling back to
// the source CSV files. A freshly parsed table is written back to the cache;
// failing to do so is logged and otherwise ignored.
func Load(ctx context.Context, fsys fsutil.FileSystem, opts Options) (*Table, error) {
	if err := checkDims(opts.MaxL, opts.Height); err != nil {
		return nil, err
	}

	// cacheErr is kept so a failed recovery reports the corrupt cache rather
	// than the absence of sources.
	var cacheErr error
	if opts.CachePath != "" && fsys.Exists(opts.CachePath) {
		t, err := loadCache(fsys, opts)
		if err == nil {
			monitoring.Logf("legendre: loaded cache %s (max_l=%d height=%d)", opts.CachePath, t.maxL, t.height)
			return t, nil
		}
		if !opts.RecoverCorruptCache {
			return nil, err
		}
		cacheErr = err
		monitoring.Logf("legendre: %v; rebuilding from %s", err, opts.SourceDir)
	}

	t, err := loadSources(ctx, fsys, opts)
	if err != nil {
		if cacheErr != nil && errors.Is(err, ErrDataUnavailable) {
			return nil, cacheErr
		}
		return nil, err
	}

	if opts.CachePath != "" {
		if err := fsys.WriteFile(opts.CachePath, EncodeCache(t), 0644); err != nil {
			monitoring.Logf("legendre: failed to write cache %s: %v", opts.CachePath, err)
		} else {
			monitoring.Logf("legendre: wrote cache %s", opts.CachePath)
		}
	}
	return t, nil
}

func loadCache(fsys fsutil.FileSystem, opts Options) (*Table, error) {
	info, err := fsys.Stat(opts.CachePath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat cache %s: %v", ErrDataCorrupt, opts.CachePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: cache %s is a directory", ErrDataCorrupt, opts.CachePath)
	}
	if limit := cacheSizeLimit(opts.MaxL, opts.Height); info.Size() > limit {
		return nil, fmt.Errorf("%w: cache %s is %d bytes, larger than any max_l=%d height=%d table (%d)",
			ErrDataCorrupt, opts.CachePath, info.Size(), opts.MaxL, opts.Height, limit)
	}

	data, err := fsys.ReadFile(opts.CachePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read cache %s: %v", ErrDataCorrupt, opts.CachePath, err)
	}
	t, err := DecodeCache(data)
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", opts.CachePath, err)
	}
	if t.maxL != opts.MaxL || t.height != opts.Height {
		return nil, fmt.Errorf("%w: cache %s is stale: max_l=%d height=%d, want max_l=%d height=%d",
			ErrDataCorrupt, opts.CachePath, t.maxL, t.height, opts.MaxL, opts.Height)
	}
	return t, nil
}

// sourceFile is one legendres-<l>.csv candidate.
type sourceFile struct {
	l    int
	path string
}

func listSources(fsys fsutil.FileSystem, opts Options) ([]sourceFile, error) {
	matches, err := fsys.Glob(filepath.Join(opts.SourceDir, SourcePattern))
	if err != nil {
		return nil, fmt.Errorf("list sources in %s: %w", opts.SourceDir, err)
	}

	seen := make(map[int]string)
	var files []sourceFile
	for _, path := range matches {
		l, ok := degreeFromName(path)
		if !ok {
			monitoring.Logf("legendre: skipping %s: no degree in file name", path)
			continue
		}
		if l > opts.MaxL {
			monitoring.Logf("legendre: skipping %s: l=%d above max_l=%d", path, l, opts.MaxL)
			continue
		}
		if prev, dup := seen[l]; dup {
			return nil, fmt.Errorf("%w: %s and %s both hold l=%d", ErrDataCorrupt, prev, path, l)
		}
		seen[l] = path
		files = append(files, sourceFile{l: l, path: path})
	}
	return files, nil
}

// degreeFromName extracts l from ".../legendres-<l>.csv".
func degreeFromName(path string) (int, bool) {
	base := filepath.Base(path)
	s := strings.TrimSuffix(strings.TrimPrefix(base, "legendres-"), ".csv")
	l, err := strconv.Atoi(s)
	if err != nil || l < 0 {
		return 0, false
	}
	return l, true
}

func loadSources(ctx context.Context, fsys fsutil.FileSystem, opts Options) (*Table, error) {
	files, err := listSources(fsys, opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no cache at %q and no %s files in %s",
			ErrDataUnavailable, opts.CachePath, SourcePattern, opts.SourceDir)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rows := make([][][]float64, opts.MaxL+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			level, err := parseSourceFile(fsys, f, opts.Height)
			if err != nil {
				return err
			}
			// Each goroutine owns a distinct degree slot.
			rows[f.l] = level
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := &Table{maxL: opts.MaxL, height: opts.Height, rows: rows}
	if missing := t.Missing(0, opts.MaxL); len(missing) > 0 {
		monitoring.Logf("legendre: degrees with no source file: %v", missing)
	}
	monitoring.Logf("legendre: parsed %d source files from %s", len(files), opts.SourceDir)
	return t, nil
}

// parseSourceFile reads one per-degree CSV: row m holds height samples of
// P_l,m and there must be exactly l+1 rows.
func parseSourceFile(fsys fsutil.FileSystem, f sourceFile, height int) ([][]float64, error) {
	r, err := fsys.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDataUnavailable, f.path, err)
	}
	defer r.Close()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = height
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	level := make([][]float64, 0, f.l+1)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDataCorrupt, f.path, err)
		}
		m := len(level)
		if m > f.l {
			return nil, fmt.Errorf("%w: %s has more than %d rows for l=%d", ErrDataCorrupt, f.path, f.l+1, f.l)
		}
		row := make([]float64, height)
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s l=%d m=%d sample %d: %v", ErrDataCorrupt, f.path, f.l, m, i, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s l=%d m=%d sample %d: non-finite value %q", ErrDataCorrupt, f.path, f.l, m, i, field)
			}
			row[i] = v
		}
		level = append(level, row)
	}
	if len(level) != f.l+1 {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d for l=%d", ErrDataCorrupt, f.path, len(level), f.l+1, f.l)
	}
	return level, nil
}
