package legendre

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/banshee-data/sphericalharmonics/internal/fsutil"
	"github.com/banshee-data/sphericalharmonics/internal/monitoring"
)

// sample is a deterministic, non-trivial value for (l, m, i) that does not
// survive a naive %f round trip.
func sample(l, m, i int) float64 {
	return math.Cos(float64(i)*0.37+float64(m)) * math.Pow(10, float64(l-m)) / 3
}

func csvFor(l, height int) string {
	var b strings.Builder
	for m := 0; m <= l; m++ {
		for i := 0; i < height; i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatFloat(sample(l, m, i), 'g', -1, 64))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func writeSources(t *testing.T, fsys fsutil.FileSystem, dir string, height int, levels ...int) {
	t.Helper()
	for _, l := range levels {
		path := filepath.Join(dir, fmt.Sprintf("legendres-%d.csv", l))
		if err := fsys.WriteFile(path, []byte(csvFor(l, height)), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

func expectedRows(maxL, height int, levels ...int) [][][]float64 {
	rows := make([][][]float64, maxL+1)
	for _, l := range levels {
		rows[l] = make([][]float64, l+1)
		for m := 0; m <= l; m++ {
			rows[l][m] = make([]float64, height)
			for i := range rows[l][m] {
				rows[l][m][i] = sample(l, m, i)
			}
		}
	}
	return rows
}

func quietLogs(t *testing.T) {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = orig })
}
