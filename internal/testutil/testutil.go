// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the synthetic Legendre tables and log muting
// that the harmonic, render and command tests all need.
package testutil

import (
	"fmt"
	"testing"

	"github.com/banshee-data/sphericalharmonics/internal/legendre"
	"github.com/banshee-data/sphericalharmonics/internal/monitoring"
)

// SampleFunc yields the synthetic P_l,m value at sample i.
type SampleFunc func(l, m, i int) float64

// SyntheticTable builds a complete table for degrees 0..maxL with every
// sample drawn from f.
func SyntheticTable(t testing.TB, maxL, height int, f SampleFunc) *legendre.Table {
	t.Helper()
	rows := make([][][]float64, maxL+1)
	for l := range rows {
		rows[l] = make([][]float64, l+1)
		for m := range rows[l] {
			rows[l][m] = make([]float64, height)
			for i := range rows[l][m] {
				rows[l][m][i] = f(l, m, i)
			}
		}
	}
	tbl, err := legendre.NewTable(maxL, height, rows)
	if err != nil {
		t.Fatalf("synthetic table: %v", err)
	}
	return tbl
}

// QuietLogs silences monitoring.Logf for the duration of the test.
func QuietLogs(t testing.TB) {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = orig })
}

// CaptureLogs redirects monitoring.Logf into the returned slice for the
// duration of the test. Callers must not log concurrently.
func CaptureLogs(t testing.TB) *[]string {
	t.Helper()
	var lines []string
	orig := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.Logf = orig })
	return &lines
}
