package testutil

import (
	"testing"

	"github.com/banshee-data/sphericalharmonics/internal/monitoring"
)

func TestSyntheticTable(t *testing.T) {
	tbl := SyntheticTable(t, 2, 3, func(l, m, i int) float64 {
		return float64(100*l + 10*m + i)
	})
	if tbl.MaxL() != 2 || tbl.Height() != 3 {
		t.Fatalf("dims = %d/%d, want 2/3", tbl.MaxL(), tbl.Height())
	}
	v, err := tbl.At(2, 1, 2)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if v != 212 {
		t.Errorf("At(2,1,2) = %v, want 212", v)
	}
}

func TestCaptureLogs(t *testing.T) {
	lines := CaptureLogs(t)
	monitoring.Logf("rendered %d", 3)
	if len(*lines) != 1 || (*lines)[0] != "rendered 3" {
		t.Errorf("captured %v", *lines)
	}
}

func TestQuietLogs(t *testing.T) {
	called := false
	orig := monitoring.Logf
	monitoring.SetLogger(func(string, ...interface{}) { called = true })
	defer func() { monitoring.Logf = orig }()

	t.Run("quiet", func(t *testing.T) {
		QuietLogs(t)
		monitoring.Logf("dropped")
	})
	if called {
		t.Error("QuietLogs should have muted the logger")
	}
	monitoring.Logf("restored")
	if !called {
		t.Error("logger should be restored after the subtest")
	}
}
