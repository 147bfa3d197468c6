package monitoring

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/sphericalharmonics/internal/timeutil"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestStage(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	done := Stage("load table")
	if len(lines) != 1 || lines[0] != "[load table] started" {
		t.Fatalf("unexpected start lines: %v", lines)
	}
	done()
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "[load table] finished in ") {
		t.Fatalf("unexpected finish lines: %v", lines)
	}
}

func TestStage_UsesClock(t *testing.T) {
	originalLog, originalClock := Logf, Clock
	defer func() { Logf, Clock = originalLog, originalClock }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	mock := timeutil.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	Clock = mock

	done := Stage("render")
	mock.Advance(2500 * time.Millisecond)
	done()

	want := "[render] finished in 2.5s"
	if len(lines) != 2 || lines[1] != want {
		t.Fatalf("got %v, want last line %q", lines, want)
	}
}
