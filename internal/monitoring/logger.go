// Package monitoring holds the process-wide diagnostic logger used by the
// loader, renderer and driver.
package monitoring

import (
	"log"
	"time"

	"github.com/banshee-data/sphericalharmonics/internal/timeutil"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Clock times stages.
var Clock timeutil.Clock = timeutil.RealClock{}

// Stage logs the start of a named phase and returns a func that logs its
// elapsed time. Typical use: defer monitoring.Stage("load table")().
func Stage(name string) func() {
	clock := Clock
	start := clock.Now()
	Logf("[%s] started", name)
	return func() {
		Logf("[%s] finished in %s", name, clock.Since(start).Round(time.Millisecond))
	}
}
