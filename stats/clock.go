// Package stats implements per-stage execution loggers for the ad selection
// pipeline and the telemetry records they emit.
package stats

import "time"

// Clock supplies timestamps to the loggers. Injected so tests can drive
// latency computation deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
