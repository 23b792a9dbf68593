// Package progress reports export progress to the outside world and carries
// the cooperative stop request back to the exporter.
package progress

import (
	"go.uber.org/zap"
)

// Reporter receives human-readable progress updates. Status strings are for
// presentation only.
type Reporter interface {
	// Status replaces the current status line.
	Status(msg string)
	// Done signals the end of the export run.
	Done()
	// StopRequested reports whether the user asked to stop. Checked between
	// frames.
	StopRequested() bool
}

// LogReporter writes status lines to a zap logger. It never requests a stop.
type LogReporter struct {
	Log *zap.Logger
}

// Status logs msg.
func (r LogReporter) Status(msg string) {
	r.Log.Info(msg)
}

// Done logs the completion signal.
func (r LogReporter) Done() {
	r.Log.Info("done")
}

// StopRequested always returns false.
func (r LogReporter) StopRequested() bool {
	return false
}

// Multi fans updates out to several reporters. A stop requested by any of
// them stops the export.
type Multi []Reporter

// Status forwards msg to every reporter.
func (m Multi) Status(msg string) {
	for _, r := range m {
		r.Status(msg)
	}
}

// Done forwards the completion signal.
func (m Multi) Done() {
	for _, r := range m {
		r.Done()
	}
}

// StopRequested reports whether any reporter requested a stop.
func (m Multi) StopRequested() bool {
	for _, r := range m {
		if r.StopRequested() {
			return true
		}
	}
	return false
}

// Nop ignores everything.
type Nop struct{}

func (Nop) Status(string)       {}
func (Nop) Done()               {}
func (Nop) StopRequested() bool { return false }
