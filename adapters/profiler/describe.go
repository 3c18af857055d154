package profiler

import (
	stderrors "errors"
	"time"

	"github.com/LeeChanHyuk/lightning/ports"
)

// Reporter is a profiler that can write its own summary
type Reporter interface {
	ports.Profiler
	Report(summary string) error
	Stage() ports.Stage
}

// Durations is a profiler that keeps every duration it recorded
type Durations interface {
	RecordedDurations() map[string][]time.Duration
}

// DurationsOf returns the recorded durations behind p. A deprecated
// BaseProfiler counts only when its delegate records durations.
func DurationsOf(p ports.Profiler) (Durations, bool) {
	if bp, ok := p.(*BaseProfiler); ok {
		if _, records := bp.delegate.(Durations); !records {
			return nil, false
		}
		return bp, true
	}
	d, ok := p.(Durations)
	return d, ok
}

// Describe writes the profiler's summary to its output and tears it down
func Describe(p Reporter) error {
	reportErr := p.Report(p.Summary())
	teardownErr := p.Teardown(ports.TeardownOptions{Stage: p.Stage()})
	return stderrors.Join(reportErr, teardownErr)
}

// Profile records fn under action. Stop runs even when fn fails.
func Profile(p ports.Profiler, action string, fn func() error) error {
	if err := p.Start(action); err != nil {
		return err
	}
	fnErr := fn()
	stopErr := p.Stop(action)
	if fnErr == nil {
		return stopErr
	}
	if stopErr == nil {
		return fnErr
	}
	return stderrors.Join(fnErr, stopErr)
}
