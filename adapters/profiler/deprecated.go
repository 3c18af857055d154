package profiler

import (
	"time"

	"github.com/LeeChanHyuk/lightning/ports"
)

const baseProfilerDeprecation = "`BaseProfiler` was deprecated in v1.6 and will be removed in v1.8. Please use `Profiler` instead."

// BaseProfiler forwards every call to a delegate profiler built from the same
// dirpath and filename. Apart from the stage passed to Setup it keeps no
// state of its own.
//
// Deprecated: BaseProfiler was deprecated in v1.6 and will be removed in v1.8.
// Use a ports.Profiler implementation such as SimpleProfiler.
type BaseProfiler struct {
	delegate ports.Profiler
	stage    ports.Stage
}

// NewBaseProfiler sends one deprecation notice, then builds the delegate.
// Without WithDelegate the delegate is a SimpleProfiler.
func NewBaseProfiler(dirpath, filename string, opts ...Option) (*BaseProfiler, error) {
	o := newOptions(opts)
	o.notifier.Notify(baseProfilerDeprecation)

	factory := o.delegate
	if factory == nil {
		factory = func(dirpath, filename string) (ports.Profiler, error) {
			return NewSimpleProfiler(dirpath, filename, opts...), nil
		}
	}
	delegate, err := factory(dirpath, filename)
	if err != nil {
		return nil, err
	}
	return &BaseProfiler{delegate: delegate}, nil
}

func (p *BaseProfiler) Start(action string) error { return p.delegate.Start(action) }
func (p *BaseProfiler) Stop(action string) error { return p.delegate.Stop(action) }
func (p *BaseProfiler) Summary() string { return p.delegate.Summary() }

func (p *BaseProfiler) Setup(opts ports.SetupOptions) error {
	p.stage = opts.Stage
	return p.delegate.Setup(opts)
}

func (p *BaseProfiler) Teardown(opts ports.TeardownOptions) error {
	return p.delegate.Teardown(opts)
}

// Report forwards to the delegate when it can write its own summary
func (p *BaseProfiler) Report(summary string) error {
	if r, ok := p.delegate.(Reporter); ok {
		return r.Report(summary)
	}
	return nil
}

// Stage prefers the delegate's own stage and falls back to the one seen by Setup
func (p *BaseProfiler) Stage() ports.Stage {
	if r, ok := p.delegate.(Reporter); ok {
		return r.Stage()
	}
	return p.stage
}

// RecordedDurations forwards to the delegate, or returns nil when it records nothing
func (p *BaseProfiler) RecordedDurations() map[string][]time.Duration {
	if d, ok := p.delegate.(Durations); ok {
		return d.RecordedDurations()
	}
	return nil
}

var _ ports.Profiler = (*BaseProfiler)(nil)
var _ Reporter = (*BaseProfiler)(nil)
var _ Durations = (*BaseProfiler)(nil)
