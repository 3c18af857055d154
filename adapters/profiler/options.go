package profiler

import (
	"time"

	"github.com/LeeChanHyuk/lightning/internal/rankzero"
	"github.com/LeeChanHyuk/lightning/ports"
)

// DelegateFactory builds the profiler a BaseProfiler forwards to
type DelegateFactory func(dirpath, filename string) (ports.Profiler, error)

// Option configures profiler constructors. Options a constructor has no use for are ignored.
type Option func(*options)

type options struct {
	extended bool
	clock    func() time.Time
	info     func(message string)
	notifier ports.DeprecationNotifier
	delegate DelegateFactory
}

func newOptions(opts []Option) *options {
	o := &options{
		extended: true,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.info == nil {
		o.info = rankzero.Default().Info
	}
	if o.notifier == nil {
		o.notifier = rankzero.Default()
	}
	return o
}

// WithExtended toggles the extended SimpleProfiler report (calls, percentage, std dev)
func WithExtended(extended bool) Option {
	return func(o *options) { o.extended = extended }
}

// WithClock replaces time.Now for timing
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithInfo sets where summaries go when no output filename is configured
func WithInfo(info func(message string)) Option {
	return func(o *options) { o.info = info }
}

// WithNotifier sets the channel deprecation notices are sent to
func WithNotifier(notifier ports.DeprecationNotifier) Option {
	return func(o *options) { o.notifier = notifier }
}

// WithDelegate sets how BaseProfiler builds the profiler it forwards to
func WithDelegate(factory DelegateFactory) Option {
	return func(o *options) { o.delegate = factory }
}
