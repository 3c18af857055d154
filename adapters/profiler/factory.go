package profiler

import (
	"fmt"

	"github.com/LeeChanHyuk/lightning/internal/errors"
	"github.com/LeeChanHyuk/lightning/ports"
)

// Profiler names accepted by New
const (
	NamePassThrough = "passthrough"
	NameSimple      = "simple"
	NameBase        = "base"
)

// New builds a profiler by name. An empty name selects the pass-through profiler.
func New(name, dirpath, filename string, opts ...Option) (ports.Profiler, error) {
	switch name {
	case "", NamePassThrough:
		return NewPassThroughProfiler(dirpath, filename, opts...), nil
	case NameSimple:
		return NewSimpleProfiler(dirpath, filename, opts...), nil
	case NameBase:
		p, err := NewBaseProfiler(dirpath, filename, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build base profiler")
		}
		return p, nil
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown profiler %q, expected one of %s, %s, %s",
			name, NamePassThrough, NameSimple, NameBase))
	}
}
