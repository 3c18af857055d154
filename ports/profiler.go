package ports

// Stage identifies which trainer entry point is running while a profiler is attached
type Stage string

const (
	StageFit      Stage = "fit"
	StageValidate Stage = "validate"
	StageTest     Stage = "test"
	StagePredict  Stage = "predict"
	StageTune     Stage = "tune"
)

// SetupOptions carries the run context handed to a profiler before any action is started.
// A nil LocalRank means the run is not distributed.
type SetupOptions struct {
	Stage     Stage
	LocalRank *int
	LogDir    string
}

// TeardownOptions carries the run context handed to a profiler once profiling concludes
type TeardownOptions struct {
	Stage Stage
}

// Profiler measures and reports time spent in named actions.
//
// Behaviour for a Stop without a matching Start, or for a repeated Start of
// the same action, is defined by each implementation.
type Profiler interface {
	// Start begins recording the named action.
	Start(action string) error
	// Stop records the measurement for the named action.
	Stop(action string) error
	// Summary renders the collected measurements as text without mutating them.
	Summary() string
	// Setup runs once before the first Start.
	Setup(opts SetupOptions) error
	// Teardown runs once profiling concludes.
	Teardown(opts TeardownOptions) error
}

// AbstractProfiler is the previous name of Profiler.
//
// Deprecated: AbstractProfiler was deprecated in v1.6 and will be removed in v1.8. Use Profiler.
type AbstractProfiler = Profiler
