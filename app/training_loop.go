package app

import (
	"context"
	"time"

	"github.com/LeeChanHyuk/lightning/adapters/profiler"
	"github.com/LeeChanHyuk/lightning/domain/core"
	"github.com/LeeChanHyuk/lightning/internal"
	"github.com/LeeChanHyuk/lightning/internal/errors"
	"github.com/LeeChanHyuk/lightning/ports"
)

// Actions recorded by the training loop
const (
	ActionTrainingEpoch = "run_training_epoch"
	ActionTrainingBatch = "run_training_batch"
	ActionTrainingStep  = "training_step"
)

// StepFunc runs one training batch
type StepFunc func(ctx context.Context, epoch, batch int) error

// FitResult describes a finished training run
type FitResult struct {
	RunID    core.RunID
	Epochs   int
	Batches  int
	Duration time.Duration
	Summary  string
}

// TrainingLoop drives a StepFunc over epochs and batches. Every region is
// wrapped in profiler calls; with the default pass-through profiler those
// calls do nothing.
type TrainingLoop struct {
	step      StepFunc
	profiler  ports.Profiler
	logger    *internal.Logger
	runID     core.RunID
	localRank *int
	logDir    string
}

// LoopOption configures a TrainingLoop
type LoopOption func(*TrainingLoop)

func WithProfiler(p ports.Profiler) LoopOption {
	return func(l *TrainingLoop) { l.profiler = p }
}

func WithLogger(logger *internal.Logger) LoopOption {
	return func(l *TrainingLoop) { l.logger = logger }
}

// WithRunID fixes the run ID instead of generating one per Fit
func WithRunID(id core.RunID) LoopOption {
	return func(l *TrainingLoop) { l.runID = id }
}

// WithLocalRank marks the loop as one worker of a distributed run
func WithLocalRank(rank int) LoopOption {
	return func(l *TrainingLoop) { l.localRank = &rank }
}

// WithLogDir sets where profilers without a dirpath write their output
func WithLogDir(dir string) LoopOption {
	return func(l *TrainingLoop) { l.logDir = dir }
}

// NewTrainingLoop creates a loop running step with a pass-through profiler unless configured otherwise
func NewTrainingLoop(step StepFunc, opts ...LoopOption) *TrainingLoop {
	l := &TrainingLoop{step: step}
	for _, opt := range opts {
		opt(l)
	}
	if l.profiler == nil {
		l.profiler = profiler.NewPassThroughProfiler("", "")
	}
	if l.logger == nil {
		l.logger = internal.DefaultLogger
	}
	return l
}

// Profiler returns the profiler attached to the loop
func (l *TrainingLoop) Profiler() ports.Profiler {
	return l.profiler
}

// Fit sets the profiler up, runs every batch of every epoch and finally
// reports and tears the profiler down, also when a step fails.
func (l *TrainingLoop) Fit(ctx context.Context, epochs, batches int) (*FitResult, error) {
	if epochs < 1 || batches < 1 {
		return nil, errors.InvalidInput("epochs and batches must be positive")
	}

	runID := l.runID
	if runID.IsEmpty() {
		runID = core.NewRunID()
	}
	logger := l.logger.WithField("run_id", runID.String())

	setup := ports.SetupOptions{Stage: ports.StageFit, LocalRank: l.localRank, LogDir: l.logDir}
	if err := l.profiler.Setup(setup); err != nil {
		return nil, errors.Wrap(err, "profiler setup failed")
	}

	logger.Info("fit started: %d epochs x %d batches", epochs, batches)
	started := time.Now()
	runErr := l.runEpochs(ctx, logger, epochs, batches)
	elapsed := time.Since(started)

	summary := l.profiler.Summary()
	finishErr := l.finish()
	if runErr != nil {
		if finishErr != nil {
			logger.Error("profiler teardown failed: %v", finishErr)
		}
		return nil, runErr
	}
	if finishErr != nil {
		return nil, errors.Wrap(finishErr, "profiler teardown failed")
	}

	logger.Info("fit finished in %s", elapsed)
	return &FitResult{
		RunID:    runID,
		Epochs:   epochs,
		Batches:  batches,
		Duration: elapsed,
		Summary:  summary,
	}, nil
}

func (l *TrainingLoop) runEpochs(ctx context.Context, logger *internal.Logger, epochs, batches int) error {
	for epoch := 0; epoch < epochs; epoch++ {
		err := profiler.Profile(l.profiler, ActionTrainingEpoch, func() error {
			return l.runBatches(ctx, epoch, batches)
		})
		if err != nil {
			return err
		}
		logger.Debug("epoch %d finished", epoch)
	}
	return nil
}

func (l *TrainingLoop) runBatches(ctx context.Context, epoch, batches int) error {
	for batch := 0; batch < batches; batch++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "training interrupted at epoch %d batch %d", epoch, batch)
		}
		err := profiler.Profile(l.profiler, ActionTrainingBatch, func() error {
			return profiler.Profile(l.profiler, ActionTrainingStep, func() error {
				return l.step(ctx, epoch, batch)
			})
		})
		if err != nil {
			return errors.Wrapf(err, "epoch %d batch %d failed", epoch, batch)
		}
	}
	return nil
}

// finish writes the summary when the profiler can report itself, then tears it down
func (l *TrainingLoop) finish() error {
	if r, ok := l.profiler.(profiler.Reporter); ok {
		return profiler.Describe(r)
	}
	return l.profiler.Teardown(ports.TeardownOptions{Stage: ports.StageFit})
}
