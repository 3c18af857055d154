package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/LeeChanHyuk/lightning/adapters/profiler"
	"github.com/LeeChanHyuk/lightning/app"
	"github.com/LeeChanHyuk/lightning/domain/core"
	"github.com/LeeChanHyuk/lightning/internal"
	"github.com/LeeChanHyuk/lightning/internal/config"
	"github.com/LeeChanHyuk/lightning/internal/errors"
	"github.com/LeeChanHyuk/lightning/internal/rankzero"
)

func main() {
	// .env is optional; the environment wins over it
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "lightning-profile",
		Short:         "Run a synthetic training loop under a configurable profiler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newFitCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.IsAppError(err) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", errors.GetCode(err), err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newFitCmd() *cobra.Command {
	var (
		profilerName string
		dirpath      string
		filename     string
		extended     bool
		export       string
		epochs       int
		batches      int
		stepTime     time.Duration
		runID        string
		seed         int64
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Run the training loop and report the profiler summary",
		Long: `Run a synthetic training loop with the profiler selected by PROFILER or --profiler.

Example: lightning-profile fit --profiler simple --epochs 2 --batches 20 --export durations.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("profiler") {
				cfg.Profiler.Name = profilerName
			}
			if flags.Changed("dirpath") {
				cfg.Profiler.Dirpath = dirpath
			}
			if flags.Changed("filename") {
				cfg.Profiler.Filename = filename
			}
			if flags.Changed("extended") {
				cfg.Profiler.Extended = extended
			}
			if flags.Changed("export") {
				cfg.Profiler.Export = export
			}
			if flags.Changed("epochs") {
				cfg.Trainer.Epochs = epochs
			}
			if flags.Changed("batches") {
				cfg.Trainer.Batches = batches
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return runFit(cmd.Context(), cfg, runID, stepTime, seed)
		},
	}

	cmd.Flags().StringVar(&profilerName, "profiler", "", "Profiler to attach: passthrough, simple or base")
	cmd.Flags().StringVar(&dirpath, "dirpath", "", "Directory for the profiler report")
	cmd.Flags().StringVar(&filename, "filename", "", "Report file name; empty logs the report instead")
	cmd.Flags().BoolVar(&extended, "extended", true, "Extended simple profiler report")
	cmd.Flags().StringVar(&export, "export", "", "Write recorded durations to a .csv or .xlsx file")
	cmd.Flags().IntVar(&epochs, "epochs", 1, "Number of epochs")
	cmd.Flags().IntVar(&batches, "batches", 10, "Batches per epoch")
	cmd.Flags().DurationVar(&stepTime, "step-time", 5*time.Millisecond, "Mean simulated duration of a training step")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run ID (UUID) to tag the run with; generated when empty")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for simulated step durations")

	return cmd
}

func runFit(ctx context.Context, cfg *config.Config, runIDFlag string, stepTime time.Duration, seed int64) error {
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	notifier := rankzero.NewNotifier(rankzero.IsPrimary, logger)

	p, err := profiler.New(cfg.Profiler.Name, cfg.Profiler.Dirpath, cfg.Profiler.Filename,
		profiler.WithExtended(cfg.Profiler.Extended),
		profiler.WithNotifier(notifier),
		profiler.WithInfo(notifier.Info),
	)
	if err != nil {
		return err
	}
	durations, timed := profiler.DurationsOf(p)
	if cfg.Profiler.Export != "" && !timed {
		return errors.InvalidInput(fmt.Sprintf("--export needs a profiler that records durations, got %q", cfg.Profiler.Name))
	}

	opts := []app.LoopOption{
		app.WithProfiler(p),
		app.WithLogger(logger),
		app.WithLogDir(cfg.Trainer.LogDir),
	}
	if runIDFlag != "" {
		id, err := core.ParseRunID(runIDFlag)
		if err != nil {
			return errors.WithCode(errors.CodeInvalidInput, err)
		}
		opts = append(opts, app.WithRunID(id))
	}
	if value := os.Getenv("LOCAL_RANK"); value != "" {
		rank, err := strconv.Atoi(value)
		if err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("LOCAL_RANK must be an integer, got %q", value))
		}
		opts = append(opts, app.WithLocalRank(rank))
	}

	rng := rand.New(rand.NewSource(seed))
	step := func(ctx context.Context, epoch, batch int) error {
		jitter := time.Duration(rng.Int63n(int64(stepTime) + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(stepTime/2 + jitter):
			return nil
		}
	}

	loop := app.NewTrainingLoop(step, opts...)
	result, err := loop.Fit(ctx, cfg.Trainer.Epochs, cfg.Trainer.Batches)
	if err != nil {
		return err
	}
	logger.Info("run %s finished %d epochs in %s", result.RunID, result.Epochs, result.Duration)

	if cfg.Profiler.Export == "" {
		return nil
	}
	if err := profiler.Export(cfg.Profiler.Export, durations.RecordedDurations()); err != nil {
		return err
	}
	logger.Info("durations written to %s", cfg.Profiler.Export)
	return nil
}
