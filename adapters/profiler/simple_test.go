package profiler

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeChanHyuk/lightning/internal/errors"
	"github.com/LeeChanHyuk/lightning/ports"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func record(t *testing.T, p ports.Profiler, clock *fakeClock, action string, d time.Duration) {
	t.Helper()
	require.NoError(t, p.Start(action))
	clock.Advance(d)
	require.NoError(t, p.Stop(action))
}

func TestSimpleProfilerRecordsDurations(t *testing.T) {
	clock := newFakeClock()
	p := NewSimpleProfiler("", "", WithClock(clock.Now))

	record(t, p, clock, "training_step", time.Second)
	record(t, p, clock, "training_step", 3*time.Second)
	record(t, p, clock, "validation_step", 500*time.Millisecond)

	durations := p.RecordedDurations()
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, durations["training_step"])
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, durations["validation_step"])

	// the copy is detached from the profiler
	durations["training_step"][0] = 0
	assert.Equal(t, time.Second, p.RecordedDurations()["training_step"][0])
}

func TestSimpleProfilerErrors(t *testing.T) {
	p := NewSimpleProfiler("", "")

	err := p.Stop("never_started")
	require.Error(t, err)
	assert.Equal(t, errors.CodeActionNotStarted, errors.GetCode(err))
	assert.Contains(t, err.Error(), "never_started")

	require.NoError(t, p.Start("training_step"))
	err = p.Start("training_step")
	require.Error(t, err)
	assert.Equal(t, errors.CodeActionAlreadyStarted, errors.GetCode(err))

	// a different action may run while another is open
	require.NoError(t, p.Start("optimizer_step"))
	require.NoError(t, p.Stop("optimizer_step"))
	require.NoError(t, p.Stop("training_step"))
}

func TestSimpleProfilerExtendedSummary(t *testing.T) {
	clock := newFakeClock()
	p := NewSimpleProfiler("", "", WithClock(clock.Now))
	require.NoError(t, p.Setup(ports.SetupOptions{Stage: ports.StageFit}))

	record(t, p, clock, "validation_step", 500*time.Millisecond)
	record(t, p, clock, "training_step", time.Second)
	record(t, p, clock, "training_step", 3*time.Second)

	summary := p.Summary()

	assert.True(t, strings.HasPrefix(summary, "FIT "), summary)
	assert.True(t, strings.HasSuffix(summary, "\n"))
	for _, column := range []string{"Action", "Mean duration (s)", "Std dev (s)", "Num calls", "Total time (s)", "Percentage %"} {
		assert.Contains(t, summary, column)
	}
	assert.Contains(t, summary, "Total")
	assert.Contains(t, summary, "100 %")
	assert.Contains(t, summary, "4.5", "total elapsed time")
	assert.Contains(t, summary, "88.889", "training_step share of 4.5s")
	assert.Contains(t, summary, "11.111", "validation_step share of 4.5s")
	assert.Contains(t, summary, "1.4142", "std dev of 1s and 3s")

	// sorted by percentage, highest first
	assert.Less(t, strings.Index(summary, "training_step"), strings.Index(summary, "validation_step"))
}

func TestSimpleProfilerCompactSummary(t *testing.T) {
	clock := newFakeClock()
	p := NewSimpleProfiler("", "", WithClock(clock.Now), WithExtended(false))

	record(t, p, clock, "a_fast_action", 100*time.Millisecond)
	record(t, p, clock, "a_slow_action", 2*time.Second)

	summary := p.Summary()

	assert.Contains(t, summary, "Mean duration (s)")
	assert.NotContains(t, summary, "Num calls")
	assert.NotContains(t, summary, "Percentage %")
	assert.Contains(t, summary, "0.1")
	assert.Less(t, strings.Index(summary, "a_slow_action"), strings.Index(summary, "a_fast_action"), "sorted by mean, highest first")
}

func TestSimpleProfilerEmptySummary(t *testing.T) {
	p := NewSimpleProfiler("", "")
	assert.Equal(t, "\n", p.Summary())

	require.NoError(t, p.Setup(ports.SetupOptions{Stage: ports.StageValidate}))
	assert.Equal(t, "VALIDATE \n", p.Summary())
}

func TestSimpleProfilerSummaryIsReadOnly(t *testing.T) {
	clock := newFakeClock()
	p := NewSimpleProfiler("", "", WithClock(clock.Now))
	record(t, p, clock, "training_step", time.Second)

	before := p.RecordedDurations()
	_ = p.Summary()
	_ = p.Summary()
	assert.Equal(t, before, p.RecordedDurations())
}

func TestSimpleProfilerConcurrentActions(t *testing.T) {
	p := NewSimpleProfiler("", "")

	const workers = 8
	const iterations = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			action := "worker_" + string(rune('a'+w))
			for i := 0; i < iterations; i++ {
				assert.NoError(t, p.Start(action))
				assert.NoError(t, p.Stop(action))
			}
		}(w)
	}
	wg.Wait()

	durations := p.RecordedDurations()
	assert.Len(t, durations, workers)
	for action, recorded := range durations {
		assert.Len(t, recorded, iterations, action)
	}
}

func TestSimpleProfilerDescribeToFile(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock()
	p := NewSimpleProfiler(dir, "perf", WithClock(clock.Now))
	rank := 1
	require.NoError(t, p.Setup(ports.SetupOptions{Stage: ports.StageFit, LocalRank: &rank}))

	record(t, p, clock, "training_step", time.Second)
	require.NoError(t, Describe(p))

	content, err := os.ReadFile(filepath.Join(dir, "fit-perf-1.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "FIT ")
	assert.Contains(t, string(content), "training_step")

	// a second report appends
	require.NoError(t, Describe(p))
	content, err = os.ReadFile(filepath.Join(dir, "fit-perf-1.txt"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(content), "training_step"))
}

func TestSimpleProfilerDescribeToLog(t *testing.T) {
	var emitted []string
	clock := newFakeClock()
	p := NewSimpleProfiler("", "", WithClock(clock.Now), WithInfo(func(msg string) { emitted = append(emitted, msg) }))

	record(t, p, clock, "training_step", time.Second)
	require.NoError(t, Describe(p))

	require.Len(t, emitted, 1)
	assert.Contains(t, emitted[0], "training_step")
}
