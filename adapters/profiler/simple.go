package profiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/LeeChanHyuk/lightning/internal/errors"
	"github.com/LeeChanHyuk/lightning/ports"
)

const lineSep = "\n"

// SimpleProfiler records the wall-clock duration of every action and reports
// mean and total time per action. Safe for concurrent use.
type SimpleProfiler struct {
	*Base

	extended  bool
	clock     func() time.Time
	startTime time.Time

	mu       sync.Mutex
	current  map[string]time.Time
	recorded map[string][]time.Duration
	order    []string
}

func NewSimpleProfiler(dirpath, filename string, opts ...Option) *SimpleProfiler {
	o := newOptions(opts)
	return &SimpleProfiler{
		Base:      NewBase(dirpath, filename, opts...),
		extended:  o.extended,
		clock:     o.clock,
		startTime: o.clock(),
		current:   make(map[string]time.Time),
		recorded:  make(map[string][]time.Duration),
	}
}

// Start fails if action is already running
func (p *SimpleProfiler) Start(action string) error {
	now := p.clock()
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, running := p.current[action]; running {
		return errors.ActionAlreadyStarted(action)
	}
	p.current[action] = now
	return nil
}

// Stop fails if action was never started
func (p *SimpleProfiler) Stop(action string) error {
	end := p.clock()
	p.mu.Lock()
	defer p.mu.Unlock()
	start, running := p.current[action]
	if !running {
		return errors.ActionNotStarted(action)
	}
	delete(p.current, action)
	if _, seen := p.recorded[action]; !seen {
		p.order = append(p.order, action)
	}
	p.recorded[action] = append(p.recorded[action], end.Sub(start))
	return nil
}

// RecordedDurations returns a copy of every duration recorded so far, per action
func (p *SimpleProfiler) RecordedDurations() map[string][]time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string][]time.Duration, len(p.recorded))
	for action, durations := range p.recorded {
		out[action] = append([]time.Duration(nil), durations...)
	}
	return out
}

type reportRow struct {
	action  string
	mean    float64
	stdDev  float64
	calls   int
	total   float64
	percent float64
}

// makeReport must be called with mu held
func (p *SimpleProfiler) makeReport() (rows []reportRow, totalCalls int, totalDuration float64) {
	totalDuration = p.clock().Sub(p.startTime).Seconds()
	for _, action := range p.order {
		seconds := toSeconds(p.recorded[action])
		mean, _ := stats.Mean(seconds)
		sum, _ := stats.Sum(seconds)
		row := reportRow{action: action, mean: mean, calls: len(seconds), total: sum}
		if len(seconds) > 1 {
			row.stdDev = stat.StdDev(seconds, nil)
		}
		if totalDuration > 0 {
			row.percent = 100 * sum / totalDuration
		}
		totalCalls += row.calls
		rows = append(rows, row)
	}
	if p.extended {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].percent > rows[j].percent })
	} else {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].mean > rows[j].mean })
	}
	return rows, totalCalls, totalDuration
}

// Summary renders the recorded durations as a text table
func (p *SimpleProfiler) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out strings.Builder
	if stage := p.Stage(); stage != "" {
		out.WriteString(strings.ToUpper(string(stage)) + " ")
	}
	if len(p.order) > 0 {
		rows, totalCalls, totalDuration := p.makeReport()
		maxKey := len("Action")
		for _, row := range rows {
			if len(row.action) > maxKey {
				maxKey = len(row.action)
			}
		}
		if p.extended {
			writeExtended(&out, maxKey, rows, totalCalls, totalDuration)
		} else {
			writeCompact(&out, maxKey, rows)
		}
	}
	out.WriteString(lineSep)
	return out.String()
}

func writeExtended(out *strings.Builder, maxKey int, rows []reportRow, totalCalls int, totalDuration float64) {
	logRow := func(action, mean, stdDev, calls, total, percent string) string {
		return fmt.Sprintf("%s|  %-*s\t|  %-15s\t|  %-15s\t|%-15s\t|  %-15s\t|  %-15s\t|",
			lineSep, maxKey, action, mean, stdDev, calls, total, percent)
	}
	header := logRow("Action", "Mean duration (s)", "Std dev (s)", "Num calls", "Total time (s)", "Percentage %")
	sepLine := lineSep + strings.Repeat("-", expandedWidth(header))

	out.WriteString(sepLine + header + sepLine)
	out.WriteString(logRow("Total", "-", "-", strconv.Itoa(totalCalls), formatSeconds(totalDuration), "100 %"))
	out.WriteString(sepLine)
	for _, row := range rows {
		out.WriteString(logRow(row.action, formatSeconds(row.mean), formatSeconds(row.stdDev),
			strconv.Itoa(row.calls), formatSeconds(row.total), formatSeconds(row.percent)))
	}
	out.WriteString(sepLine)
}

func writeCompact(out *strings.Builder, maxKey int, rows []reportRow) {
	logRow := func(action, mean, total string) string {
		return fmt.Sprintf("%s|  %-*s\t|  %-15s\t|  %-15s\t|", lineSep, maxKey, action, mean, total)
	}
	header := logRow("Action", "Mean duration (s)", "Total time (s)")
	sepLine := lineSep + strings.Repeat("-", expandedWidth(header))

	out.WriteString(sepLine + header + sepLine)
	for _, row := range rows {
		out.WriteString(logRow(row.action, formatSeconds(row.mean), formatSeconds(row.total)))
	}
	out.WriteString(sepLine)
}

func toSeconds(durations []time.Duration) []float64 {
	seconds := make([]float64, len(durations))
	for i, d := range durations {
		seconds[i] = d.Seconds()
	}
	return seconds
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'g', 5, 64)
}

// expandedWidth is the length of s once tabs are expanded to 8-column stops
func expandedWidth(s string) int {
	col, width := 0, 0
	for _, r := range s {
		switch r {
		case '\t':
			pad := 8 - col%8
			col += pad
			width += pad
		case '\n':
			col = 0
			width++
		default:
			col++
			width++
		}
	}
	return width
}

var _ ports.Profiler = (*SimpleProfiler)(nil)
var _ Reporter = (*SimpleProfiler)(nil)
var _ Durations = (*SimpleProfiler)(nil)
