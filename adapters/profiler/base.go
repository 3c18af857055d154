package profiler

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/LeeChanHyuk/lightning/internal/errors"
	"github.com/LeeChanHyuk/lightning/ports"
)

// Base holds what every profiler shares: output location, run context and
// the stream summaries are written to. It does not implement Start or Stop.
// Safe for concurrent use.
type Base struct {
	dirpath  string
	filename string
	info     func(message string)

	mu        sync.Mutex
	stage     ports.Stage
	localRank *int
	logDir    string

	output *os.File
	buf    *bufio.Writer
	write  func(s string) error
}

// NewBase creates a base writing to dirpath/filename. An empty filename sends
// summaries to the rank-zero log instead of a file.
func NewBase(dirpath, filename string, opts ...Option) *Base {
	o := newOptions(opts)
	return &Base{
		dirpath:  dirpath,
		filename: filename,
		info:     o.info,
	}
}

// Stage returns the stage passed to Setup
func (b *Base) Stage() ports.Stage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stage
}

// LocalRank returns the rank passed to Setup, or 0 when none was given
func (b *Base) LocalRank() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.localRank == nil {
		return 0
	}
	return *b.localRank
}

// Summary is empty for profilers that record nothing
func (b *Base) Summary() string {
	return ""
}

// Setup records the run context
func (b *Base) Setup(opts ports.SetupOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stage = opts.Stage
	b.localRank = opts.LocalRank
	b.logDir = opts.LogDir
	return nil
}

// Teardown flushes and closes the output file if one was opened
func (b *Base) Teardown(opts ports.TeardownOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.write = nil
	if b.output == nil {
		return nil
	}
	flushErr := b.buf.Flush()
	closeErr := b.output.Close()
	b.output, b.buf = nil, nil
	if flushErr != nil {
		return errors.IOError("failed to flush profiler output", flushErr)
	}
	if closeErr != nil {
		return errors.IOError("failed to close profiler output", closeErr)
	}
	return nil
}

// Report writes summary to the output stream, opening it on first use
func (b *Base) Report(summary string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.prepareStreams(); err != nil {
		return err
	}
	if summary == "" {
		return nil
	}
	if err := b.write(summary); err != nil {
		return errors.IOError("failed to write profiler summary", err)
	}
	if b.buf != nil {
		if err := b.buf.Flush(); err != nil {
			return errors.IOError("failed to flush profiler output", err)
		}
	}
	return nil
}

// outputDir falls back to the trainer's log dir when no dirpath was configured.
// Callers hold mu.
func (b *Base) outputDir() string {
	if b.dirpath != "" {
		return b.dirpath
	}
	if b.logDir != "" {
		return b.logDir
	}
	return "."
}

func (b *Base) prepareStreams() error {
	if b.write != nil {
		return nil
	}
	if b.filename == "" {
		b.write = func(s string) error {
			b.info(s)
			return nil
		}
		return nil
	}

	dir := b.outputDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.IOError("failed to create profiler output directory", err)
	}
	path := filepath.Join(dir, b.prepareFilename("", ".txt"))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.IOError("failed to open profiler output", err)
	}
	b.output = f
	b.buf = bufio.NewWriter(f)
	b.write = func(s string) error {
		_, err := b.buf.WriteString(s)
		return err
	}
	return nil
}

// prepareFilename joins stage, filename, local rank and action with "-".
// Callers hold mu.
func (b *Base) prepareFilename(action, extension string) string {
	var parts []string
	if b.stage != "" {
		parts = append(parts, string(b.stage))
	}
	if b.filename != "" {
		parts = append(parts, b.filename)
	}
	if b.localRank != nil {
		parts = append(parts, strconv.Itoa(*b.localRank))
	}
	if action != "" {
		parts = append(parts, action)
	}
	return strings.Join(parts, "-") + extension
}
