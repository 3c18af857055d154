// Package rankzero restricts log output to the primary process of a distributed run.
package rankzero

import (
	"os"
	"strconv"
	"sync"

	"github.com/LeeChanHyuk/lightning/internal"
	"github.com/LeeChanHyuk/lightning/ports"
)

// rankEnvKeys are checked in order; the first one set wins.
var rankEnvKeys = []string{"RANK", "LOCAL_RANK", "SLURM_PROCID", "JSM_NAMESPACE_RANK"}

// Rank returns the global rank of this process as advertised by the launcher, or 0
func Rank() int {
	for _, key := range rankEnvKeys {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		rank, err := strconv.Atoi(value)
		if err != nil {
			return 0
		}
		return rank
	}
	return 0
}

// IsPrimary reports whether this process is rank zero
func IsPrimary() bool {
	return Rank() == 0
}

// Notifier emits deprecation and info messages on the primary process only.
// Each distinct deprecation message is emitted at most once.
type Notifier struct {
	isPrimary func() bool
	logger    *internal.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewNotifier creates a notifier. A nil isPrimary defaults to IsPrimary.
func NewNotifier(isPrimary func() bool, logger *internal.Logger) *Notifier {
	if isPrimary == nil {
		isPrimary = IsPrimary
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Notifier{
		isPrimary: isPrimary,
		logger:    logger,
		seen:      make(map[string]struct{}),
	}
}

// Notify emits a deprecation warning once per message on rank zero
func (n *Notifier) Notify(message string) {
	if !n.isPrimary() {
		return
	}
	n.mu.Lock()
	_, dup := n.seen[message]
	n.seen[message] = struct{}{}
	n.mu.Unlock()
	if dup {
		return
	}
	n.logger.Warn("DeprecationWarning: %s", message)
}

// Info emits an info message on rank zero
func (n *Notifier) Info(message string) {
	if !n.isPrimary() {
		return
	}
	n.logger.Info("%s", message)
}

var _ ports.DeprecationNotifier = (*Notifier)(nil)

var (
	defaultOnce     sync.Once
	defaultNotifier *Notifier
)

// Default returns the process-wide notifier driven by the launcher environment
func Default() *Notifier {
	defaultOnce.Do(func() {
		defaultNotifier = NewNotifier(IsPrimary, internal.DefaultLogger)
	})
	return defaultNotifier
}
