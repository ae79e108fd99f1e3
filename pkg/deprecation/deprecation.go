// Package deprecation emits structured warnings for APIs scheduled for
// removal. Each target warns once per process so hot paths do not flood the
// log.
package deprecation

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Notice describes one deprecated API
type Notice struct {
	// Target is the deprecated symbol or behavior, e.g. "Registry.IncRaw".
	Target string

	// Since is the release that announced the deprecation.
	Since string

	// MinimumDays is how long the target is guaranteed to survive after the
	// announcement.
	MinimumDays int

	// Message is optional migration guidance appended to the warning.
	Message string
}

// Warner logs deprecation notices, deduplicated by target.
type Warner struct {
	logger *zap.Logger
	mu     sync.Mutex
	seen   map[string]struct{}
}

// NewWarner creates a Warner. A nil logger is replaced with a no-op logger.
func NewWarner(logger *zap.Logger) *Warner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warner{
		// Point the caller annotation at the deprecated call site, not here.
		logger: logger.WithOptions(zap.AddCallerSkip(1)),
		seen:   make(map[string]struct{}),
	}
}

// Warn logs the notice and reports whether it was emitted. Repeated notices
// for the same target are dropped.
func (w *Warner) Warn(n Notice) bool {
	w.mu.Lock()
	if _, ok := w.seen[n.Target]; ok {
		w.mu.Unlock()
		return false
	}
	w.seen[n.Target] = struct{}{}
	w.mu.Unlock()

	msg := fmt.Sprintf(
		"%s is deprecated since version %s and will be removed in the first minor version released at least %d days after deprecation.",
		n.Target, n.Since, n.MinimumDays)
	if n.Message != "" {
		msg += " " + n.Message
	}

	w.logger.Warn(msg,
		zap.String("target", n.Target),
		zap.String("since", n.Since),
		zap.Int("minimum_days", n.MinimumDays))
	return true
}
