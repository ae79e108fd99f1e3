// Package notify broadcasts messages to the bot owners' notification
// destinations. Delivery is best-effort: a destination that fails is logged
// and skipped, never aborting the broadcast.
package notify

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PrefixPlaceholder is replaced with each destination's command prefix by
// BroadcastWithPrefix.
const PrefixPlaceholder = "[p]"

// Messenger is a single owner notification destination. The host adapts its
// chat channels and direct-message targets to this interface.
type Messenger interface {
	// ID identifies the destination for log output.
	ID() string

	// Send delivers one message to the destination.
	Send(ctx context.Context, content string) error
}

// Preprocessor rewrites message content per destination before sending.
type Preprocessor func(ctx context.Context, dest Messenger, content string) (string, error)

// PrefixResolver returns the command prefix a destination should see.
type PrefixResolver func(dest Messenger) string

// Broadcaster fans a message out to every destination concurrently.
type Broadcaster struct {
	logger  *zap.Logger
	limiter *rate.Limiter
}

// Option configures a Broadcaster
type Option func(*Broadcaster)

// WithRateLimit paces sends so a broadcast to many owners does not burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(b *Broadcaster) {
		b.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewBroadcaster creates a Broadcaster. A nil logger is replaced with a no-op
// logger; without WithRateLimit sends are unpaced.
func NewBroadcaster(logger *zap.Logger, opts ...Option) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Broadcaster{logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Broadcast sends content to every destination concurrently, applying pre to
// the content per destination when non-nil. It returns the number of
// destinations that were successfully delivered to; individual failures are
// logged, not returned.
func (b *Broadcaster) Broadcast(ctx context.Context, destinations []Messenger, content string, pre Preprocessor) int {
	var delivered atomic.Int64
	var wg sync.WaitGroup
	wg.Add(len(destinations))

	for _, dest := range destinations {
		go func(dest Messenger) {
			defer wg.Done()
			if err := b.send(ctx, dest, content, pre); err != nil {
				b.logger.Error("could not send an owner notification",
					zap.String("destination", dest.ID()),
					zap.Error(err))
				return
			}
			delivered.Add(1)
		}(dest)
	}

	wg.Wait()
	return int(delivered.Load())
}

// BroadcastWithPrefix is Broadcast with the PrefixPlaceholder in content
// replaced by each destination's own command prefix.
func (b *Broadcaster) BroadcastWithPrefix(ctx context.Context, destinations []Messenger, content string, resolve PrefixResolver) int {
	return b.Broadcast(ctx, destinations, content, func(_ context.Context, dest Messenger, content string) (string, error) {
		return strings.ReplaceAll(content, PrefixPlaceholder, resolve(dest)), nil
	})
}

func (b *Broadcaster) send(ctx context.Context, dest Messenger, content string, pre Preprocessor) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if pre != nil {
		var err error
		content, err = pre(ctx, dest, content)
		if err != nil {
			return err
		}
	}
	return dest.Send(ctx, content)
}
