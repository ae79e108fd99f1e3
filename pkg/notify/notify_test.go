package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// fakeMessenger records what was sent to it and can be told to fail.
type fakeMessenger struct {
	mu     sync.Mutex
	id     string
	prefix string
	fail   error
	got    []string
}

func (m *fakeMessenger) ID() string { return m.id }

func (m *fakeMessenger) Send(_ context.Context, content string) error {
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, content)
	return nil
}

func (m *fakeMessenger) received() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.got...)
}

func TestBroadcastDeliversToAll(t *testing.T) {
	dests := []Messenger{
		&fakeMessenger{id: "owner-1"},
		&fakeMessenger{id: "owner-2"},
		&fakeMessenger{id: "owner-3"},
	}

	b := NewBroadcaster(zap.NewNop())
	delivered := b.Broadcast(context.Background(), dests, "update available", nil)
	assert.Equal(t, 3, delivered)

	for _, d := range dests {
		assert.Equal(t, []string{"update available"}, d.(*fakeMessenger).received())
	}
}

func TestBroadcastSurvivesFailingDestination(t *testing.T) {
	ok := &fakeMessenger{id: "owner-1"}
	broken := &fakeMessenger{id: "owner-2", fail: errors.New("channel gone")}

	b := NewBroadcaster(nil)
	delivered := b.Broadcast(context.Background(), []Messenger{ok, broken}, "hello", nil)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"hello"}, ok.received())
	assert.Empty(t, broken.received())
}

func TestBroadcastAppliesPreprocessor(t *testing.T) {
	dest := &fakeMessenger{id: "owner-1"}
	b := NewBroadcaster(nil)

	b.Broadcast(context.Background(), []Messenger{dest}, "hello", func(_ context.Context, d Messenger, content string) (string, error) {
		return content + " " + d.ID(), nil
	})

	assert.Equal(t, []string{"hello owner-1"}, dest.received())
}

func TestBroadcastPreprocessorErrorSkipsDestination(t *testing.T) {
	dest := &fakeMessenger{id: "owner-1"}
	b := NewBroadcaster(nil)

	delivered := b.Broadcast(context.Background(), []Messenger{dest}, "hello", func(context.Context, Messenger, string) (string, error) {
		return "", errors.New("preprocess failed")
	})

	assert.Equal(t, 0, delivered)
	assert.Empty(t, dest.received())
}

func TestBroadcastWithPrefixReplacesPlaceholder(t *testing.T) {
	dests := []Messenger{
		&fakeMessenger{id: "owner-1", prefix: "!"},
		&fakeMessenger{id: "owner-2", prefix: "?"},
	}

	b := NewBroadcaster(nil)
	delivered := b.BroadcastWithPrefix(context.Background(), dests, "Run [p]update to upgrade.", func(dest Messenger) string {
		return dest.(*fakeMessenger).prefix
	})
	require.Equal(t, 2, delivered)

	assert.Equal(t, []string{"Run !update to upgrade."}, dests[0].(*fakeMessenger).received())
	assert.Equal(t, []string{"Run ?update to upgrade."}, dests[1].(*fakeMessenger).received())
}

func TestBroadcastRateLimited(t *testing.T) {
	dests := make([]Messenger, 4)
	for i := range dests {
		dests[i] = &fakeMessenger{id: "owner"}
	}

	// Burst of 1 at 50/s: four sends need at least three limiter waits.
	b := NewBroadcaster(nil, WithRateLimit(rate.Limit(50), 1))
	start := time.Now()
	delivered := b.Broadcast(context.Background(), dests, "x", nil)

	assert.Equal(t, 4, delivered)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestBroadcastCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := &fakeMessenger{id: "owner-1"}
	b := NewBroadcaster(nil, WithRateLimit(rate.Limit(1), 1))
	// A cancelled context aborts the limiter wait; nothing is delivered.
	delivered := b.Broadcast(ctx, []Messenger{dest, dest}, "x", nil)
	assert.Equal(t, 0, delivered)
}

func TestBroadcastNoDestinations(t *testing.T) {
	b := NewBroadcaster(nil)
	assert.Equal(t, 0, b.Broadcast(context.Background(), nil, "x", nil))
}
