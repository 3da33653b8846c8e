package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ping struct{ N int }

func (ping) Kind() string { return "ping" }

type pong struct{ N int }

func (pong) Kind() string { return "pong" }

func runBus(t *testing.T, b *Bus) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("bus did not stop")
		}
	})
	return cancel
}

func TestDispatchFIFO(t *testing.T) {
	b := New(Config{Logger: zap.NewNop()})

	var mu sync.Mutex
	var got []int
	Subscribe(b, func(ctx context.Context, msg ping) error {
		mu.Lock()
		got = append(got, msg.N)
		mu.Unlock()
		return nil
	})

	for i := 0; i < 100; i++ {
		b.Publish(ping{N: i})
	}
	runBus(t, b)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 100
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, n := range got {
		assert.Equal(t, i, n)
	}
}

func TestHandlersInvokedInRegistrationOrder(t *testing.T) {
	b := New(Config{Logger: zap.NewNop()})

	var mu sync.Mutex
	var order []string
	Subscribe(b, func(ctx context.Context, msg ping) error {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		return nil
	})
	Subscribe(b, func(ctx context.Context, msg ping) error {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		return nil
	})

	b.Publish(ping{})
	runBus(t, b)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order)
}

// A handler's own follow-up publishes must be dispatched before any message
// published after that handler returned.
func TestFollowUpEventsOrderedBeforeLaterPublishes(t *testing.T) {
	b := New(Config{Logger: zap.NewNop()})

	var mu sync.Mutex
	var seen []string
	Subscribe(b, func(ctx context.Context, msg ping) error {
		mu.Lock()
		seen = append(seen, "ping")
		mu.Unlock()
		if msg.N == 0 {
			b.Publish(pong{N: msg.N})
		}
		return nil
	})
	Subscribe(b, func(ctx context.Context, msg pong) error {
		mu.Lock()
		seen = append(seen, "pong")
		mu.Unlock()
		return nil
	})
	firstDone := make(chan struct{})
	Subscribe(b, func(ctx context.Context, msg ping) error {
		if msg.N == 0 {
			close(firstDone)
		}
		return nil
	})

	runBus(t, b)
	b.Publish(ping{N: 0})
	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("first ping was not dispatched")
	}
	b.Publish(ping{N: 1})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ping", "pong", "ping"}, seen)
}

func TestHandlerErrorDoesNotStopLoop(t *testing.T) {
	b := New(Config{Logger: zap.NewNop()})

	var mu sync.Mutex
	var handled int
	Subscribe(b, func(ctx context.Context, msg ping) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return errors.New("handler blew up")
	})

	b.Publish(ping{})
	b.Publish(ping{})
	runBus(t, b)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled == 2
	}, time.Second, 5*time.Millisecond)
}

func TestUnsubscribeAllDropsHandlers(t *testing.T) {
	b := New(Config{Logger: zap.NewNop()})

	var mu sync.Mutex
	var handled int
	Subscribe(b, func(ctx context.Context, msg ping) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	})
	b.UnsubscribeAll()

	b.Publish(ping{})
	runBus(t, b)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, handled)
}
