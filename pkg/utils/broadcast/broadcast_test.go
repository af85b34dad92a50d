package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	var zero T
	return zero
}

func TestFanOut(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("laps.FZ-1", "test", source)
	defer b.Close()

	s1 := b.Subscribe()
	s2 := b.Subscribe()

	var wg sync.WaitGroup
	got := make([]int, 2)
	for i, s := range []<-chan int{s1, s2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = receive(t, s)
		}()
	}
	source <- 42
	wg.Wait()
	assert.Equal(t, []int{42, 42}, got)
}

func TestSlowListenerIsSkipped(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("t", "slow", source,
		WithSendTimeout[int](10*time.Millisecond))
	defer b.Close()

	_ = b.Subscribe() // never read
	fast := b.Subscribe()
	done := make(chan int)
	go func() { done <- receive(t, fast) }()

	source <- 1
	assert.Equal(t, 1, <-done)
}

func TestCancelSubscriptionClosesChannel(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("t", "cancel", source)
	defer b.Close()

	s := b.Subscribe()
	b.CancelSubscription(s)
	_, ok := <-s
	assert.False(t, ok)
}

func TestSourceCloseClosesListeners(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("t", "closing", source)
	s := b.Subscribe()
	close(source)
	select {
	case _, ok := <-s:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}
	// subscribing after shutdown returns a closed channel
	_, ok := <-b.Subscribe()
	assert.False(t, ok)
}
