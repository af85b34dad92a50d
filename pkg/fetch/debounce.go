package fetch

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last transponder change
// before a fetch is started.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer calls fn with the latest value once no new value arrived for delay.
// It does not cancel a call which already started.
type Debouncer[T any] struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func(T)
	timer *time.Timer
	gen   uint64
}

func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := gen == d.gen
		d.mu.Unlock()
		if current {
			d.fn(v)
		}
	})
}

// Stop drops a pending call.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
}
