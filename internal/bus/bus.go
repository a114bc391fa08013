// Package bus implements the single bounded FIFO event bus that threads
// MarketEvent/SignalEvent/OrderEvent/FillEvent through the dispatcher to
// strategy, risk, execution and portfolio. It is MPSC: any component may
// publish, exactly one dispatcher goroutine consumes.
package bus

import (
	"context"
	"sync/atomic"

	"github.com/eth-trading/internal/model"
)

// DefaultCapacity is the bus capacity used unless Config overrides it.
const DefaultCapacity = 10000

// Config configures a Bus.
type Config struct {
	// Capacity is the bounded channel size. Producers block on Publish
	// once the bus is full; drop-oldest is never performed.
	Capacity int
}

// Bus is a bounded FIFO queue of tagged events with exactly one consumer
// loop (Dispatcher). Publish performs a context-aware bounded send so a
// full bus blocks the producer rather than silently dropping the event.
type Bus struct {
	events chan model.Event
	depth  int64 // atomic, approximate queue depth for telemetry
}

// New creates a Bus with the given configuration.
func New(cfg Config) *Bus {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{events: make(chan model.Event, capacity)}
}

// Publish enqueues an event, blocking until space is available or ctx is
// canceled. It never drops an event silently.
func (b *Bus) Publish(ctx context.Context, e model.Event) error {
	select {
	case b.events <- e:
		atomic.AddInt64(&b.depth, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish attempts a non-blocking send, returning
// model.ErrBackpressureExceeded if the bus is full. Reserved for test
// harnesses and any producer explicitly configured not to block; normal
// production wiring always uses Publish.
func (b *Bus) TryPublish(e model.Event) error {
	select {
	case b.events <- e:
		atomic.AddInt64(&b.depth, 1)
		return nil
	default:
		return model.ErrBackpressureExceeded
	}
}

// Depth returns the approximate current queue depth, for the bus-depth
// telemetry gauge.
func (b *Bus) Depth() int64 {
	return atomic.LoadInt64(&b.depth)
}

// Close closes the underlying channel. Must only be called after all
// producers have stopped.
func (b *Bus) Close() {
	close(b.events)
}

// next pops the next event, blocking until one is available, the bus is
// closed, or ctx is canceled.
func (b *Bus) next(ctx context.Context) (model.Event, bool, error) {
	select {
	case e, ok := <-b.events:
		if ok {
			atomic.AddInt64(&b.depth, -1)
		}
		return e, ok, nil
	case <-ctx.Done():
		return model.Event{}, false, ctx.Err()
	}
}

// TryPop is a non-blocking pop exposed for test harnesses that need to
// inspect what a handler published without standing up a full Dispatcher.
func (b *Bus) TryPop() (model.Event, bool, error) {
	select {
	case e, ok := <-b.events:
		if ok {
			atomic.AddInt64(&b.depth, -1)
		}
		return e, ok, nil
	default:
		return model.Event{}, false, nil
	}
}
