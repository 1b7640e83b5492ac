package vm

import "sync"

// ---------------------------------------------------------------------------
// Yielder: consumer side of a generator
// ---------------------------------------------------------------------------

type endOfYield struct{}

// yieldEnd is queued after the producer's last value.
var yieldEnd = &endOfYield{}

// Yielder connects a producer running yield expressions to a consumer
// pulling with HasNext/Next. Values arrive in send order. If the
// producer failed, the failure is returned once, by the first read that
// finds the queue exhausted. A value looked at by HasNext stays queued
// until Next takes it, so it still counts against the capacity.
type Yielder struct {
	ch     *Channel
	future *Future

	mu   sync.Mutex
	done bool
}

// NewYielder creates a yielder. capacity bounds the number of produced
// but unconsumed values; zero or less is unbounded.
func NewYielder(capacity int) *Yielder {
	return &Yielder{ch: NewChannel(capacity), future: newFuture()}
}

// Send delivers a value from the producer, blocking while the queue is
// full.
func (y *Yielder) Send(v Value) error {
	return y.ch.Send(Success(v))
}

// finish records the producer's outcome and queues the end marker.
func (y *Yielder) finish(err error) {
	y.future.complete(nil, err)
	y.ch.closeWith(Success(yieldEnd))
}

// Future returns the producer's completion handle.
func (y *Yielder) Future() *Future {
	return y.future
}

// HasNext blocks until a value is available or the producer is done.
func (y *Yielder) HasNext() (bool, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.hasNext()
}

// hasNext is HasNext with mu held.
func (y *Yielder) hasNext() (bool, error) {
	if y.done {
		return false, nil
	}
	m, ok := y.ch.Peek()
	if !ok || m.Value == yieldEnd {
		y.done = true
		if _, err := y.future.Wait(); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Next returns the next value. Reading past the end is a fault unless
// the producer's own fault is due.
func (y *Yielder) Next() (Value, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	more, err := y.hasNext()
	if err != nil {
		return nil, err
	}
	if !more {
		return nil, newFault(ConcurrencyFault, ErrChannelClosed, "generator is exhausted")
	}
	m, _ := y.ch.TryReceive()
	return m.Unwrap()
}
