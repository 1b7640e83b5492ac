package vm

import (
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Channel: blocking FIFO queue of Messages with one-way close
// ---------------------------------------------------------------------------

// Channel is a bounded or unbounded blocking queue. A capacity of zero
// or less means unbounded. Closing is idempotent; queued messages stay
// receivable after close until drained.
//
// Waiters block on changed, which is closed and replaced every time the
// queue or the closed flag changes.
type Channel struct {
	mu       sync.Mutex
	queue    []Message
	capacity int
	closed   bool
	changed  chan struct{}
}

// NewChannel creates a channel. capacity <= 0 means unbounded.
func NewChannel(capacity int) *Channel {
	return &Channel{capacity: capacity, changed: make(chan struct{})}
}

// broadcast wakes every waiter. Callers hold mu.
func (c *Channel) broadcast() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Channel) full() bool {
	return c.capacity > 0 && len(c.queue) >= c.capacity
}

func closedFault() *Fault {
	return newFault(ConcurrencyFault, ErrChannelClosed, "send on closed channel")
}

// Send enqueues m, blocking while the channel is full. Sending on a
// closed channel, or on one closed while waiting, is a fault.
func (c *Channel) Send(m Message) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return closedFault()
		}
		if !c.full() {
			c.queue = append(c.queue, m)
			c.broadcast()
			c.mu.Unlock()
			return nil
		}
		wait := c.changed
		c.mu.Unlock()
		<-wait
	}
}

// TrySend enqueues m only if there is room right now.
func (c *Channel) TrySend(m Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full() {
		return false
	}
	c.queue = append(c.queue, m)
	c.broadcast()
	return true
}

// TrySendTimeout waits up to d for room. It reports false on timeout or
// when the channel is closed.
func (c *Channel) TrySendTimeout(m Message, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return false
		}
		if !c.full() {
			c.queue = append(c.queue, m)
			c.broadcast()
			c.mu.Unlock()
			return true
		}
		wait := c.changed
		c.mu.Unlock()
		select {
		case <-wait:
		case <-timer.C:
			return false
		}
	}
}

// poll takes the head message if one is queued. drained reports a closed,
// empty channel; otherwise wait is the channel to block on.
func (c *Channel) poll() (m Message, ok bool, drained bool, wait chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) > 0 {
		m = c.queue[0]
		c.queue[0] = Message{}
		c.queue = c.queue[1:]
		c.broadcast()
		return m, true, false, nil
	}
	if c.closed {
		return Message{}, false, true, nil
	}
	return Message{}, false, false, c.changed
}

// Receive blocks until a message is available. ok is false once the
// channel is closed and drained.
func (c *Channel) Receive() (Message, bool) {
	for {
		m, ok, drained, wait := c.poll()
		if ok {
			return m, true
		}
		if drained {
			return Message{}, false
		}
		<-wait
	}
}

// ReceiveTimeout waits up to d for a message.
func (c *Channel) ReceiveTimeout(d time.Duration) (Message, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		m, ok, drained, wait := c.poll()
		if ok {
			return m, true
		}
		if drained {
			return Message{}, false
		}
		select {
		case <-wait:
		case <-timer.C:
			return Message{}, false
		}
	}
}

// Peek blocks until a message is queued and returns it without taking
// it, so the message keeps its slot. ok is false once the channel is
// closed and drained.
func (c *Channel) Peek() (Message, bool) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			m := c.queue[0]
			c.mu.Unlock()
			return m, true
		}
		if c.closed {
			c.mu.Unlock()
			return Message{}, false
		}
		wait := c.changed
		c.mu.Unlock()
		<-wait
	}
}

// TryReceive takes a message only if one is queued. A concurrent close
// is not an error.
func (c *Channel) TryReceive() (Message, bool) {
	m, ok, _, _ := c.poll()
	return m, ok
}

// Close marks the channel closed and wakes all waiters.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.broadcast()
}

// closeWith appends a final message regardless of capacity and closes.
func (c *Channel) closeWith(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.queue = append(c.queue, m)
	c.closed = true
	c.broadcast()
}

// IsClosed reports whether Close has been called.
func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of queued messages.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Cap returns the capacity, 0 for unbounded.
func (c *Channel) Cap() int {
	if c.capacity < 0 {
		return 0
	}
	return c.capacity
}
