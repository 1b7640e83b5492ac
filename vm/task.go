package vm

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Future: terminal outcome of a spawned task
// ---------------------------------------------------------------------------

// Future is completed exactly once with a value or an error.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value Value
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(v Value, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Wait blocks until the task has finished.
func (f *Future) Wait() (Value, error) {
	<-f.done
	return f.value, f.err
}

// IsDone reports whether the task has finished.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Spawning
// ---------------------------------------------------------------------------

// snapshot copies every name visible from c into a new top-level Context
// and freezes each copy. The snapshot shares only the heap and the
// GlobalContext with c; it gets its own thread and step counter.
// Closures, macros and unevaluated expressions captured along c's chain
// are copied over to the snapshot so they cannot reach the spawner's
// frames.
func (c *Context) snapshot() *Context {
	var steps *StepCounter
	if c.steps != nil {
		steps = NewStepCounter(c.steps.Limit())
	}
	snap := NewContext(c.heap, c.global, NewThreadContext(), steps)
	for name, v := range c.Visible() {
		snap.Let0(name, c.rehome(v, snap))
		snap.frozen = addName(snap.frozen, name)
	}
	return snap
}

// rehome returns v with its captured Context replaced by snap when that
// Context belongs to c's chain.
func (c *Context) rehome(v Value, snap *Context) Value {
	switch fn := v.(type) {
	case *Closure:
		if c.encloses(fn.Ctx) {
			cp := *fn
			cp.Ctx = snap
			return &cp
		}
	case *Macro:
		if c.encloses(fn.Ctx) {
			cp := *fn
			cp.Ctx = snap
			return &cp
		}
	case *Expr:
		if c.encloses(fn.Ctx) {
			return &Expr{Cmd: fn.Cmd, Ctx: snap}
		}
	}
	return v
}

// encloses reports whether f is c or one of its ancestors.
func (c *Context) encloses(f *Context) bool {
	if f == nil {
		return false
	}
	for k := c; k != nil; k = k.wrapped {
		if k == f {
			return true
		}
	}
	return false
}

func addName(set map[string]struct{}, name string) map[string]struct{} {
	if set == nil {
		set = make(map[string]struct{})
	}
	set[name] = struct{}{}
	return set
}

// spawn runs body on a new goroutine against a snapshot of ctx. done is
// always called with the outcome, including when body panics.
func spawn(ctx *Context, kind string, body func(task *Context) (Value, error), done func(Value, error)) {
	task := ctx.snapshot()
	logger.Debugf("spawning %s task on thread %d", kind, task.thread.ID())
	go func() {
		var v Value
		var err error
		defer func() {
			if r := recover(); r != nil {
				v = nil
				err = newFault(ConcurrencyFault, fmt.Errorf("panic: %v", r), "%s task panicked: %v", kind, r)
			}
			if err != nil {
				logger.Debugf("%s task on thread %d failed: %s", kind, task.thread.ID(), err.Error())
			}
			done(v, err)
		}()
		v, err = body(task)
	}()
}

// Async starts body as an independent task. The result is a channel of
// capacity one that receives the task's value or fault and is then
// closed.
func Async(ctx *Context, body Command) *Channel {
	ch := NewChannel(1)
	spawn(ctx, "async", func(task *Context) (Value, error) {
		return Eval(task, body)
	}, func(v Value, err error) {
		if err != nil {
			ch.closeWith(Failure(err))
			return
		}
		ch.closeWith(Success(v))
	})
	return ch
}

// Generate starts body as a producer feeding a yielder. capacity bounds
// the unconsumed values; zero or less is unbounded.
func Generate(ctx *Context, capacity int, body Command) *Yielder {
	y := NewYielder(capacity)
	kind := "generator"
	if capacity > 0 {
		kind = "stream"
	}
	spawn(ctx, kind, func(task *Context) (Value, error) {
		task.thread.PushYielder(y)
		defer task.thread.PopYielder()
		return Eval(task, body)
	}, func(_ Value, err error) {
		y.finish(err)
	})
	return y
}

// Await waits for an async handle and returns its value or re-raises
// its fault.
func Await(v Value) (Value, error) {
	switch h := v.(type) {
	case *Channel:
		m, ok := h.Receive()
		if !ok {
			return nil, newFault(ConcurrencyFault, ErrChannelClosed, "await on a closed, empty channel")
		}
		return m.Unwrap()
	case *Future:
		return h.Wait()
	case *Yielder:
		return h.future.Wait()
	}
	return nil, newFault(ConcurrencyFault, ErrTypeMismatch, "cannot await %s", TypeName(v))
}
