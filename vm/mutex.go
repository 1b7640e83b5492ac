package vm

import (
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Mutex, WaitGroup and Semaphore: sync primitives as native values
// ---------------------------------------------------------------------------

// Mutex wraps a Go mutex for scripts.
type Mutex struct {
	mu     sync.Mutex
	locked atomic.Bool
}

func (m *Mutex) TypeTag() string      { return "mutex" }
func (m *Mutex) ParentTags() []string { return nil }

// Lock blocks until the mutex is held.
func (m *Mutex) Lock() {
	m.mu.Lock()
	m.locked.Store(true)
}

// Unlock releases the mutex. Unlocking an unlocked mutex is a fault
// rather than a crash.
func (m *Mutex) Unlock() error {
	if !m.locked.CompareAndSwap(true, false) {
		return newFault(ConcurrencyFault, nil, "unlock of unlocked mutex")
	}
	m.mu.Unlock()
	return nil
}

// TryLock acquires the mutex if it is free.
func (m *Mutex) TryLock() bool {
	if m.mu.TryLock() {
		m.locked.Store(true)
		return true
	}
	return false
}

// WaitGroup wraps a Go WaitGroup for scripts.
type WaitGroup struct {
	wg      sync.WaitGroup
	counter atomic.Int64
}

func (w *WaitGroup) TypeTag() string      { return "wait_group" }
func (w *WaitGroup) ParentTags() []string { return nil }

// Add changes the counter by delta.
func (w *WaitGroup) Add(delta int64) error {
	if w.counter.Add(delta) < 0 {
		w.counter.Add(-delta)
		return newFault(ConcurrencyFault, nil, "negative wait group counter")
	}
	w.wg.Add(int(delta))
	return nil
}

// Wait blocks until the counter reaches zero.
func (w *WaitGroup) Wait() {
	w.wg.Wait()
}

// Count returns the current counter.
func (w *WaitGroup) Count() int64 {
	return w.counter.Load()
}

// Semaphore is a counting semaphore built on a buffered Go channel.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a semaphore with n permits.
func NewSemaphore(n int) *Semaphore {
	return &Semaphore{slots: make(chan struct{}, n)}
}

func (s *Semaphore) TypeTag() string      { return "semaphore" }
func (s *Semaphore) ParentTags() []string { return nil }

// Acquire blocks until a permit is free.
func (s *Semaphore) Acquire() {
	s.slots <- struct{}{}
}

// TryAcquire takes a permit, waiting at most d (zero means no wait).
func (s *Semaphore) TryAcquire(d time.Duration) bool {
	if d <= 0 {
		select {
		case s.slots <- struct{}{}:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case s.slots <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// Release returns a permit.
func (s *Semaphore) Release() error {
	select {
	case <-s.slots:
		return nil
	default:
		return newFault(ConcurrencyFault, nil, "release of unacquired semaphore")
	}
}

// Available returns the number of free permits.
func (s *Semaphore) Available() int {
	return cap(s.slots) - len(s.slots)
}

// ---------------------------------------------------------------------------
// Primitives registration
// ---------------------------------------------------------------------------

func (vm *VM) registerSyncPrimitives() {
	vm.builtin("mutex", func(ctx *Context, args []ArgValue) (Value, error) {
		if _, err := positional("mutex", args, 0, 0); err != nil {
			return nil, err
		}
		return &Mutex{}, nil
	})
	vm.builtin("wait_group", func(ctx *Context, args []ArgValue) (Value, error) {
		if _, err := positional("wait_group", args, 0, 0); err != nil {
			return nil, err
		}
		return &WaitGroup{}, nil
	})
	vm.builtin("semaphore", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("semaphore", args, 1, 1)
		if err != nil {
			return nil, err
		}
		n, err := intArg("semaphore", vals[0])
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, NewFault("semaphore needs at least one permit, got %d", n)
		}
		return NewSemaphore(int(n)), nil
	})

	vm.global.ProvideAll("mutex", MethodTable{
		"lock": method("mutex", func(ctx *Context, m *Mutex, args []ArgValue) (Value, error) {
			m.Lock()
			return nil, nil
		}),
		"unlock": method("mutex", func(ctx *Context, m *Mutex, args []ArgValue) (Value, error) {
			return nil, m.Unlock()
		}),
		"try_lock": method("mutex", func(ctx *Context, m *Mutex, args []ArgValue) (Value, error) {
			return m.TryLock(), nil
		}),
		"is_locked": method("mutex", func(ctx *Context, m *Mutex, args []ArgValue) (Value, error) {
			return m.locked.Load(), nil
		}),
	})

	vm.global.ProvideAll("wait_group", MethodTable{
		"add": method("wait_group", func(ctx *Context, w *WaitGroup, args []ArgValue) (Value, error) {
			vals, err := positional("add", args, 0, 1)
			if err != nil {
				return nil, err
			}
			delta := int64(1)
			if len(vals) == 1 {
				if delta, err = intArg("add", vals[0]); err != nil {
					return nil, err
				}
			}
			return nil, w.Add(delta)
		}),
		"done": method("wait_group", func(ctx *Context, w *WaitGroup, args []ArgValue) (Value, error) {
			return nil, w.Add(-1)
		}),
		"wait": method("wait_group", func(ctx *Context, w *WaitGroup, args []ArgValue) (Value, error) {
			w.Wait()
			return nil, nil
		}),
		"count": method("wait_group", func(ctx *Context, w *WaitGroup, args []ArgValue) (Value, error) {
			return w.Count(), nil
		}),
	})

	vm.global.ProvideAll("semaphore", MethodTable{
		"acquire": method("semaphore", func(ctx *Context, s *Semaphore, args []ArgValue) (Value, error) {
			s.Acquire()
			return nil, nil
		}),
		"try_acquire": method("semaphore", func(ctx *Context, s *Semaphore, args []ArgValue) (Value, error) {
			vals, err := positional("try_acquire", args, 0, 1)
			if err != nil {
				return nil, err
			}
			var ms int64
			if len(vals) == 1 {
				if ms, err = intArg("try_acquire", vals[0]); err != nil {
					return nil, err
				}
			}
			return s.TryAcquire(time.Duration(ms) * time.Millisecond), nil
		}),
		"release": method("semaphore", func(ctx *Context, s *Semaphore, args []ArgValue) (Value, error) {
			return nil, s.Release()
		}),
		"available": method("semaphore", func(ctx *Context, s *Semaphore, args []ArgValue) (Value, error) {
			return int64(s.Available()), nil
		}),
	})
}
