package vm

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Heap: the single global namespace of a program run
// ---------------------------------------------------------------------------

// Heap is shared by every Context derived from one run, including the
// snapshots handed to spawned tasks.
type Heap struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewHeap creates an empty global namespace.
func NewHeap() *Heap {
	return &Heap{values: make(map[string]Value)}
}

// Get returns the global binding for name.
func (h *Heap) Get(name string) (Value, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.values[name]
	return v, ok
}

// Set creates or replaces a global binding.
func (h *Heap) Set(name string, v Value) {
	h.mu.Lock()
	h.values[name] = v
	h.mu.Unlock()
}

// Names returns the global names in sorted order.
func (h *Heap) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.values))
	for k := range h.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// StepCounter: cooperative infinite-loop guard
// ---------------------------------------------------------------------------

// StepCounter counts executed commands across one Context chain. A limit
// of zero means unbounded.
type StepCounter struct {
	count atomic.Int64
	limit int64
}

// NewStepCounter creates a counter with the given bound.
func NewStepCounter(limit int64) *StepCounter {
	return &StepCounter{limit: limit}
}

// Step records one execution step.
func (s *StepCounter) Step() error {
	n := s.count.Add(1)
	if s.limit > 0 && n > s.limit {
		logger.Warningf("step limit %d reached", s.limit)
		return newFault(ResourceFault, ErrStepLimit, "step limit reached (%d)", s.limit)
	}
	return nil
}

// Count returns the number of steps taken so far.
func (s *StepCounter) Count() int64 {
	return s.count.Load()
}

// Limit returns the configured bound.
func (s *StepCounter) Limit() int64 {
	return s.limit
}

// ---------------------------------------------------------------------------
// Context: a lexical scope frame
// ---------------------------------------------------------------------------

// scope is the storage of a single frame. It is separate from Context so
// that method calls can view an instance frame through a different parent
// (see LngObject.viewFor).
type scope struct {
	mu      sync.RWMutex
	vars    map[string]Value
	frozen  map[string]struct{}
	globals map[string]struct{}
}

func newScope() *scope {
	return &scope{vars: make(map[string]Value)}
}

// Context is one lexical frame plus its links: the wrapped parent frame,
// the shared heap, the step counter of its chain, the run-wide
// GlobalContext and the ThreadContext of the logical thread using it.
type Context struct {
	*scope
	wrapped *Context
	heap    *Heap
	steps   *StepCounter
	global  *GlobalContext
	thread  *ThreadContext
}

// NewContext creates a top-level Context with no parent.
func NewContext(heap *Heap, global *GlobalContext, thread *ThreadContext, steps *StepCounter) *Context {
	return &Context{
		scope:  newScope(),
		heap:   heap,
		steps:  steps,
		global: global,
		thread: thread,
	}
}

func (c *Context) derive(parent *Context) *Context {
	return &Context{
		scope:   newScope(),
		wrapped: parent,
		heap:    c.heap,
		steps:   c.steps,
		global:  c.global,
		thread:  c.thread,
	}
}

// Wrap creates a nested frame that sees this frame's bindings.
func (c *Context) Wrap() *Context {
	return c.derive(c)
}

// Open creates an independent frame with no parent. Only the heap is
// visible from it.
func (c *Context) Open() *Context {
	return c.derive(nil)
}

// WrapOver creates a frame whose parent is an arbitrary captured Context,
// typically the defining environment of a closure. The new frame keeps
// this Context's thread and step counter.
func (c *Context) WrapOver(parent *Context) *Context {
	return c.derive(parent)
}

// Parent returns the wrapped frame, or nil.
func (c *Context) Parent() *Context {
	return c.wrapped
}

// Heap returns the shared global namespace.
func (c *Context) Heap() *Heap {
	return c.heap
}

// Runtime returns the run-wide GlobalContext.
func (c *Context) Runtime() *GlobalContext {
	return c.global
}

// Thread returns the ThreadContext of the logical thread using this frame.
func (c *Context) Thread() *ThreadContext {
	return c.thread
}

// Steps returns the shared step counter.
func (c *Context) Steps() *StepCounter {
	return c.steps
}

// VM returns the machine this Context belongs to.
func (c *Context) VM() *VM {
	return c.global.vm
}

// Step advances the shared step counter.
func (c *Context) Step() error {
	if c.steps == nil {
		return nil
	}
	return c.steps.Step()
}

func (s *scope) hasGlobal(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.globals[name]
	return ok
}

func (s *scope) hasFrozen(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.frozen[name]
	return ok
}

// isGlobal reports whether name is declared global anywhere in the chain.
func (c *Context) isGlobal(name string) bool {
	for f := c; f != nil; f = f.wrapped {
		if f.hasGlobal(name) {
			return true
		}
	}
	return false
}

// IsFrozen reports whether name is frozen in this frame or any ancestor.
func (c *Context) IsFrozen(name string) bool {
	for f := c; f != nil; f = f.wrapped {
		if f.hasFrozen(name) {
			return true
		}
	}
	return false
}

func frozenFault(name string) *Fault {
	return newFault(ScopeFault, ErrFrozen, "cannot modify frozen identifier %q", name)
}

// Local defines or overwrites name in this frame only.
func (c *Context) Local(name string, v Value) error {
	if c.isGlobal(name) {
		return newFault(ScopeFault, ErrRedeclared, "%q is declared global and cannot be defined locally", name)
	}
	if c.IsFrozen(name) {
		return frozenFault(name)
	}
	c.mu.Lock()
	c.vars[name] = v
	c.mu.Unlock()
	return nil
}

// Global declares name as resolved against the heap, optionally assigning
// it. Redeclaring a local or an existing global is an error.
func (c *Context) Global(name string, v Value, assign bool) error {
	if c.IsFrozen(name) {
		return frozenFault(name)
	}
	if c.isGlobal(name) {
		return newFault(ScopeFault, ErrRedeclared, "%q is already declared global", name)
	}
	c.mu.Lock()
	if _, ok := c.vars[name]; ok {
		c.mu.Unlock()
		return newFault(ScopeFault, ErrRedeclared, "%q is already declared local", name)
	}
	if c.globals == nil {
		c.globals = make(map[string]struct{})
	}
	c.globals[name] = struct{}{}
	c.mu.Unlock()
	if assign {
		c.heap.Set(name, v)
	}
	return nil
}

// Let updates name in the nearest frame that binds it, or creates it in
// this frame when no frame in the chain does. Names declared global are
// written through to the heap.
func (c *Context) Let(name string, v Value) error {
	if c.IsFrozen(name) {
		return frozenFault(name)
	}
	for f := c; f != nil; f = f.wrapped {
		f.mu.Lock()
		if _, ok := f.globals[name]; ok {
			f.mu.Unlock()
			c.heap.Set(name, v)
			return nil
		}
		if _, ok := f.vars[name]; ok {
			f.vars[name] = v
			f.mu.Unlock()
			return nil
		}
		f.mu.Unlock()
	}
	c.mu.Lock()
	c.vars[name] = v
	c.mu.Unlock()
	return nil
}

// Let0 binds name in this frame unconditionally. It is used for loop
// variables, parameters and other generated bindings.
func (c *Context) Let0(name string, v Value) {
	c.mu.Lock()
	c.vars[name] = v
	c.mu.Unlock()
}

// Define binds a declaration result (function, class) under name,
// honouring a global declaration in the chain.
func (c *Context) Define(name string, v Value) error {
	if c.isGlobal(name) {
		if c.IsFrozen(name) {
			return frozenFault(name)
		}
		c.heap.Set(name, v)
		return nil
	}
	return c.Local(name, v)
}

// Freeze locks name for the rest of this frame's lifetime. Nested frames
// cannot shadow or rebind it either.
func (c *Context) Freeze(name string) error {
	if c.IsFrozen(name) {
		return newFault(ScopeFault, ErrFrozen, "identifier %q is already frozen", name)
	}
	c.mu.Lock()
	if c.frozen == nil {
		c.frozen = make(map[string]struct{})
	}
	c.frozen[name] = struct{}{}
	c.mu.Unlock()
	return nil
}

// lookup walks the chain. global reports that the nearest declaration is
// a global one, in which case the value must come from the heap.
func (c *Context) lookup(name string) (v Value, found bool, global bool) {
	for f := c; f != nil; f = f.wrapped {
		f.mu.RLock()
		if _, ok := f.globals[name]; ok {
			f.mu.RUnlock()
			return nil, false, true
		}
		if val, ok := f.vars[name]; ok {
			f.mu.RUnlock()
			return val, true, false
		}
		f.mu.RUnlock()
	}
	return nil, false, false
}

// Get resolves name through the chain and then the heap.
func (c *Context) Get(name string) (Value, error) {
	if v, found, _ := c.lookup(name); found {
		return v, nil
	}
	if v, ok := c.heap.Get(name); ok {
		return v, nil
	}
	return nil, newFault(ScopeFault, ErrUndefined, "undefined identifier %q", name)
}

// GetLocal resolves name through the chain without touching the heap.
func (c *Context) GetLocal(name string) (Value, bool) {
	v, found, _ := c.lookup(name)
	return v, found
}

// Contains reports whether Get would succeed.
func (c *Context) Contains(name string) bool {
	if _, found, _ := c.lookup(name); found {
		return true
	}
	_, ok := c.heap.Get(name)
	return ok
}

// ownValue returns a binding of this frame only.
func (c *Context) ownValue(name string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vars[name]
	return v, ok
}

// LocalNames returns the names bound in this frame, sorted.
func (c *Context) LocalNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.vars))
	for k := range c.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Visible returns every name reachable through the chain with the value
// the chain resolves it to. Names whose nearest declaration is global are
// left out since they live on the shared heap.
func (c *Context) Visible() map[string]Value {
	out := make(map[string]Value)
	seen := make(map[string]struct{})
	for f := c; f != nil; f = f.wrapped {
		f.mu.RLock()
		for name := range f.globals {
			seen[name] = struct{}{}
		}
		for name, v := range f.vars {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out[name] = v
		}
		f.mu.RUnlock()
	}
	return out
}
