package vm

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Source positions
// ---------------------------------------------------------------------------

// Source is a named chunk of program text. Lines are split on first use.
type Source struct {
	Name string
	Text string

	once  sync.Once
	lines []string
}

// NewSource creates a Source.
func NewSource(name, text string) *Source {
	return &Source{Name: name, Text: text}
}

// Line returns the 1-based line n, or "" when out of range.
func (s *Source) Line(n int) string {
	if s == nil {
		return ""
	}
	s.once.Do(func() {
		s.lines = strings.Split(s.Text, "\n")
	})
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return strings.TrimRight(s.lines[n-1], "\r")
}

// Position locates a command in its Source.
type Position struct {
	Source *Source
	Line   int
	Column int
}

// At builds a Position.
func At(src *Source, line, column int) *Position {
	return &Position{Source: src, Line: line, Column: column}
}

// File returns the source name, or "<unknown>".
func (p *Position) File() string {
	if p == nil || p.Source == nil || p.Source.Name == "" {
		return "<unknown>"
	}
	return p.Source.Name
}

func (p *Position) String() string {
	if p == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File(), p.Line, p.Column)
}

// ---------------------------------------------------------------------------
// ThreadContext: per logical thread call stack and yielder stack
// ---------------------------------------------------------------------------

// StackFrame records one command under execution.
type StackFrame struct {
	Cmd Command
	Pos *Position
}

var threadIDs atomic.Uint64

// ThreadContext is the state of one logical thread. It is only mutated by
// the goroutine running that thread, but snapshots may be taken from
// anywhere, so access is locked.
type ThreadContext struct {
	id uint64

	mu       sync.Mutex
	frames   []StackFrame
	yielders []*Yielder
}

// NewThreadContext creates an empty thread state with a fresh id.
func NewThreadContext() *ThreadContext {
	return &ThreadContext{id: threadIDs.Add(1)}
}

// ID returns the thread's identifier.
func (t *ThreadContext) ID() uint64 {
	return t.id
}

func (t *ThreadContext) push(f StackFrame) {
	t.mu.Lock()
	t.frames = append(t.frames, f)
	t.mu.Unlock()
}

func (t *ThreadContext) pop() {
	t.mu.Lock()
	if n := len(t.frames); n > 0 {
		t.frames[n-1] = StackFrame{}
		t.frames = t.frames[:n-1]
	}
	t.mu.Unlock()
}

// Depth returns the current call stack depth.
func (t *ThreadContext) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

// Snapshot copies the live call stack, outermost frame first.
func (t *ThreadContext) Snapshot() []StackFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StackFrame, len(t.frames))
	copy(out, t.frames)
	return out
}

// PushYielder makes y the target of yield expressions on this thread.
func (t *ThreadContext) PushYielder(y *Yielder) {
	t.mu.Lock()
	t.yielders = append(t.yielders, y)
	t.mu.Unlock()
}

// PopYielder removes the innermost yielder.
func (t *ThreadContext) PopYielder() {
	t.mu.Lock()
	if n := len(t.yielders); n > 0 {
		t.yielders[n-1] = nil
		t.yielders = t.yielders[:n-1]
	}
	t.mu.Unlock()
}

// TopYielder returns the innermost active yielder, or nil.
func (t *ThreadContext) TopYielder() *Yielder {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.yielders); n > 0 {
		return t.yielders[n-1]
	}
	return nil
}
