package vm

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Fault taxonomy
// ---------------------------------------------------------------------------

// FaultKind classifies a fault.
type FaultKind int

const (
	RuntimeFault FaultKind = iota
	ScopeFault
	BindingFault
	ResourceFault
	ConcurrencyFault
	ObjectFault
)

func (k FaultKind) String() string {
	switch k {
	case ScopeFault:
		return "scope"
	case BindingFault:
		return "binding"
	case ResourceFault:
		return "resource"
	case ConcurrencyFault:
		return "concurrency"
	case ObjectFault:
		return "object"
	default:
		return "runtime"
	}
}

// className is the Exception subclass a caught fault of this kind becomes.
func (k FaultKind) className() string {
	switch k {
	case ScopeFault:
		return "ScopeError"
	case BindingFault:
		return "BindingError"
	case ResourceFault:
		return "ResourceError"
	case ConcurrencyFault:
		return "ConcurrencyError"
	case ObjectFault:
		return "ObjectError"
	default:
		return "Error"
	}
}

// Sentinel causes, usable with errors.Is on any fault.
var (
	ErrUndefined        = errors.New("undefined identifier")
	ErrFrozen           = errors.New("frozen identifier")
	ErrRedeclared       = errors.New("conflicting declaration")
	ErrTooManyArgs      = errors.New("too many parameters")
	ErrMissingArg       = errors.New("parameter not defined")
	ErrAlreadyBound     = errors.New("parameter already defined")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrStepLimit        = errors.New("step limit reached")
	ErrChannelClosed    = errors.New("channel closed")
	ErrNoYielder        = errors.New("yield outside of a generator")
	ErrNotCallable      = errors.New("value is not callable")
	ErrNoSuchField      = errors.New("no such field")
	ErrBadParent        = errors.New("parent is not a class")
	ErrBreakOutsideLoop = errors.New("cannot break from a function")
	ErrZeroDivide       = errors.New("division by zero")
	ErrIndexRange       = errors.New("index out of range")
)

func isSentinel(err error) bool {
	switch err {
	case ErrUndefined, ErrFrozen, ErrRedeclared, ErrTooManyArgs, ErrMissingArg,
		ErrAlreadyBound, ErrTypeMismatch, ErrStepLimit, ErrChannelClosed,
		ErrNoYielder, ErrNotCallable, ErrNoSuchField, ErrBadParent,
		ErrBreakOutsideLoop, ErrZeroDivide, ErrIndexRange:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Fault
// ---------------------------------------------------------------------------

// Fault is the error type of every failure raised while interpreting.
// Frames are the call stack snapshot taken where the fault was first
// observed; the printable trace is built from them on demand.
type Fault struct {
	Kind    FaultKind
	Message string
	Cause   error
	// Payload is the value given to raise, if the fault came from script.
	Payload Value

	mu     sync.Mutex
	frames []StackFrame

	traceOnce sync.Once
	trace     []TraceFrame
}

// TraceFrame is one line of a materialized stack trace.
type TraceFrame struct {
	File   string
	Line   int
	Column int
	Text   string
}

func (tf TraceFrame) String() string {
	return fmt.Sprintf("%s:%d:%d", tf.File, tf.Line, tf.Column)
}

func newFault(kind FaultKind, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Cause: cause, Message: fmt.Sprintf(format, args...)}
}

// panicFault converts a host panic recovered at an interpretation
// boundary.
func panicFault(where string, r any) *Fault {
	return newFault(RuntimeFault, fmt.Errorf("panic: %v", r), "%s: host panic: %v", where, r)
}

// NewFault creates a runtime fault for host code such as builtins.
func NewFault(format string, args ...any) *Fault {
	return newFault(RuntimeFault, nil, format, args...)
}

func (f *Fault) Error() string {
	return f.Message
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// HasTrace reports whether a call stack snapshot is attached.
func (f *Fault) HasTrace() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames != nil
}

// attach records frames unless an earlier (deeper) snapshot exists.
func (f *Fault) attach(frames []StackFrame) {
	f.mu.Lock()
	if f.frames == nil {
		f.frames = frames
	}
	f.mu.Unlock()
}

// StackTrace returns the positioned frames, outermost first. Frames with
// no position are dropped and consecutive repeats of one position are
// collapsed.
func (f *Fault) StackTrace() []TraceFrame {
	f.traceOnce.Do(func() {
		f.mu.Lock()
		frames := f.frames
		f.mu.Unlock()
		var last *Position
		for _, fr := range frames {
			p := fr.Pos
			if p == nil {
				continue
			}
			if last != nil && last.Source == p.Source && last.Line == p.Line && last.Column == p.Column {
				continue
			}
			last = p
			f.trace = append(f.trace, TraceFrame{
				File:   p.File(),
				Line:   p.Line,
				Column: p.Column,
				Text:   p.Source.Line(p.Line),
			})
		}
	})
	return f.trace
}

// Format renders the message followed by the stack trace, innermost
// frame last.
func (f *Fault) Format() string {
	var sb strings.Builder
	sb.WriteString(f.Message)
	for _, tf := range f.StackTrace() {
		sb.WriteString("\n  at ")
		sb.WriteString(tf.String())
		if tf.Text != "" {
			sb.WriteString("\n    ")
			sb.WriteString(strings.TrimSpace(tf.Text))
		}
	}
	var cause *Fault
	if errors.As(f.Cause, &cause) {
		sb.WriteString("\ncaused by: ")
		sb.WriteString(cause.Format())
	}
	return sb.String()
}

// AsFault returns err as a *Fault, wrapping foreign errors into a
// runtime fault that keeps them as cause.
func AsFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{Kind: RuntimeFault, Message: err.Error(), Cause: err}
}

// ---------------------------------------------------------------------------
// Exception objects
// ---------------------------------------------------------------------------

// exceptionFields are bound on every caught exception instance.
const (
	fieldMessage    = "message"
	fieldStackTrace = "stack_trace"
	fieldCause      = "cause"
	fieldKind       = "kind"
	fieldValue      = "value"
)

// bootstrapExceptionClasses creates Exception and its subclasses, one per
// fault kind. Exception(message) constructs a raisable instance.
func (vm *VM) bootstrapExceptionClasses(ctx *Context) {
	root := &LngClass{Name: "Exception", Body: ctx.Open()}
	params := MustParams(ParamSpec{Param: Param{Name: fieldMessage, Default: &Literal{Value: ""}}})
	root.Body.Let0("init", &Closure{
		Name:   "init",
		Params: params,
		Body: &FieldSet{
			Target: &Ident{Name: "this"},
			Name:   fieldMessage,
			Value:  &Ident{Name: fieldMessage},
		},
	})
	root.Body.Let0(fieldCause, nil)
	root.Body.Let0(fieldStackTrace, NewList())
	vm.exceptionClass = root
	vm.global.RegisterClass(root)
	vm.heap.Set(root.Name, root)

	errClass := &LngClass{Name: "Error", Parents: []*LngClass{root}, Body: ctx.Open()}
	vm.global.RegisterClass(errClass)
	vm.heap.Set(errClass.Name, errClass)

	for _, name := range []string{"ScopeError", "BindingError", "ResourceError", "ConcurrencyError", "ObjectError", "ZeroDivide"} {
		c := &LngClass{Name: name, Parents: []*LngClass{errClass}, Body: ctx.Open()}
		vm.global.RegisterClass(c)
		vm.heap.Set(name, c)
	}
}

// exceptionFor converts a fault into the in-language exception object
// handed to a catch body. A raised Exception instance is reused.
func (vm *VM) exceptionFor(ctx *Context, f *Fault) *LngObject {
	if obj, ok := f.Payload.(*LngObject); ok && obj.InstanceOf(vm.exceptionClass) {
		obj.fault = f
		obj.Ctx.Let0(fieldStackTrace, vm.traceList(ctx, f))
		return obj
	}

	name := f.Kind.className()
	if errors.Is(f, ErrZeroDivide) {
		name = "ZeroDivide"
	}
	cls := vm.global.Class(name)
	if cls == nil {
		cls = vm.exceptionClass
	}
	obj := newInstance(ctx, cls)
	obj.fault = f
	obj.Ctx.Let0(fieldMessage, f.Message)
	obj.Ctx.Let0(fieldKind, f.Kind.String())
	obj.Ctx.Let0(fieldStackTrace, vm.traceList(ctx, f))
	if f.Payload != nil {
		obj.Ctx.Let0(fieldValue, f.Payload)
	}

	var cause Value
	var inner *Fault
	switch {
	case f.Cause == nil || isSentinel(f.Cause):
	case errors.As(f.Cause, &inner):
		cause = vm.exceptionFor(ctx, inner)
	default:
		cause = f.Cause.Error()
	}
	obj.Ctx.Let0(fieldCause, cause)
	return obj
}

func (vm *VM) traceList(ctx *Context, f *Fault) *List {
	out := NewList()
	for _, tf := range f.StackTrace() {
		fr := NewObject(ctx)
		fr.Ctx.Let0("file", tf.File)
		fr.Ctx.Let0("line", int64(tf.Line))
		fr.Ctx.Let0("column", int64(tf.Column))
		fr.Ctx.Let0("text", tf.Text)
		out.Append(fr)
	}
	return out
}

// faultFromRaise builds the fault for a raise of v. Re-raising a caught
// exception object resumes its original fault.
func (vm *VM) faultFromRaise(v Value) *Fault {
	if obj, ok := v.(*LngObject); ok {
		if obj.fault != nil {
			return obj.fault
		}
		if obj.InstanceOf(vm.exceptionClass) {
			msg, _ := obj.Field(fieldMessage)
			f := NewFault("%s", Stringify(msg))
			f.Payload = obj
			return f
		}
	}
	f := NewFault("%s", Stringify(v))
	f.Payload = v
	return f
}
