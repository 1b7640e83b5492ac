package vm

// ---------------------------------------------------------------------------
// Command: the executable tree node contract
// ---------------------------------------------------------------------------

// Command is one node of a parsed program. Execute returns the node's
// value, which may be a *Signal when a break or return is in flight.
// Nodes are run through Exec, never by calling Execute directly.
type Command interface {
	Execute(ctx *Context) (Value, error)
	Pos() *Position
}

// Node carries the source position shared by all command types.
type Node struct {
	At *Position
}

// Pos returns the node's source position, possibly nil.
func (n Node) Pos() *Position {
	return n.At
}

// SignalKind distinguishes the non-exceptional control transfers.
type SignalKind int

const (
	BreakSignal SignalKind = iota
	ReturnSignal
)

func (k SignalKind) String() string {
	if k == ReturnSignal {
		return "return"
	}
	return "break"
}

// Signal is a break or return travelling up the tree as an ordinary
// result. Blocks forward it untouched, loops consume breaks and callable
// boundaries consume returns.
type Signal struct {
	Kind  SignalKind
	Value Value
}

// Exec runs cmd in ctx: it counts a step and keeps cmd on the thread's
// call stack for the duration. A failure leaving cmd is converted to a
// *Fault carrying the call stack as it was at the innermost failing node.
// A nil cmd evaluates to none.
func Exec(ctx *Context, cmd Command) (Value, error) {
	if cmd == nil {
		return nil, nil
	}
	th := ctx.thread
	th.push(StackFrame{Cmd: cmd, Pos: cmd.Pos()})
	defer th.pop()

	if err := ctx.Step(); err != nil {
		f := AsFault(err)
		f.attach(th.Snapshot())
		return nil, f
	}
	v, err := cmd.Execute(ctx)
	if err != nil {
		f := AsFault(err)
		if !f.HasTrace() {
			f.attach(th.Snapshot())
		}
		return nil, f
	}
	return v, nil
}

// evalValue runs cmd and splits a control signal from a plain value.
func evalValue(ctx *Context, cmd Command) (Value, *Signal, error) {
	if cmd == nil {
		return nil, nil, nil
	}
	v, err := Exec(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	if sig, ok := v.(*Signal); ok {
		return nil, sig, nil
	}
	return v, nil, nil
}

// forward passes an in-flight signal or error up to the caller.
func forward(sig *Signal, err error) (Value, error) {
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// Eval runs cmd and resolves control signals the way a callable
// boundary does: a return yields its value and a break is a fault.
func Eval(ctx *Context, cmd Command) (Value, error) {
	v, sig, err := evalValue(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if sig != nil {
		if sig.Kind == BreakSignal {
			return nil, newFault(RuntimeFault, ErrBreakOutsideLoop, "cannot break from a function")
		}
		return sig.Value, nil
	}
	return v, nil
}
