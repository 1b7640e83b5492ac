package vm

import (
	"errors"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Sequencing and branching
// ---------------------------------------------------------------------------

// Block runs its children in order and evaluates to the last value.
// A signal from any child stops the block and is forwarded as is.
// Scoped blocks run in a nested frame.
type Block struct {
	Node
	Body   []Command
	Scoped bool
}

func (c *Block) Execute(ctx *Context) (Value, error) {
	if c.Scoped {
		ctx = ctx.Wrap()
	}
	var last Value
	for _, cmd := range c.Body {
		v, sig, err := evalValue(ctx, cmd)
		if sig != nil || err != nil {
			return forward(sig, err)
		}
		last = v
	}
	return last, nil
}

// If evaluates Then or Else depending on the truthiness of Cond.
type If struct {
	Node
	Cond Command
	Then Command
	Else Command
}

func (c *If) Execute(ctx *Context) (Value, error) {
	cond, sig, err := evalValue(ctx, c.Cond)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	if Truthy(cond) {
		return Exec(ctx, c.Then)
	}
	if c.Else == nil {
		return nil, nil
	}
	return Exec(ctx, c.Else)
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

// loopStep runs one loop body. done is set when the loop must stop;
// result is then the loop's value or the signal to forward.
func loopStep(ctx *Context, body Command) (result Value, done bool, err error) {
	_, sig, err := evalValue(ctx, body)
	if err != nil {
		return nil, true, err
	}
	if sig == nil {
		return nil, false, nil
	}
	if sig.Kind == BreakSignal {
		return sig.Value, true, nil
	}
	return sig, true, nil
}

// While repeats Body while Cond is truthy.
type While struct {
	Node
	Cond Command
	Body Command
}

func (c *While) Execute(ctx *Context) (Value, error) {
	for {
		cond, sig, err := evalValue(ctx, c.Cond)
		if sig != nil || err != nil {
			return forward(sig, err)
		}
		if !Truthy(cond) {
			return nil, nil
		}
		if v, done, err := loopStep(ctx, c.Body); done || err != nil {
			return v, err
		}
	}
}

// For is the three-clause loop. Init runs once in a frame private to
// the loop; any clause may be nil.
type For struct {
	Node
	Init   Command
	Cond   Command
	Update Command
	Body   Command
}

func (c *For) Execute(ctx *Context) (Value, error) {
	loop := ctx.Wrap()
	if _, sig, err := evalValue(loop, c.Init); sig != nil || err != nil {
		return forward(sig, err)
	}
	for {
		if c.Cond != nil {
			cond, sig, err := evalValue(loop, c.Cond)
			if sig != nil || err != nil {
				return forward(sig, err)
			}
			if !Truthy(cond) {
				return nil, nil
			}
		}
		if v, done, err := loopStep(loop, c.Body); done || err != nil {
			return v, err
		}
		if _, sig, err := evalValue(loop, c.Update); sig != nil || err != nil {
			return forward(sig, err)
		}
	}
}

// ForEach binds Var to each element of an iterable in a fresh frame per
// iteration.
type ForEach struct {
	Node
	Var  string
	Iter Command
	Body Command
}

func (c *ForEach) Execute(ctx *Context) (Value, error) {
	src, sig, err := evalValue(ctx, c.Iter)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	var result Value
	err = Iterate(src, func(item Value) (bool, error) {
		iter := ctx.Wrap()
		iter.Let0(c.Var, item)
		v, done, err := loopStep(iter, c.Body)
		if done {
			result = v
		}
		return !done, err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Iterate calls fn for each element of v until fn returns false. Lists,
// strings (by rune), non-negative integers (0 to n-1), yielders and
// channels (until closed and drained) are iterable.
func Iterate(v Value, fn func(Value) (bool, error)) error {
	switch x := v.(type) {
	case *List:
		for _, item := range x.Items() {
			if more, err := fn(item); !more || err != nil {
				return err
			}
		}
	case string:
		for len(x) > 0 {
			r, size := utf8.DecodeRuneInString(x)
			x = x[size:]
			if more, err := fn(string(r)); !more || err != nil {
				return err
			}
		}
	case int64:
		for i := int64(0); i < x; i++ {
			if more, err := fn(i); !more || err != nil {
				return err
			}
		}
	case *Yielder:
		for {
			ok, err := x.HasNext()
			if err != nil || !ok {
				return err
			}
			item, err := x.Next()
			if err != nil {
				return err
			}
			if more, err := fn(item); !more || err != nil {
				return err
			}
		}
	case *Channel:
		for {
			msg, ok := x.Receive()
			if !ok {
				return nil
			}
			if msg.IsFailure() {
				return msg.Err
			}
			if more, err := fn(msg.Value); !more || err != nil {
				return err
			}
		}
	default:
		return newFault(RuntimeFault, ErrTypeMismatch, "%s is not iterable", TypeName(v))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Break leaves the nearest loop with an optional value.
type Break struct {
	Node
	Value Command
}

func (c *Break) Execute(ctx *Context) (Value, error) {
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	return &Signal{Kind: BreakSignal, Value: v}, nil
}

// Return leaves the nearest closure or macro with an optional value.
type Return struct {
	Node
	Value Command
}

func (c *Return) Execute(ctx *Context) (Value, error) {
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	return &Signal{Kind: ReturnSignal, Value: v}, nil
}

// ---------------------------------------------------------------------------
// Faults
// ---------------------------------------------------------------------------

// Try runs Body; a fault escaping it is turned into an exception object,
// bound to Name, and Handler runs instead. Types, when given, restricts
// catching to instances of those exception classes. Finally always runs
// last; a signal or fault from it replaces the outcome. Step limit
// faults are never caught.
type Try struct {
	Node
	Body    Command
	Name    string
	Types   []Command
	Handler Command
	Finally Command
}

func (c *Try) Execute(ctx *Context) (Value, error) {
	v, err := Exec(ctx, c.Body)
	if err != nil {
		v, err = c.handle(ctx, AsFault(err))
	}
	if c.Finally == nil {
		return v, err
	}
	_, sig, ferr := evalValue(ctx, c.Finally)
	if sig != nil || ferr != nil {
		return forward(sig, ferr)
	}
	return v, err
}

func (c *Try) handle(ctx *Context, f *Fault) (Value, error) {
	if errors.Is(f, ErrStepLimit) || c.Handler == nil {
		return nil, f
	}
	vm := ctx.VM()
	exc := vm.exceptionFor(ctx, f)
	if len(c.Types) > 0 {
		matched := false
		for _, t := range c.Types {
			tv, sig, err := evalValue(ctx, t)
			if sig != nil || err != nil {
				return forward(sig, err)
			}
			cls, ok := tv.(*LngClass)
			if !ok {
				return nil, newFault(ObjectFault, ErrBadParent, "catch type %s is not a class", TypeName(tv))
			}
			if exc.InstanceOf(cls) {
				matched = true
				break
			}
		}
		if !matched {
			return nil, f
		}
	}
	logger.Debugf("caught %s fault: %s", f.Kind, f.Message)
	hctx := ctx.Wrap()
	if c.Name != "" {
		hctx.Let0(c.Name, exc)
	}
	return Exec(hctx, c.Handler)
}

// Raise throws a value. Exception objects keep their class; a caught
// exception re-raises its original fault.
type Raise struct {
	Node
	Value Command
}

func (c *Raise) Execute(ctx *Context) (Value, error) {
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	return nil, ctx.VM().faultFromRaise(v)
}
