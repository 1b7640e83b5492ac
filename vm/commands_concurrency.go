package vm

// Yield hands a value to the innermost generator running on this thread.
type Yield struct {
	Node
	Value Command
}

func (c *Yield) Execute(ctx *Context) (Value, error) {
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	y := ctx.thread.TopYielder()
	if y == nil {
		return nil, newFault(ConcurrencyFault, ErrNoYielder, "yield outside of a generator")
	}
	if err := y.Send(v); err != nil {
		return nil, err
	}
	return nil, nil
}

// Generator evaluates to an unbounded yielder fed by Body running as a
// task.
type Generator struct {
	Node
	Body Command
}

func (c *Generator) Execute(ctx *Context) (Value, error) {
	return Generate(ctx, 0, c.Body), nil
}

// Stream is Generator with a bound on unconsumed values. A nil Capacity
// uses the VM's configured stream capacity.
type Stream struct {
	Node
	Capacity Command
	Body     Command
}

func (c *Stream) Execute(ctx *Context) (Value, error) {
	capacity := ctx.VM().streamCapacity
	if c.Capacity != nil {
		v, sig, err := evalValue(ctx, c.Capacity)
		if sig != nil || err != nil {
			return forward(sig, err)
		}
		n, ok := v.(int64)
		if !ok || n < 1 {
			return nil, newFault(ConcurrencyFault, ErrTypeMismatch, "stream capacity must be a positive int, got %s", Stringify(v))
		}
		capacity = int(n)
	}
	return Generate(ctx, capacity, c.Body), nil
}

// AsyncCmd evaluates to a channel that receives Body's outcome once the
// spawned task finishes.
type AsyncCmd struct {
	Node
	Body Command
}

func (c *AsyncCmd) Execute(ctx *Context) (Value, error) {
	return Async(ctx, c.Body), nil
}
