package vm

// Literal evaluates to a constant.
type Literal struct {
	Node
	Value Value
}

func (c *Literal) Execute(ctx *Context) (Value, error) {
	return c.Value, nil
}

// Ident reads a name.
type Ident struct {
	Node
	Name string
}

func (c *Ident) Execute(ctx *Context) (Value, error) {
	return ctx.Get(c.Name)
}

// Local defines a name in the current frame.
type Local struct {
	Node
	Name  string
	Value Command
}

func (c *Local) Execute(ctx *Context) (Value, error) {
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	if err := ctx.Local(c.Name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Let is plain assignment: update the nearest binding or create a local.
type Let struct {
	Node
	Name  string
	Value Command
}

func (c *Let) Execute(ctx *Context) (Value, error) {
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	if err := ctx.Let(c.Name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Global declares a name as living on the heap. Value may be nil to
// declare without assigning.
type Global struct {
	Node
	Name  string
	Value Command
}

func (c *Global) Execute(ctx *Context) (Value, error) {
	if c.Value == nil {
		return nil, ctx.Global(c.Name, nil, false)
	}
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	if err := ctx.Global(c.Name, v, true); err != nil {
		return nil, err
	}
	return v, nil
}

// Freeze locks a name in the current frame. With a Value it first
// defines the name locally.
type Freeze struct {
	Node
	Name  string
	Value Command
}

func (c *Freeze) Execute(ctx *Context) (Value, error) {
	if c.Value != nil {
		v, sig, err := evalValue(ctx, c.Value)
		if sig != nil || err != nil {
			return forward(sig, err)
		}
		if err := ctx.Local(c.Name, v); err != nil {
			return nil, err
		}
	}
	if err := ctx.Freeze(c.Name); err != nil {
		return nil, err
	}
	v, _ := ctx.GetLocal(c.Name)
	return v, nil
}
