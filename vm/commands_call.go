package vm

// CallCmd invokes a callable value.
type CallCmd struct {
	Node
	Fn   Command
	Args []Arg
}

func (c *CallCmd) Execute(ctx *Context) (Value, error) {
	fn, sig, err := evalValue(ctx, c.Fn)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	return callValue(ctx, fn, c.Args)
}

// MethodCall looks a member up on the receiver and calls it.
type MethodCall struct {
	Node
	Recv Command
	Name string
	Args []Arg
}

func (c *MethodCall) Execute(ctx *Context) (Value, error) {
	recv, sig, err := evalValue(ctx, c.Recv)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	fn, err := getMember(ctx, recv, c.Name)
	if err != nil {
		return nil, err
	}
	return callValue(ctx, fn, c.Args)
}

// FuncDef creates a closure over the current Context and, when named,
// defines it.
type FuncDef struct {
	Node
	Name        string
	Params      *ParameterList
	ReturnTypes []string
	Body        Command
}

func (c *FuncDef) Execute(ctx *Context) (Value, error) {
	fn := &Closure{Name: c.Name, Params: c.Params, Ctx: ctx, ReturnTypes: c.ReturnTypes, Body: c.Body}
	if c.Name != "" {
		if err := ctx.Define(c.Name, fn); err != nil {
			return nil, err
		}
	}
	return fn, nil
}

// MacroDef creates a macro over the current Context and, when named,
// defines it.
type MacroDef struct {
	Node
	Name        string
	Params      *ParameterList
	ReturnTypes []string
	Body        Command
}

func (c *MacroDef) Execute(ctx *Context) (Value, error) {
	m := &Macro{Name: c.Name, Params: c.Params, Ctx: ctx, ReturnTypes: c.ReturnTypes, Body: c.Body}
	if c.Name != "" {
		if err := ctx.Define(c.Name, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ClassDef resolves the parent classes, runs the body once in a fresh
// frame with no lexical parent, registers the class and defines it.
type ClassDef struct {
	Node
	Name    string
	Parents []Command
	Body    []Command
}

func (c *ClassDef) Execute(ctx *Context) (Value, error) {
	parents := make([]*LngClass, 0, len(c.Parents))
	for _, pc := range c.Parents {
		pv, sig, err := evalValue(ctx, pc)
		if sig != nil || err != nil {
			return forward(sig, err)
		}
		p, ok := pv.(*LngClass)
		if !ok {
			return nil, newFault(ObjectFault, ErrBadParent, "parent of %s must be a class, got %s", c.Name, TypeName(pv))
		}
		parents = append(parents, p)
	}

	cls := NewClass(ctx, c.Name, parents...)
	for _, cmd := range c.Body {
		if _, sig, err := evalValue(cls.Body, cmd); err != nil {
			return nil, err
		} else if sig != nil {
			return nil, newFault(ObjectFault, ErrBreakOutsideLoop, "%s in the body of class %s", sig.Kind, c.Name)
		}
	}

	if c.Name != "" {
		ctx.global.RegisterClass(cls)
		if err := ctx.Define(c.Name, cls); err != nil {
			return nil, err
		}
	}
	logger.Debugf("defined class %s with %d parent(s)", c.Name, len(parents))
	return cls, nil
}
