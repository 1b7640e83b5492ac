package vm

// ListLit builds a new list.
type ListLit struct {
	Node
	Items []Command
}

func (c *ListLit) Execute(ctx *Context) (Value, error) {
	items := make([]Value, 0, len(c.Items))
	for _, cmd := range c.Items {
		v, sig, err := evalValue(ctx, cmd)
		if sig != nil || err != nil {
			return forward(sig, err)
		}
		items = append(items, v)
	}
	return NewList(items...), nil
}

// ObjectLit builds a class-less object from named field expressions.
type ObjectLit struct {
	Node
	Fields []Arg
}

func (c *ObjectLit) Execute(ctx *Context) (Value, error) {
	obj := NewObject(ctx)
	for _, f := range c.Fields {
		v, sig, err := evalValue(ctx, f.Value)
		if sig != nil || err != nil {
			return forward(sig, err)
		}
		obj.Ctx.Let0(f.Name, v)
	}
	return obj, nil
}

// Index reads target[index].
type Index struct {
	Node
	Target Command
	Index  Command
}

func (c *Index) Execute(ctx *Context) (Value, error) {
	target, sig, err := evalValue(ctx, c.Target)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	idx, sig, err := evalValue(ctx, c.Index)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	return indexValue(ctx, target, idx)
}

func indexValue(ctx *Context, target, idx Value) (Value, error) {
	switch t := target.(type) {
	case *List:
		i, ok := idx.(int64)
		if !ok {
			return nil, newFault(RuntimeFault, ErrTypeMismatch, "list index must be int, got %s", TypeName(idx))
		}
		v, ok := t.Get(i)
		if !ok {
			return nil, newFault(RuntimeFault, ErrIndexRange, "list index %d out of range (len %d)", i, t.Len())
		}
		return v, nil
	case string:
		i, ok := idx.(int64)
		if !ok {
			return nil, newFault(RuntimeFault, ErrTypeMismatch, "string index must be int, got %s", TypeName(idx))
		}
		runes := []rune(t)
		n, ok := normalizeIndex(i, len(runes))
		if !ok {
			return nil, newFault(RuntimeFault, ErrIndexRange, "string index %d out of range (len %d)", i, len(runes))
		}
		return string(runes[n]), nil
	case *LngObject, *LngClass:
		name, ok := idx.(string)
		if !ok {
			return nil, newFault(ObjectFault, ErrTypeMismatch, "field name must be string, got %s", TypeName(idx))
		}
		return getMember(ctx, target, name)
	}
	return nil, newFault(RuntimeFault, ErrTypeMismatch, "%s is not indexable", TypeName(target))
}

// IndexSet writes target[index] = value.
type IndexSet struct {
	Node
	Target Command
	Index  Command
	Value  Command
}

func (c *IndexSet) Execute(ctx *Context) (Value, error) {
	target, sig, err := evalValue(ctx, c.Target)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	idx, sig, err := evalValue(ctx, c.Index)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	switch t := target.(type) {
	case *List:
		i, ok := idx.(int64)
		if !ok {
			return nil, newFault(RuntimeFault, ErrTypeMismatch, "list index must be int, got %s", TypeName(idx))
		}
		if !t.Set(i, v) {
			return nil, newFault(RuntimeFault, ErrIndexRange, "list index %d out of range (len %d)", i, t.Len())
		}
		return v, nil
	case *LngObject, *LngClass:
		name, ok := idx.(string)
		if !ok {
			return nil, newFault(ObjectFault, ErrTypeMismatch, "field name must be string, got %s", TypeName(idx))
		}
		return v, setMember(target, name, v)
	}
	return nil, newFault(RuntimeFault, ErrTypeMismatch, "%s does not support item assignment", TypeName(target))
}

// FieldGet reads target.name.
type FieldGet struct {
	Node
	Target Command
	Name   string
}

func (c *FieldGet) Execute(ctx *Context) (Value, error) {
	target, sig, err := evalValue(ctx, c.Target)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	return getMember(ctx, target, c.Name)
}

// FieldSet writes target.name = value.
type FieldSet struct {
	Node
	Target Command
	Name   string
	Value  Command
}

func (c *FieldSet) Execute(ctx *Context) (Value, error) {
	target, sig, err := evalValue(ctx, c.Target)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	v, sig, err := evalValue(ctx, c.Value)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	return v, setMember(target, c.Name, v)
}

// getMember resolves a field or method. Objects and classes are searched
// first; native method providers answer for every other value and for
// names an object does not define.
func getMember(ctx *Context, recv Value, name string) (Value, error) {
	switch r := recv.(type) {
	case *LngObject:
		if v, ok := r.Field(name); ok {
			return v, nil
		}
	case *LngClass:
		if v, ok := r.Lookup(name); ok {
			return v, nil
		}
	}
	if fn, ok := ctx.global.LookupMethod(recv, name); ok {
		return &Builtin{Name: name, Fn: func(c *Context, args []ArgValue) (Value, error) {
			return fn(c, recv, args)
		}}, nil
	}
	return nil, newFault(ObjectFault, ErrNoSuchField, "%s has no field or method %q", TypeName(recv), name)
}

func setMember(recv Value, name string, v Value) error {
	switch r := recv.(type) {
	case *LngObject:
		return r.SetField(name, v)
	case *LngClass:
		return r.Body.Local(name, v)
	}
	return newFault(ObjectFault, ErrNoSuchField, "cannot set field %q on %s", name, TypeName(recv))
}
