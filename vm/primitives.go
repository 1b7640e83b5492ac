package vm

// ---------------------------------------------------------------------------
// Argument helpers for builtins and native methods
// ---------------------------------------------------------------------------

// positional checks that args are unnamed and between min and max in
// number (max < 0 means unlimited), and returns their values.
func positional(name string, args []ArgValue, min, max int) ([]Value, error) {
	if len(args) < min {
		return nil, newFault(BindingFault, ErrMissingArg, "%s expects at least %d argument(s), got %d", name, min, len(args))
	}
	if max >= 0 && len(args) > max {
		return nil, newFault(BindingFault, ErrTooManyArgs, "%s expects at most %d argument(s), got %d", name, max, len(args))
	}
	out := make([]Value, len(args))
	for i, a := range args {
		if a.Name != "" {
			return nil, newFault(BindingFault, ErrTooManyArgs, "%s takes no named argument %q", name, a.Name)
		}
		out[i] = a.Value
	}
	return out, nil
}

// splitNamed separates named arguments from positional ones.
func splitNamed(args []ArgValue) ([]ArgValue, map[string]Value) {
	var pos []ArgValue
	var named map[string]Value
	for _, a := range args {
		if a.Name == "" {
			pos = append(pos, a)
			continue
		}
		if named == nil {
			named = make(map[string]Value)
		}
		named[a.Name] = a.Value
	}
	return pos, named
}

func intArg(name string, v Value) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		if x == float64(int64(x)) {
			return int64(x), nil
		}
	}
	return 0, newFault(BindingFault, ErrTypeMismatch, "%s expects an int, got %s", name, TypeName(v))
}

func stringArg(name string, v Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", newFault(BindingFault, ErrTypeMismatch, "%s expects a string, got %s", name, TypeName(v))
	}
	return s, nil
}

func listArg(name string, v Value) (*List, error) {
	l, ok := v.(*List)
	if !ok {
		return nil, newFault(BindingFault, ErrTypeMismatch, "%s expects a list, got %s", name, TypeName(v))
	}
	return l, nil
}

func exprArg(name string, v Value) (*Expr, error) {
	e, ok := v.(*Expr)
	if !ok {
		return nil, newFault(BindingFault, ErrTypeMismatch, "%s expects an expression, got %s", name, TypeName(v))
	}
	return e, nil
}

// method adapts a receiver-typed function into a NativeMethod.
func method[T any](tag string, fn func(ctx *Context, recv T, args []ArgValue) (Value, error)) NativeMethod {
	return func(ctx *Context, recv Value, args []ArgValue) (Value, error) {
		r, ok := recv.(T)
		if !ok {
			return nil, newFault(ObjectFault, ErrTypeMismatch, "%s method called on %s", tag, TypeName(recv))
		}
		return fn(ctx, r, args)
	}
}
