package vm

// ---------------------------------------------------------------------------
// List primitives
// ---------------------------------------------------------------------------

func listMethod(fn func(ctx *Context, l *List, args []ArgValue) (Value, error)) NativeMethod {
	return method(TagList, fn)
}

func (vm *VM) registerListPrimitives() {
	vm.global.ProvideAll(TagList, MethodTable{
		"len": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			return int64(l.Len()), nil
		}),

		"push": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			vals, err := positional("push", args, 1, -1)
			if err != nil {
				return nil, err
			}
			l.Append(vals...)
			return l, nil
		}),

		"pop": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			v, ok := l.Pop()
			if !ok {
				return nil, newFault(RuntimeFault, ErrIndexRange, "pop from empty list")
			}
			return v, nil
		}),

		"get": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			vals, err := positional("get", args, 1, 2)
			if err != nil {
				return nil, err
			}
			i, err := intArg("get", vals[0])
			if err != nil {
				return nil, err
			}
			if v, ok := l.Get(i); ok {
				return v, nil
			}
			if len(vals) == 2 {
				return vals[1], nil
			}
			return nil, newFault(RuntimeFault, ErrIndexRange, "list index %d out of range (len %d)", i, l.Len())
		}),

		"set": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			vals, err := positional("set", args, 2, 2)
			if err != nil {
				return nil, err
			}
			i, err := intArg("set", vals[0])
			if err != nil {
				return nil, err
			}
			if !l.Set(i, vals[1]) {
				return nil, newFault(RuntimeFault, ErrIndexRange, "list index %d out of range (len %d)", i, l.Len())
			}
			return vals[1], nil
		}),

		"slice": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			vals, err := positional("slice", args, 1, 2)
			if err != nil {
				return nil, err
			}
			items := l.Items()
			n := int64(len(items))
			start, err := intArg("slice", vals[0])
			if err != nil {
				return nil, err
			}
			end := n
			if len(vals) == 2 {
				if end, err = intArg("slice", vals[1]); err != nil {
					return nil, err
				}
			}
			start, end = clampIndex(start, n), clampIndex(end, n)
			if start > end {
				start = end
			}
			return NewList(items[start:end]...), nil
		}),

		"contains": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			vals, err := positional("contains", args, 1, 1)
			if err != nil {
				return nil, err
			}
			for _, it := range l.Items() {
				eq, err := Equal(ctx, it, vals[0])
				if err != nil {
					return nil, err
				}
				if eq {
					return true, nil
				}
			}
			return false, nil
		}),

		"map": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			vals, err := positional("map", args, 1, 1)
			if err != nil {
				return nil, err
			}
			out := NewList()
			for _, it := range l.Items() {
				v, err := Call(ctx, vals[0], it)
				if err != nil {
					return nil, err
				}
				if v == Skip {
					continue
				}
				if v == Stop {
					break
				}
				out.Append(v)
			}
			return out, nil
		}),

		"each": listMethod(func(ctx *Context, l *List, args []ArgValue) (Value, error) {
			vals, err := positional("each", args, 1, 1)
			if err != nil {
				return nil, err
			}
			for _, it := range l.Items() {
				v, err := Call(ctx, vals[0], it)
				if err != nil {
					return nil, err
				}
				if v == Stop {
					break
				}
			}
			return nil, nil
		}),
	})
}

// clampIndex resolves a possibly negative slice bound into [0, n].
func clampIndex(i, n int64) int64 {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
