package vm

import (
	"time"
)

func channelMethod(fn func(ctx *Context, ch *Channel, args []ArgValue) (Value, error)) NativeMethod {
	return method(TagChannel, fn)
}

func yielderMethod(fn func(ctx *Context, y *Yielder, args []ArgValue) (Value, error)) NativeMethod {
	return method(TagYielder, fn)
}

// optionalMillis reads an optional timeout argument.
func optionalMillis(name string, vals []Value, at int) (time.Duration, bool, error) {
	if len(vals) <= at || vals[at] == nil {
		return 0, false, nil
	}
	ms, err := intArg(name, vals[at])
	if err != nil {
		return 0, false, err
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}

// received turns a receive outcome into a script value: none when
// nothing was received, the value, or the carried failure re-raised.
func received(m Message, ok bool) (Value, error) {
	if !ok {
		return nil, nil
	}
	return m.Unwrap()
}

func (vm *VM) registerConcurrencyPrimitives() {
	vm.builtin("que", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("que", args, 0, 1)
		if err != nil {
			return nil, err
		}
		capacity := int64(vm.queueCapacity)
		if len(vals) == 1 {
			if capacity, err = intArg("que", vals[0]); err != nil {
				return nil, err
			}
		}
		return NewChannel(int(capacity)), nil
	})

	vm.builtin("await", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("await", args, 1, 1)
		if err != nil {
			return nil, err
		}
		return Await(vals[0])
	})

	vm.builtin("select", func(ctx *Context, args []ArgValue) (Value, error) {
		pos, named := splitNamed(args)
		chans := make([]*Channel, 0, len(pos))
		for _, a := range pos {
			ch, ok := a.Value.(*Channel)
			if !ok {
				return nil, newFault(BindingFault, ErrTypeMismatch, "select expects channels, got %s", TypeName(a.Value))
			}
			chans = append(chans, ch)
		}
		timeout := time.Duration(-1)
		if t, ok := named["timeout"]; ok {
			ms, err := intArg("select", t)
			if err != nil {
				return nil, err
			}
			timeout = time.Duration(ms) * time.Millisecond
		}
		idx, m := Select(chans, timeout)
		if idx < 0 {
			return nil, nil
		}
		v, err := m.Unwrap()
		if err != nil {
			return nil, err
		}
		return NewList(int64(idx), v), nil
	})

	vm.global.ProvideAll(TagChannel, MethodTable{
		"send": channelMethod(func(ctx *Context, ch *Channel, args []ArgValue) (Value, error) {
			vals, err := positional("send", args, 1, 1)
			if err != nil {
				return nil, err
			}
			return nil, ch.Send(Success(vals[0]))
		}),
		"try_send": channelMethod(func(ctx *Context, ch *Channel, args []ArgValue) (Value, error) {
			vals, err := positional("try_send", args, 1, 2)
			if err != nil {
				return nil, err
			}
			d, timed, err := optionalMillis("try_send", vals, 1)
			if err != nil {
				return nil, err
			}
			if timed {
				return ch.TrySendTimeout(Success(vals[0]), d), nil
			}
			return ch.TrySend(Success(vals[0])), nil
		}),
		"receive": channelMethod(func(ctx *Context, ch *Channel, args []ArgValue) (Value, error) {
			if _, err := positional("receive", args, 0, 0); err != nil {
				return nil, err
			}
			return received(ch.Receive())
		}),
		"try_receive": channelMethod(func(ctx *Context, ch *Channel, args []ArgValue) (Value, error) {
			vals, err := positional("try_receive", args, 0, 1)
			if err != nil {
				return nil, err
			}
			d, timed, err := optionalMillis("try_receive", vals, 0)
			if err != nil {
				return nil, err
			}
			if timed {
				return received(ch.ReceiveTimeout(d))
			}
			return received(ch.TryReceive())
		}),
		"close": channelMethod(func(ctx *Context, ch *Channel, args []ArgValue) (Value, error) {
			ch.Close()
			return nil, nil
		}),
		"is_closed": channelMethod(func(ctx *Context, ch *Channel, args []ArgValue) (Value, error) {
			return ch.IsClosed(), nil
		}),
		"len": channelMethod(func(ctx *Context, ch *Channel, args []ArgValue) (Value, error) {
			return int64(ch.Len()), nil
		}),
		"cap": channelMethod(func(ctx *Context, ch *Channel, args []ArgValue) (Value, error) {
			return int64(ch.Cap()), nil
		}),
	})

	vm.global.ProvideAll(TagYielder, MethodTable{
		"has_next": yielderMethod(func(ctx *Context, y *Yielder, args []ArgValue) (Value, error) {
			return y.HasNext()
		}),
		"next": yielderMethod(func(ctx *Context, y *Yielder, args []ArgValue) (Value, error) {
			return y.Next()
		}),
	})

	vm.global.ProvideAll(TagExpr, MethodTable{
		"eval": method(TagExpr, func(ctx *Context, e *Expr, args []ArgValue) (Value, error) {
			if _, err := positional("eval", args, 0, 0); err != nil {
				return nil, err
			}
			return e.Eval()
		}),
	})
}
