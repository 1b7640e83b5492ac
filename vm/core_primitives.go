package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// registerCorePrimitives installs the constants and general builtins.
func (vm *VM) registerCorePrimitives() {
	vm.constant("true", true)
	vm.constant("false", false)
	vm.constant("none", nil)
	vm.constant("inf", math.Inf(1))
	vm.constant("neg_inf", math.Inf(-1))
	vm.constant("nan", math.NaN())
	vm.constant(Skip.name, Skip)
	vm.constant(Stop.name, Stop)

	vm.builtin("print", func(ctx *Context, args []ArgValue) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = Stringify(a.Value)
		}
		vm.outMu.Lock()
		defer vm.outMu.Unlock()
		if _, err := fmt.Fprintln(vm.out, strings.Join(parts, " ")); err != nil {
			return nil, fmt.Errorf("print: %w", err)
		}
		return nil, nil
	})

	vm.builtin("str", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("str", args, 1, 1)
		if err != nil {
			return nil, err
		}
		return Stringify(vals[0]), nil
	})

	vm.builtin("int", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("int", args, 1, 1)
		if err != nil {
			return nil, err
		}
		return toIntValue(vals[0])
	})

	vm.builtin("float", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("float", args, 1, 1)
		if err != nil {
			return nil, err
		}
		return toFloatValue(vals[0])
	})

	vm.builtin("len", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("len", args, 1, 1)
		if err != nil {
			return nil, err
		}
		return lengthOf(vals[0])
	})

	vm.builtin("type", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("type", args, 1, 1)
		if err != nil {
			return nil, err
		}
		return TypeName(vals[0]), nil
	})

	vm.builtin("range", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("range", args, 1, 3)
		if err != nil {
			return nil, err
		}
		nums := make([]int64, len(vals))
		for i, v := range vals {
			if nums[i], err = intArg("range", v); err != nil {
				return nil, err
			}
		}
		start, stop, step := int64(0), nums[0], int64(1)
		if len(nums) >= 2 {
			start, stop = nums[0], nums[1]
		}
		if len(nums) == 3 {
			step = nums[2]
		}
		if step == 0 {
			return nil, NewFault("range step must not be zero")
		}
		n := rangeLen(start, stop, step)
		if n > maxSequenceLen {
			return nil, newFault(RuntimeFault, ErrIndexRange, "range of %d elements exceeds the maximum length of %d", n, maxSequenceLen)
		}
		items := make([]Value, n)
		i := start
		for k := range items {
			items[k] = i
			i += step
		}
		return NewList(items...), nil
	})

	vm.builtin("list", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("list", args, 0, 1)
		if err != nil {
			return nil, err
		}
		out := NewList()
		if len(vals) == 0 {
			return out, nil
		}
		err = Iterate(vals[0], func(v Value) (bool, error) {
			out.Append(v)
			return true, nil
		})
		return out, err
	})

	vm.builtin("keys", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("keys", args, 1, 1)
		if err != nil {
			return nil, err
		}
		var names []string
		switch x := vals[0].(type) {
		case *LngObject:
			names = x.FieldNames()
		case *LngClass:
			names = x.Body.LocalNames()
		default:
			return nil, newFault(ObjectFault, ErrTypeMismatch, "keys expects an object or class, got %s", TypeName(vals[0]))
		}
		out := NewList()
		for _, n := range names {
			out.Append(n)
		}
		return out, nil
	})

	vm.builtin("is_instance", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("is_instance", args, 2, 2)
		if err != nil {
			return nil, err
		}
		switch t := vals[1].(type) {
		case *LngClass:
			obj, ok := vals[0].(*LngObject)
			return ok && obj.InstanceOf(t), nil
		case string:
			return MatchesType(ctx, vals[0], t), nil
		}
		return nil, newFault(BindingFault, ErrTypeMismatch, "is_instance expects a class or type name, got %s", TypeName(vals[1]))
	})

	vm.builtin("methods", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("methods", args, 1, 1)
		if err != nil {
			return nil, err
		}
		out := NewList()
		for _, n := range ctx.global.MethodNames(vals[0]) {
			out.Append(n)
		}
		return out, nil
	})

	vm.builtin("sleep", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("sleep", args, 1, 1)
		if err != nil {
			return nil, err
		}
		ms, err := intArg("sleep", vals[0])
		if err != nil {
			return nil, err
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return nil, nil
	})

	vm.builtin("eval", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("eval", args, 1, 1)
		if err != nil {
			return nil, err
		}
		src, err := stringArg("eval", vals[0])
		if err != nil {
			return nil, err
		}
		return vm.EvalString(ctx, "<eval>", src)
	})

	vm.builtin("import", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("import", args, 1, 1)
		if err != nil {
			return nil, err
		}
		path, err := stringArg("import", vals[0])
		if err != nil {
			return nil, err
		}
		return vm.Import(ctx, path)
	})

	vm.builtin("equal", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("equal", args, 2, 2)
		if err != nil {
			return nil, err
		}
		return Equal(ctx, vals[0], vals[1])
	})

	vm.macro("assert", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("assert", args, 1, 2)
		if err != nil {
			return nil, err
		}
		cond, err := exprArg("assert", vals[0])
		if err != nil {
			return nil, err
		}
		v, err := Eval(cond.Ctx, cond.Cmd)
		if err != nil {
			return nil, err
		}
		if Truthy(v) {
			return nil, nil
		}
		msg := "assertion failed"
		if len(vals) == 2 {
			e, err := exprArg("assert", vals[1])
			if err != nil {
				return nil, err
			}
			m, err := Eval(e.Ctx, e.Cmd)
			if err != nil {
				return nil, err
			}
			msg += ": " + Stringify(m)
		}
		return nil, NewFault("%s", msg)
	})

	vm.macro("quote", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("quote", args, 1, 1)
		if err != nil {
			return nil, err
		}
		return vals[0], nil
	})
}

func toIntValue(v Value) (Value, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, NewFault("cannot convert %s to int", formatFloat(x))
		}
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
		return nil, NewFault("cannot convert %q to int", x)
	}
	return nil, newFault(RuntimeFault, ErrTypeMismatch, "cannot convert %s to int", TypeName(v))
}

func toFloatValue(v Value) (Value, error) {
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, NewFault("cannot convert %q to float", x)
		}
		return f, nil
	}
	return nil, newFault(RuntimeFault, ErrTypeMismatch, "cannot convert %s to float", TypeName(v))
}

func lengthOf(v Value) (Value, error) {
	switch x := v.(type) {
	case string:
		return int64(len([]rune(x))), nil
	case *List:
		return int64(x.Len()), nil
	case *LngObject:
		return int64(len(x.FieldNames())), nil
	case *Channel:
		return int64(x.Len()), nil
	}
	return nil, newFault(RuntimeFault, ErrTypeMismatch, "%s has no length", TypeName(v))
}

// rangeLen counts the elements of start..stop by step without
// overflowing near the ends of the int64 range.
func rangeLen(start, stop, step int64) uint64 {
	switch {
	case step > 0 && start < stop:
		return (uint64(stop)-uint64(start)-1)/uint64(step) + 1
	case step < 0 && start > stop:
		return (uint64(start)-uint64(stop)-1)/(uint64(-(step+1))+1) + 1
	}
	return 0
}
