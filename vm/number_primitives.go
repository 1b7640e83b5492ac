package vm

import "math"

// ---------------------------------------------------------------------------
// Number primitives
// ---------------------------------------------------------------------------

// numberRounding adapts a float rounding function. Integers are already
// whole and come back unchanged; whole float results become ints.
func numberRounding(name string, fn func(float64) float64) NativeMethod {
	return func(ctx *Context, recv Value, args []ArgValue) (Value, error) {
		if _, err := positional(name, args, 0, 0); err != nil {
			return nil, err
		}
		switch x := recv.(type) {
		case int64:
			return x, nil
		case float64:
			r := fn(x)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return r, nil
			}
			return int64(r), nil
		}
		return nil, newFault(ObjectFault, ErrTypeMismatch, "%s called on %s", name, TypeName(recv))
	}
}

func (vm *VM) registerNumberPrimitives() {
	vm.global.ProvideAll(TagNumber, MethodTable{
		"abs": func(ctx *Context, recv Value, args []ArgValue) (Value, error) {
			switch x := recv.(type) {
			case int64:
				if x < 0 {
					return -x, nil
				}
				return x, nil
			case float64:
				return math.Abs(x), nil
			}
			return nil, newFault(ObjectFault, ErrTypeMismatch, "abs called on %s", TypeName(recv))
		},
		"floor": numberRounding("floor", math.Floor),
		"ceil":  numberRounding("ceil", math.Ceil),
		"round": numberRounding("round", math.Round),
	})

	vm.global.ProvideAll(TagFloat, MethodTable{
		"is_nan": method(TagFloat, func(ctx *Context, f float64, args []ArgValue) (Value, error) {
			return math.IsNaN(f), nil
		}),
		"is_inf": method(TagFloat, func(ctx *Context, f float64, args []ArgValue) (Value, error) {
			return math.IsInf(f, 0), nil
		}),
	})
}
