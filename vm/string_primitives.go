package vm

import (
	"strings"
)

// ---------------------------------------------------------------------------
// String primitives
// ---------------------------------------------------------------------------

func stringMethod(fn func(ctx *Context, s string, args []ArgValue) (Value, error)) NativeMethod {
	return method(TagString, fn)
}

// stringUnary adapts a string->string function taking no arguments.
func stringUnary(name string, fn func(string) string) NativeMethod {
	return stringMethod(func(ctx *Context, s string, args []ArgValue) (Value, error) {
		if _, err := positional(name, args, 0, 0); err != nil {
			return nil, err
		}
		return fn(s), nil
	})
}

// stringPredicate adapts a (string, string) -> bool function.
func stringPredicate(name string, fn func(string, string) bool) NativeMethod {
	return stringMethod(func(ctx *Context, s string, args []ArgValue) (Value, error) {
		vals, err := positional(name, args, 1, 1)
		if err != nil {
			return nil, err
		}
		other, err := stringArg(name, vals[0])
		if err != nil {
			return nil, err
		}
		return fn(s, other), nil
	})
}

func (vm *VM) registerStringPrimitives() {
	vm.global.ProvideAll(TagString, MethodTable{
		"len": stringMethod(func(ctx *Context, s string, args []ArgValue) (Value, error) {
			return int64(len([]rune(s))), nil
		}),
		"upper":       stringUnary("upper", strings.ToUpper),
		"lower":       stringUnary("lower", strings.ToLower),
		"trim":        stringUnary("trim", strings.TrimSpace),
		"contains":    stringPredicate("contains", strings.Contains),
		"starts_with": stringPredicate("starts_with", strings.HasPrefix),
		"ends_with":   stringPredicate("ends_with", strings.HasSuffix),

		"split": stringMethod(func(ctx *Context, s string, args []ArgValue) (Value, error) {
			vals, err := positional("split", args, 0, 1)
			if err != nil {
				return nil, err
			}
			var parts []string
			if len(vals) == 0 {
				parts = strings.Fields(s)
			} else {
				sep, err := stringArg("split", vals[0])
				if err != nil {
					return nil, err
				}
				parts = strings.Split(s, sep)
			}
			out := NewList()
			for _, p := range parts {
				out.Append(p)
			}
			return out, nil
		}),

		"replace": stringMethod(func(ctx *Context, s string, args []ArgValue) (Value, error) {
			vals, err := positional("replace", args, 2, 2)
			if err != nil {
				return nil, err
			}
			old, err := stringArg("replace", vals[0])
			if err != nil {
				return nil, err
			}
			repl, err := stringArg("replace", vals[1])
			if err != nil {
				return nil, err
			}
			return strings.ReplaceAll(s, old, repl), nil
		}),

		"index_of": stringMethod(func(ctx *Context, s string, args []ArgValue) (Value, error) {
			vals, err := positional("index_of", args, 1, 1)
			if err != nil {
				return nil, err
			}
			sub, err := stringArg("index_of", vals[0])
			if err != nil {
				return nil, err
			}
			i := strings.Index(s, sub)
			if i < 0 {
				return int64(-1), nil
			}
			return int64(len([]rune(s[:i]))), nil
		}),

		"join": stringMethod(func(ctx *Context, s string, args []ArgValue) (Value, error) {
			vals, err := positional("join", args, 1, 1)
			if err != nil {
				return nil, err
			}
			l, err := listArg("join", vals[0])
			if err != nil {
				return nil, err
			}
			items := l.Items()
			parts := make([]string, len(items))
			for i, it := range items {
				parts[i] = Stringify(it)
			}
			return strings.Join(parts, s), nil
		}),
	})
}
