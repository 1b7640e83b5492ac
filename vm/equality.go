package vm

import "reflect"

// ---------------------------------------------------------------------------
// Structural equality
// ---------------------------------------------------------------------------

type pair struct{ a, b any }

// Equal compares two values. Objects that define == are compared by
// calling it; other objects are equal when they share a class and all
// fields compare equal. Cycles terminate through the visited pair set.
func Equal(ctx *Context, a, b Value) (bool, error) {
	return equalValues(ctx, a, b, make(map[pair]bool))
}

func equalValues(ctx *Context, a, b Value, visited map[pair]bool) (bool, error) {
	switch x := a.(type) {
	case nil:
		return b == nil, nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y, nil
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y, nil
		case float64:
			return float64(x) == y, nil
		}
		return false, nil
	case float64:
		switch y := b.(type) {
		case int64:
			return x == float64(y), nil
		case float64:
			return x == y, nil
		}
		return false, nil
	case string:
		y, ok := b.(string)
		return ok && x == y, nil
	case *List:
		y, ok := b.(*List)
		if !ok {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		k := pair{x, y}
		if visited[k] {
			return true, nil
		}
		visited[k] = true
		xs, ys := x.Items(), y.Items()
		if len(xs) != len(ys) {
			return false, nil
		}
		for i := range xs {
			eq, err := equalValues(ctx, xs[i], ys[i], visited)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *LngObject:
		if m, ok := x.Field("=="); ok && isCallable(m) {
			r, err := Call(ctx, m, b)
			if err != nil {
				return false, err
			}
			return Truthy(r), nil
		}
		y, ok := b.(*LngObject)
		if !ok {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		if x.Class != y.Class {
			return false, nil
		}
		k := pair{x, y}
		if visited[k] {
			return true, nil
		}
		visited[k] = true
		xn, yn := x.FieldNames(), y.FieldNames()
		if len(xn) != len(yn) {
			return false, nil
		}
		for i, name := range xn {
			if yn[i] != name {
				return false, nil
			}
			xv, _ := x.Ctx.ownValue(name)
			yv, _ := y.Ctx.ownValue(name)
			eq, err := equalValues(ctx, xv, yv, visited)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	}
	return identical(a, b), nil
}

// identical compares by identity for pointers and by value for other
// comparable host values.
func identical(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
