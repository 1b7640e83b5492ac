package vm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/lng/vm/dist"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Value <-> plain tree conversion shared by the CBOR and YAML codecs
// ---------------------------------------------------------------------------

// ToTree converts a value into nil, bool, int64, float64, string, []any
// or map[string]any. Class-less objects and instances become maps of
// their fields. Cycles and non-data values are errors.
func ToTree(v Value) (any, error) {
	return toTree(v, make(map[any]bool))
}

func toTree(v Value, visiting map[any]bool) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x, nil
	case *List:
		if visiting[x] {
			return nil, NewFault("cannot encode a cyclic list")
		}
		visiting[x] = true
		defer delete(visiting, x)
		items := x.Items()
		out := make([]any, len(items))
		for i, item := range items {
			t, err := toTree(item, visiting)
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil
	case *LngObject:
		if visiting[x] {
			return nil, NewFault("cannot encode a cyclic object")
		}
		visiting[x] = true
		defer delete(visiting, x)
		out := make(map[string]any)
		for _, name := range x.FieldNames() {
			f, _ := x.Ctx.ownValue(name)
			if isCallable(f) {
				continue
			}
			t, err := toTree(f, visiting)
			if err != nil {
				return nil, err
			}
			out[name] = t
		}
		return out, nil
	}
	return nil, newFault(RuntimeFault, ErrTypeMismatch, "cannot encode %s", TypeName(v))
}

// FromTree converts a decoded tree back into script values. Maps become
// class-less objects.
func FromTree(ctx *Context, tree any) (Value, error) {
	switch x := tree.(type) {
	case nil, bool, int64, float64, string:
		return x, nil
	case int:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return float64(x), nil
		}
		return int64(x), nil
	case []any:
		out := NewList()
		for _, item := range x {
			v, err := FromTree(ctx, item)
			if err != nil {
				return nil, err
			}
			out.Append(v)
		}
		return out, nil
	case map[string]any:
		obj := NewObject(ctx)
		for _, k := range sortedKeys(x) {
			v, err := FromTree(ctx, x[k])
			if err != nil {
				return nil, err
			}
			obj.Ctx.Let0(k, v)
		}
		return obj, nil
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, item := range x {
			m[fmt.Sprint(k)] = item
		}
		return FromTree(ctx, m)
	}
	return FromGo(tree), nil
}

// ---------------------------------------------------------------------------
// Codec builtins
// ---------------------------------------------------------------------------

func (vm *VM) registerCodecPrimitives() {
	vm.builtin("cbor_encode", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("cbor_encode", args, 1, 1)
		if err != nil {
			return nil, err
		}
		tree, err := ToTree(vals[0])
		if err != nil {
			return nil, err
		}
		data, err := dist.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("cbor_encode: %w", err)
		}
		return string(data), nil
	})

	vm.builtin("cbor_decode", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("cbor_decode", args, 1, 1)
		if err != nil {
			return nil, err
		}
		s, err := stringArg("cbor_decode", vals[0])
		if err != nil {
			return nil, err
		}
		tree, err := dist.Unmarshal([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("cbor_decode: %w", err)
		}
		return FromTree(ctx, tree)
	})

	vm.builtin("digest", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("digest", args, 1, 1)
		if err != nil {
			return nil, err
		}
		tree, err := ToTree(vals[0])
		if err != nil {
			return nil, err
		}
		sum, err := dist.Digest(tree)
		if err != nil {
			return nil, fmt.Errorf("digest: %w", err)
		}
		return hex.EncodeToString(sum[:]), nil
	})

	vm.builtin("yaml_encode", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("yaml_encode", args, 1, 1)
		if err != nil {
			return nil, err
		}
		tree, err := ToTree(vals[0])
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return nil, fmt.Errorf("yaml_encode: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("yaml_encode: encoder close: %w", err)
		}
		return buf.String(), nil
	})

	vm.builtin("yaml_decode", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("yaml_decode", args, 1, 1)
		if err != nil {
			return nil, err
		}
		s, err := stringArg("yaml_decode", vals[0])
		if err != nil {
			return nil, err
		}
		var tree any
		if err := yaml.Unmarshal([]byte(s), &tree); err != nil {
			return nil, fmt.Errorf("yaml_decode: %w", err)
		}
		return FromTree(ctx, tree)
	})
}

// sortedKeys returns the keys of m in order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
