package vm

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Value: the dynamic runtime value domain
// ---------------------------------------------------------------------------

// Value is any script-visible value.
//
// Primitives use plain Go types: nil is none, bool, int64, float64 and
// string. Composites are pointers and therefore reference-shared: *List,
// *LngObject, *LngClass, *Closure, *Macro, *Builtin, *BuiltinMacro,
// *Channel, *Yielder, *Expr and *Marker. Anything else is a native host
// object whose script methods come from the method provider registry.
type Value = any

// Type tags used by parameter type checks and native method providers.
const (
	TagNone     = "none"
	TagBool     = "bool"
	TagInt      = "int"
	TagFloat    = "float"
	TagNumber   = "number"
	TagString   = "string"
	TagList     = "list"
	TagObject   = "object"
	TagClass    = "class"
	TagClosure  = "closure"
	TagMacro    = "macro"
	TagBuiltin  = "builtin"
	TagCallable = "callable"
	TagChannel  = "channel"
	TagYielder  = "yielder"
	TagExpr     = "expr"
	TagMarker   = "marker"
	TagNative   = "native"
	TagAny      = "any"
)

// Tagged is implemented by host objects that want their own provider tag.
// ParentTags lists the fallback chain walked when a method is not found
// under TypeTag.
type Tagged interface {
	TypeTag() string
	ParentTags() []string
}

// tagChain returns the provider lookup chain for v, most specific first.
func tagChain(v Value) []string {
	switch x := v.(type) {
	case nil:
		return []string{TagNone, TagAny}
	case bool:
		return []string{TagBool, TagAny}
	case int64:
		return []string{TagInt, TagNumber, TagAny}
	case float64:
		return []string{TagFloat, TagNumber, TagAny}
	case string:
		return []string{TagString, TagAny}
	case *List:
		return []string{TagList, TagAny}
	case *LngObject:
		return []string{TagObject, TagAny}
	case *LngClass:
		return []string{TagClass, TagCallable, TagAny}
	case *Closure:
		return []string{TagClosure, TagCallable, TagAny}
	case *Macro:
		return []string{TagMacro, TagCallable, TagAny}
	case *Builtin, *BuiltinMacro:
		return []string{TagBuiltin, TagCallable, TagAny}
	case *Channel:
		return []string{TagChannel, TagAny}
	case *Yielder:
		return []string{TagYielder, TagAny}
	case *Expr:
		return []string{TagExpr, TagCallable, TagAny}
	case *Marker:
		return []string{TagMarker, TagAny}
	case Tagged:
		chain := []string{x.TypeTag()}
		chain = append(chain, x.ParentTags()...)
		return append(chain, TagNative, TagAny)
	default:
		return []string{TagNative, TagAny}
	}
}

// TypeTag returns the most specific type tag of v.
func TypeTag(v Value) string {
	return tagChain(v)[0]
}

// TypeName is the name the script sees for v's type. Instances report
// their class name.
func TypeName(v Value) string {
	if o, ok := v.(*LngObject); ok && o.Class != nil {
		return o.Class.Name
	}
	return TypeTag(v)
}

// Truthy implements the language's boolean rules: none, false, zero and
// the empty string are false.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// FromGo normalizes host values into the value domain. Integer and float
// widths collapse to int64/float64 and byte slices become strings.
func FromGo(v any) Value {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	default:
		return v
	}
}

// toInt converts numeric values to int64.
func toInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// toFloat converts numeric values to float64.
func toFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// List is the ordered, mutable, reference-shared sequence type. Lists may
// be reachable from several tasks through snapshots, so access is locked.
type List struct {
	mu    sync.RWMutex
	items []Value
}

// NewList creates a list holding the given items.
func NewList(items ...Value) *List {
	l := &List{items: make([]Value, len(items))}
	copy(l.items, items)
	return l
}

// Len returns the number of items.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Get returns the item at index i. Negative indexes count from the end.
func (l *List) Get(i int64) (Value, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := normalizeIndex(i, len(l.items))
	if !ok {
		return nil, false
	}
	return l.items[idx], true
}

// Set replaces the item at index i.
func (l *List) Set(i int64, v Value) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := normalizeIndex(i, len(l.items))
	if !ok {
		return false
	}
	l.items[idx] = v
	return true
}

// Append adds items to the end.
func (l *List) Append(vs ...Value) {
	l.mu.Lock()
	l.items = append(l.items, vs...)
	l.mu.Unlock()
}

// Pop removes and returns the last item.
func (l *List) Pop() (Value, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return nil, false
	}
	v := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return v, true
}

// Items returns a copy of the current contents.
func (l *List) Items() []Value {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Value, len(l.items))
	copy(out, l.items)
	return out
}

func normalizeIndex(i int64, n int) (int, bool) {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, false
	}
	return int(i), true
}

// ---------------------------------------------------------------------------
// Printing
// ---------------------------------------------------------------------------

// Stringify renders v the way print shows it. Strings print raw at the top
// level and quoted inside containers. Cyclic graphs print "..." at the
// point of recursion.
func Stringify(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v, false, make(map[any]bool))
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value, quote bool, visiting map[any]bool) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("none")
	case bool:
		sb.WriteString(strconv.FormatBool(x))
	case int64:
		sb.WriteString(strconv.FormatInt(x, 10))
	case float64:
		sb.WriteString(formatFloat(x))
	case string:
		if quote {
			sb.WriteString(strconv.Quote(x))
		} else {
			sb.WriteString(x)
		}
	case *List:
		if visiting[x] {
			sb.WriteString("[...]")
			return
		}
		visiting[x] = true
		defer delete(visiting, x)
		sb.WriteByte('[')
		for i, item := range x.Items() {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, item, true, visiting)
		}
		sb.WriteByte(']')
	case *LngObject:
		if visiting[x] {
			sb.WriteString("{...}")
			return
		}
		visiting[x] = true
		defer delete(visiting, x)
		if x.Class != nil {
			sb.WriteString(x.Class.Name)
		}
		sb.WriteByte('{')
		for i, name := range x.FieldNames() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			f, _ := x.Ctx.GetLocal(name)
			writeValue(sb, f, true, visiting)
		}
		sb.WriteByte('}')
	case *LngClass:
		fmt.Fprintf(sb, "<class %s>", x.Name)
	case *Closure:
		fmt.Fprintf(sb, "<closure %s>", displayName(x.Name))
	case *Macro:
		fmt.Fprintf(sb, "<macro %s>", displayName(x.Name))
	case *Builtin:
		fmt.Fprintf(sb, "<builtin %s>", x.Name)
	case *BuiltinMacro:
		fmt.Fprintf(sb, "<builtin %s>", x.Name)
	case *Channel:
		fmt.Fprintf(sb, "<channel %d/%d>", x.Len(), x.Cap())
	case *Yielder:
		sb.WriteString("<yielder>")
	case *Expr:
		sb.WriteString("<expr>")
	case *Marker:
		sb.WriteString(x.name)
	case fmt.Stringer:
		sb.WriteString(x.String())
	default:
		fmt.Fprintf(sb, "<native %s>", reflect.TypeOf(v))
	}
}

func displayName(name string) string {
	if name == "" {
		return "anonymous"
	}
	return name
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
