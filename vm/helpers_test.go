package vm

import (
	"errors"
	"testing"
)

// Command tree builders shared by the tests. There is no parser in this
// package, so programs are assembled by hand.

var testSrc = NewSource("test.lng", "first line\n  second line\n    third line\nfourth line")

func at(line, col int) Node {
	return Node{At: At(testSrc, line, col)}
}

func num(n int64) *Literal     { return &Literal{Value: n} }
func lit(v Value) *Literal     { return &Literal{Value: v} }
func id(name string) *Ident    { return &Ident{Name: name} }
func blk(cmds ...Command) *Block { return &Block{Body: cmds} }

func local(name string, v Command) *Local { return &Local{Name: name, Value: v} }
func let(name string, v Command) *Let     { return &Let{Name: name, Value: v} }
func ret(v Command) *Return               { return &Return{Value: v} }

func bin(op string, l, r Command) *Binary {
	return &Binary{Op: op, Left: l, Right: r}
}

func args(cmds ...Command) []Arg {
	out := make([]Arg, len(cmds))
	for i, c := range cmds {
		out[i] = Arg{Value: c}
	}
	return out
}

func named(name string, v Command) Arg {
	return Arg{Name: name, Value: v}
}

func call(fn Command, a ...Command) *CallCmd {
	return &CallCmd{Fn: fn, Args: args(a...)}
}

func mcall(recv Command, name string, a ...Command) *MethodCall {
	return &MethodCall{Recv: recv, Name: name, Args: args(a...)}
}

func field(target Command, name string) *FieldGet {
	return &FieldGet{Target: target, Name: name}
}

func list(items ...Command) *ListLit {
	return &ListLit{Items: items}
}

func fnDef(name string, params *ParameterList, body ...Command) *FuncDef {
	return &FuncDef{Name: name, Params: params, Body: blk(body...)}
}

func loopForever(body ...Command) *While {
	return &While{Cond: lit(true), Body: blk(body...)}
}

// run executes cmds as one top-level block and fails the test on error.
func run(t *testing.T, vm *VM, cmds ...Command) Value {
	t.Helper()
	v, err := vm.Run(blk(cmds...))
	if err != nil {
		t.Fatalf("run failed: %s", Describe(err))
	}
	return v
}

// runErr executes cmds and returns the error, failing if there is none.
func runErr(t *testing.T, vm *VM, cmds ...Command) error {
	t.Helper()
	v, err := vm.Run(blk(cmds...))
	if err == nil {
		t.Fatalf("expected a fault, got value %s", Stringify(v))
	}
	return err
}

func expectIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("error = %v, want %v", err, target)
	}
}

// items returns the contents of a list value.
func items(t *testing.T, v Value) []Value {
	t.Helper()
	l, ok := v.(*List)
	if !ok {
		t.Fatalf("expected list, got %s (%s)", TypeName(v), Stringify(v))
	}
	return l.Items()
}

func fieldOf(t *testing.T, v Value, name string) Value {
	t.Helper()
	obj, ok := v.(*LngObject)
	if !ok {
		t.Fatalf("expected object, got %s", TypeName(v))
	}
	f, ok := obj.Field(name)
	if !ok {
		t.Fatalf("object has no field %q", name)
	}
	return f
}
