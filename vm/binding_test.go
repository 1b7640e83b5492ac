package vm

import (
	"testing"
)

// bindTest binds args to pl in a fresh callee frame and returns it.
func bindTest(t *testing.T, pl *ParameterList, args []ArgValue) (*Context, error) {
	t.Helper()
	caller := NewVM().NewContext()
	callee := caller.Wrap()
	return callee, pl.Bind(caller, callee, args, false)
}

func bound(t *testing.T, ctx *Context, name string) Value {
	t.Helper()
	v, ok := ctx.GetLocal(name)
	if !ok {
		t.Fatalf("%s is not bound", name)
	}
	return v
}

func TestBindRestCollectsOverflow(t *testing.T) {
	pl := MustParams(Positional("a"), Rest("rest"))
	callee, err := bindTest(t, pl, Args(int64(1), int64(2), int64(3), int64(4), int64(5)))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if a := bound(t, callee, "a"); a != int64(1) {
		t.Errorf("a = %v, want 1", a)
	}
	rest := items(t, bound(t, callee, "rest"))
	if len(rest) != 4 {
		t.Fatalf("rest has %d items, want 4", len(rest))
	}
	for i, v := range rest {
		if v != int64(i+2) {
			t.Errorf("rest[%d] = %v, want %d", i, v, i+2)
		}
	}
}

func TestBindRestEmptyWhenNoOverflow(t *testing.T) {
	pl := MustParams(Positional("a"), Rest("rest"))
	callee, err := bindTest(t, pl, Args(int64(1)))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if rest := items(t, bound(t, callee, "rest")); len(rest) != 0 {
		t.Errorf("rest = %v, want empty", rest)
	}
}

func TestBindNamedArgumentsCommute(t *testing.T) {
	pl := MustParams(Positional("a"), Positional("b"), Positional("c"))
	orders := [][]ArgValue{
		{{Name: "a", Value: int64(1)}, {Name: "b", Value: int64(2)}, {Name: "c", Value: int64(3)}},
		{{Name: "c", Value: int64(3)}, {Name: "a", Value: int64(1)}, {Name: "b", Value: int64(2)}},
		{{Value: int64(1)}, {Name: "c", Value: int64(3)}, {Name: "b", Value: int64(2)}},
	}
	for i, args := range orders {
		callee, err := bindTest(t, pl, args)
		if err != nil {
			t.Fatalf("order %d: Bind: %v", i, err)
		}
		for j, name := range []string{"a", "b", "c"} {
			if v := bound(t, callee, name); v != int64(j+1) {
				t.Errorf("order %d: %s = %v, want %d", i, name, v, j+1)
			}
		}
	}
}

func TestBindDefaultsEvaluateInCaller(t *testing.T) {
	vm := NewVM()
	caller := vm.NewContext()
	caller.Let0("x", int64(10))

	def := vm.NewContext()
	def.Let0("x", int64(99))
	callee := caller.WrapOver(def)

	pl := MustParams(ParamSpec{Param: Param{Name: "p", Default: id("x")}})
	if err := pl.Bind(caller, callee, nil, false); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if p := bound(t, callee, "p"); p != int64(10) {
		t.Errorf("p = %v, want the caller's x (10)", p)
	}
}

func TestBindTypeChecks(t *testing.T) {
	vm := NewVM()
	ctx := vm.NewContext()
	point := NewClass(ctx, "Point")
	vm.Runtime().RegisterClass(point)
	pt, err := point.New(ctx, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name  string
		types []string
		value Value
		ok    bool
	}{
		{"int accepts int", []string{"int"}, int64(1), true},
		{"int rejects string", []string{"int"}, "s", false},
		{"number accepts float", []string{"number"}, 1.5, true},
		{"union", []string{"int", "string"}, "s", true},
		{"class name", []string{"Point"}, pt, true},
		{"class rejects int", []string{"Point"}, int64(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := MustParams(Positional("v", tt.types...))
			callee := ctx.Wrap()
			err := pl.Bind(ctx, callee, Args(tt.value), false)
			if tt.ok && err != nil {
				t.Errorf("Bind: %v", err)
			}
			if !tt.ok {
				expectIs(t, err, ErrTypeMismatch)
			}
		})
	}
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		name string
		pl   *ParameterList
		args []ArgValue
		want error
	}{
		{"too many", MustParams(Positional("a")), Args(int64(1), int64(2)), ErrTooManyArgs},
		{"missing", MustParams(Positional("a")), nil, ErrMissingArg},
		{"already bound", MustParams(Positional("a")),
			[]ArgValue{{Value: int64(1)}, {Name: "a", Value: int64(2)}}, ErrAlreadyBound},
		{"unknown name", MustParams(Positional("a")),
			[]ArgValue{{Value: int64(1)}, {Name: "zz", Value: int64(2)}}, ErrTooManyArgs},
		{"positional-only by name",
			MustParams(ParamSpec{Param: Param{Name: "a", Kind: PositionalOnly}}),
			[]ArgValue{{Name: "a", Value: int64(1)}}, ErrTooManyArgs},
		{"named-only skipped by position",
			MustParams(ParamSpec{Param: Param{Name: "a", Kind: NamedOnly}}),
			Args(int64(1)), ErrTooManyArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bindTest(t, tt.pl, tt.args)
			expectIs(t, err, tt.want)
		})
	}
}

func TestBindMetaCollectsExtraNames(t *testing.T) {
	pl := MustParams(
		ParamSpec{Param: Param{Name: "a", Kind: PositionalOnly, Default: num(0)}},
		Meta("kw"),
	)
	callee, err := bindTest(t, pl, []ArgValue{{Name: "a", Value: int64(5)}, {Name: "extra", Value: "x"}})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if a := bound(t, callee, "a"); a != int64(0) {
		t.Errorf("a = %v, want default 0", a)
	}
	kw := bound(t, callee, "kw")
	if v := fieldOf(t, kw, "a"); v != int64(5) {
		t.Errorf("kw.a = %v, want 5", v)
	}
	if v := fieldOf(t, kw, "extra"); v != "x" {
		t.Errorf("kw.extra = %v, want x", v)
	}
}

func TestBindClosureParameter(t *testing.T) {
	pl := MustParams(Positional("a"), ClosureParam("blk"))
	fn := &Builtin{Name: "f"}

	callee, err := bindTest(t, pl, Args(int64(1), fn))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if v := bound(t, callee, "blk"); v != fn {
		t.Errorf("blk = %v, want the trailing callable", v)
	}

	callee, err = bindTest(t, pl, Args(int64(1)))
	if err != nil {
		t.Fatalf("Bind without closure: %v", err)
	}
	if v := bound(t, callee, "blk"); v != nil {
		t.Errorf("blk = %v, want none", v)
	}
}

func TestBindLazyWrapsDefaults(t *testing.T) {
	vm := NewVM()
	caller := vm.NewContext()
	callee := caller.Wrap()
	pl := MustParams(ParamSpec{Param: Param{Name: "e", Default: bin(OpAdd, num(1), num(2))}})
	if err := pl.Bind(caller, callee, nil, true); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	e, ok := bound(t, callee, "e").(*Expr)
	if !ok {
		t.Fatalf("e is %T, want *Expr", bound(t, callee, "e"))
	}
	v, err := e.Eval()
	if err != nil || v != int64(3) {
		t.Errorf("e.Eval() = %v, %v; want 3", v, err)
	}
}

func TestNewParamsValidation(t *testing.T) {
	if _, err := NewParams(Positional("a"), Positional("a")); err == nil {
		t.Error("duplicate parameter accepted")
	}
	if _, err := NewParams(Rest("r"), Positional("a")); err == nil {
		t.Error("parameter after rest accepted")
	}
	if _, err := NewParams(Rest("r"), Rest("s")); err == nil {
		t.Error("two rest parameters accepted")
	}
	pl := MustParams(Positional("a", "int"), Rest("r"), Meta("m"), ClosureParam("c"))
	if got, want := pl.String(), "(a: int, ...r, **m, &c)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCallThroughEngineBindsArguments(t *testing.T) {
	vm := NewVM()
	// fn f(a, ...rest) { return [a, len(rest)] }
	v := run(t, vm,
		fnDef("f", MustParams(Positional("a"), Rest("rest")),
			ret(list(id("a"), call(id("len"), id("rest"))))),
		call(id("f"), num(1), num(2), num(3)),
	)
	got := items(t, v)
	if got[0] != int64(1) || got[1] != int64(2) {
		t.Errorf("f(1, 2, 3) = %s, want [1, 2]", Stringify(v))
	}
}

func TestReturnTypeIsChecked(t *testing.T) {
	vm := NewVM()
	f := &FuncDef{Name: "f", Params: MustParams(), ReturnTypes: []string{"int"}, Body: blk(ret(lit("nope")))}
	err := runErr(t, vm, f, call(id("f")))
	expectIs(t, err, ErrTypeMismatch)
}
