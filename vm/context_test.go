package vm

import (
	"testing"
)

func TestFreezeBlocksWritesAtAnyDepth(t *testing.T) {
	vm := NewVM()
	ctx := vm.NewContext()
	if err := ctx.Local("x", int64(1)); err != nil {
		t.Fatalf("Local: %v", err)
	}
	if err := ctx.Freeze("x"); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	inner := ctx.Wrap().Wrap()
	expectIs(t, inner.Local("x", int64(2)), ErrFrozen)
	expectIs(t, inner.Let("x", int64(2)), ErrFrozen)
	expectIs(t, inner.Global("x", int64(2), true), ErrFrozen)
	expectIs(t, ctx.Local("x", int64(2)), ErrFrozen)
	expectIs(t, ctx.Freeze("x"), ErrFrozen)

	v, err := inner.Get("x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != int64(1) {
		t.Errorf("x = %v, want 1", v)
	}
}

func TestLet0BypassesFreeze(t *testing.T) {
	ctx := NewVM().NewContext()
	ctx.Let0("x", int64(1))
	if err := ctx.Freeze("x"); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	ctx.Let0("x", int64(2))
	if v, _ := ctx.Get("x"); v != int64(2) {
		t.Errorf("x = %v, want 2", v)
	}
}

func TestGlobalAndLocalConflict(t *testing.T) {
	vm := NewVM()

	ctx := vm.NewContext()
	if err := ctx.Global("g", int64(1), true); err != nil {
		t.Fatalf("Global: %v", err)
	}
	expectIs(t, ctx.Local("g", int64(2)), ErrRedeclared)
	expectIs(t, ctx.Wrap().Local("g", int64(2)), ErrRedeclared)
	expectIs(t, ctx.Global("g", int64(3), true), ErrRedeclared)
	if v, _ := vm.LookupGlobal("g"); v != int64(1) {
		t.Errorf("heap g = %v, want 1", v)
	}

	other := vm.NewContext()
	if err := other.Local("h", int64(1)); err != nil {
		t.Fatalf("Local: %v", err)
	}
	expectIs(t, other.Global("h", int64(2), true), ErrRedeclared)
}

func TestLetWritesThroughGlobalDeclaration(t *testing.T) {
	vm := NewVM()
	ctx := vm.NewContext()
	if err := ctx.Global("counter", int64(0), true); err != nil {
		t.Fatalf("Global: %v", err)
	}
	inner := ctx.Wrap()
	if err := inner.Let("counter", int64(5)); err != nil {
		t.Fatalf("Let: %v", err)
	}
	if v, _ := vm.LookupGlobal("counter"); v != int64(5) {
		t.Errorf("heap counter = %v, want 5", v)
	}
	if names := inner.LocalNames(); len(names) != 0 {
		t.Errorf("inner frame bound %v, want nothing", names)
	}
	if _, ok := ctx.GetLocal("counter"); ok {
		t.Error("GetLocal found a heap binding")
	}
}

func TestLetUpdatesNearestBinding(t *testing.T) {
	ctx := NewVM().NewContext()
	if err := ctx.Local("a", int64(1)); err != nil {
		t.Fatal(err)
	}
	inner := ctx.Wrap()
	if err := inner.Let("a", int64(2)); err != nil {
		t.Fatalf("Let a: %v", err)
	}
	if v, _ := ctx.GetLocal("a"); v != int64(2) {
		t.Errorf("outer a = %v, want 2", v)
	}
	if err := inner.Let("b", int64(3)); err != nil {
		t.Fatalf("Let b: %v", err)
	}
	if ctx.Contains("b") {
		t.Error("b leaked into the outer frame")
	}
	if v, _ := inner.GetLocal("b"); v != int64(3) {
		t.Errorf("inner b = %v, want 3", v)
	}
}

func TestOpenFrameSeesOnlyHeap(t *testing.T) {
	vm := NewVM()
	ctx := vm.NewContext()
	if err := ctx.Local("a", int64(1)); err != nil {
		t.Fatal(err)
	}

	open := ctx.Open()
	if open.Contains("a") {
		t.Error("open frame sees a local of its creator")
	}
	if !open.Contains("print") {
		t.Error("open frame does not see the heap")
	}
	_, err := open.Get("a")
	expectIs(t, err, ErrUndefined)

	if v, err := ctx.Wrap().Get("a"); err != nil || v != int64(1) {
		t.Errorf("wrapped Get(a) = %v, %v; want 1", v, err)
	}
}

func TestVisibleHidesShadowedAndGlobalNames(t *testing.T) {
	ctx := NewVM().NewContext()
	ctx.Let0("a", int64(1))
	ctx.Let0("b", int64(2))
	inner := ctx.Wrap()
	inner.Let0("a", int64(10))
	if err := inner.Global("b", nil, false); err != nil {
		t.Fatal(err)
	}

	vis := inner.Visible()
	if vis["a"] != int64(10) {
		t.Errorf("visible a = %v, want 10", vis["a"])
	}
	if _, ok := vis["b"]; ok {
		t.Error("a name declared global is reported as visible local")
	}
}

func TestStepLimitStopsInfiniteLoop(t *testing.T) {
	vm := NewVM(WithStepLimit(100))
	err := runErr(t, vm, loopForever())
	expectIs(t, err, ErrStepLimit)
	if code := ExitCode(err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestStepCounterSharedAcrossFrames(t *testing.T) {
	vm := NewVM(WithStepLimit(1000))
	ctx := vm.NewContext()
	if _, err := vm.RunIn(ctx.Wrap().Wrap(), blk(num(1), num(2))); err != nil {
		t.Fatal(err)
	}
	if n := ctx.Steps().Count(); n != 3 {
		t.Errorf("steps = %d, want 3", n)
	}
}
