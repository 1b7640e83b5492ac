package vm

import (
	"testing"
	"time"
)

func TestChannelFIFOThenClose(t *testing.T) {
	ch := NewChannel(3)
	for i := int64(1); i <= 3; i++ {
		if err := ch.Send(Success(i)); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}
	ch.Close()
	for i := int64(1); i <= 3; i++ {
		m, ok := ch.Receive()
		if !ok || m.Value != i {
			t.Fatalf("Receive = %v, %v; want %d", m.Value, ok, i)
		}
	}
	if _, ok := ch.Receive(); ok {
		t.Error("Receive on a closed, drained channel reported a message")
	}
	expectIs(t, ch.Send(Success(int64(4))), ErrChannelClosed)
	ch.Close()
}

func TestChannelSendBlocksWhileFull(t *testing.T) {
	ch := NewChannel(1)
	if err := ch.Send(Success(int64(1))); err != nil {
		t.Fatal(err)
	}
	sent := make(chan error, 1)
	go func() { sent <- ch.Send(Success(int64(2))) }()

	select {
	case <-sent:
		t.Fatal("Send did not block on a full channel")
	case <-time.After(20 * time.Millisecond):
	}

	if m, _ := ch.Receive(); m.Value != int64(1) {
		t.Errorf("first value = %v, want 1", m.Value)
	}
	select {
	case err := <-sent:
		if err != nil {
			t.Errorf("blocked Send: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send still blocked after a receive")
	}
	if m, _ := ch.Receive(); m.Value != int64(2) {
		t.Errorf("second value = %v, want 2", m.Value)
	}
}

func TestChannelCloseWakesBlockedSender(t *testing.T) {
	ch := NewChannel(1)
	ch.TrySend(Success(int64(1)))
	sent := make(chan error, 1)
	go func() { sent <- ch.Send(Success(int64(2))) }()
	time.Sleep(10 * time.Millisecond)
	ch.Close()
	select {
	case err := <-sent:
		expectIs(t, err, ErrChannelClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked sender was not woken by Close")
	}
}

func TestChannelNonBlockingOperations(t *testing.T) {
	ch := NewChannel(1)
	if _, ok := ch.TryReceive(); ok {
		t.Error("TryReceive on an empty channel reported a message")
	}
	if !ch.TrySend(Success("a")) {
		t.Error("TrySend on an empty channel failed")
	}
	if ch.TrySend(Success("b")) {
		t.Error("TrySend on a full channel succeeded")
	}
	if ch.TrySendTimeout(Success("b"), 10*time.Millisecond) {
		t.Error("TrySendTimeout on a full channel succeeded")
	}
	if _, ok := ch.ReceiveTimeout(10 * time.Millisecond); !ok {
		t.Error("ReceiveTimeout missed a queued message")
	}
	if _, ok := ch.ReceiveTimeout(10 * time.Millisecond); ok {
		t.Error("ReceiveTimeout on an empty channel reported a message")
	}
	ch.Close()
	if _, ok := ch.TryReceive(); ok {
		t.Error("TryReceive on a closed channel reported a message")
	}
}

func TestUnboundedChannel(t *testing.T) {
	ch := NewChannel(0)
	for i := 0; i < 1000; i++ {
		if !ch.TrySend(Success(int64(i))) {
			t.Fatalf("TrySend %d failed on an unbounded channel", i)
		}
	}
	if ch.Len() != 1000 || ch.Cap() != 0 {
		t.Errorf("len/cap = %d/%d, want 1000/0", ch.Len(), ch.Cap())
	}
}

func TestSelect(t *testing.T) {
	a, b := NewChannel(0), NewChannel(0)
	b.TrySend(Success("from b"))
	idx, m := Select([]*Channel{a, b}, -1)
	if idx != 1 || m.Value != "from b" {
		t.Errorf("Select = %d, %v; want 1, from b", idx, m.Value)
	}

	if idx, _ := Select([]*Channel{a, b}, 0); idx != -1 {
		t.Errorf("polling Select on empty channels = %d, want -1", idx)
	}
	if idx, _ := Select([]*Channel{a, b}, 10*time.Millisecond); idx != -1 {
		t.Errorf("timed Select on empty channels = %d, want -1", idx)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		a.TrySend(Success("late"))
	}()
	if idx, m := Select([]*Channel{a, b}, time.Second); idx != 0 || m.Value != "late" {
		t.Errorf("Select = %d, %v; want 0, late", idx, m.Value)
	}

	a.Close()
	b.Close()
	done := make(chan int, 1)
	go func() {
		idx, _ := Select([]*Channel{a, b}, -1)
		done <- idx
	}()
	select {
	case idx := <-done:
		if idx != -1 {
			t.Errorf("Select on closed channels = %d, want -1", idx)
		}
	case <-time.After(time.Second):
		t.Fatal("Select blocked on closed, drained channels")
	}
}

func TestQueueBuiltins(t *testing.T) {
	v := run(t, NewVM(),
		local("q", call(id("que"), num(2))),
		mcall(id("q"), "send", num(5)),
		mcall(id("q"), "send", num(6)),
		list(
			mcall(id("q"), "try_send", num(7)),
			mcall(id("q"), "receive"),
			mcall(id("q"), "len"),
			mcall(id("q"), "cap"),
		),
	)
	if got := Stringify(v); got != "[false, 5, 1, 2]" {
		t.Errorf("got %s", got)
	}
}

func TestAsyncSnapshotIsolation(t *testing.T) {
	// x = 1; fn bump(x) { x = x + 1; return x }
	// h = async { bump(x) }; x = 5; [await(h), x]
	v := run(t, NewVM(),
		local("x", num(1)),
		fnDef("bump", MustParams(Positional("x")),
			let("x", bin(OpAdd, id("x"), num(1))),
			ret(id("x"))),
		local("h", &AsyncCmd{Body: call(id("bump"), id("x"))}),
		let("x", num(5)),
		list(call(id("await"), id("h")), id("x")),
	)
	if got := Stringify(v); got != "[2, 5]" {
		t.Errorf("got %s, want [2, 5]", got)
	}
}

func TestAsyncSeesValueAtSpawnTime(t *testing.T) {
	v := run(t, NewVM(),
		local("x", num(1)),
		local("h", &AsyncCmd{Body: id("x")}),
		let("x", num(2)),
		call(id("await"), id("h")),
	)
	if v != int64(1) {
		t.Errorf("task saw x = %v, want 1", v)
	}
}

func TestAsyncWriteToCapturedNameFaults(t *testing.T) {
	err := runErr(t, NewVM(),
		local("x", num(1)),
		call(id("await"), &AsyncCmd{Body: let("x", num(5))}),
	)
	expectIs(t, err, ErrFrozen)
}

func TestAsyncSharesHeap(t *testing.T) {
	vm := NewVM()
	run(t, vm,
		&Global{Name: "shared", Value: num(0)},
		call(id("await"), &AsyncCmd{Body: blk(
			&Global{Name: "shared"},
			let("shared", num(9)),
		)}),
	)
	if v, _ := vm.LookupGlobal("shared"); v != int64(9) {
		t.Errorf("shared = %v, want 9", v)
	}
}

func TestGeneratorFaultAfterTwoValues(t *testing.T) {
	v := run(t, NewVM(), &Generator{Body: blk(
		&Yield{Value: num(1)},
		&Yield{Value: num(2)},
		&Raise{Value: lit("boom")},
	)})
	y, ok := v.(*Yielder)
	if !ok {
		t.Fatalf("generator evaluated to %s", TypeName(v))
	}
	for want := int64(1); want <= 2; want++ {
		got, err := y.Next()
		if err != nil || got != want {
			t.Fatalf("Next() = %v, %v; want %d", got, err, want)
		}
	}
	if _, err := y.Next(); err == nil || err.Error() != "boom" {
		t.Errorf("third Next() error = %v, want boom", err)
	}
	more, err := y.HasNext()
	if more || err != nil {
		t.Errorf("HasNext() after the fault = %v, %v; want false, nil", more, err)
	}
	_, err = y.Next()
	expectIs(t, err, ErrChannelClosed)
}

func TestForEachOverGenerator(t *testing.T) {
	v := run(t, NewVM(),
		local("out", list()),
		&ForEach{
			Var: "v",
			Iter: &Generator{Body: &ForEach{Var: "i", Iter: num(4),
				Body: &Yield{Value: bin(OpMul, id("i"), id("i"))}}},
			Body: mcall(id("out"), "push", id("v")),
		},
		id("out"),
	)
	if got := Stringify(v); got != "[0, 1, 4, 9]" {
		t.Errorf("collected %s", got)
	}
}

func TestStreamBackpressure(t *testing.T) {
	v := run(t, NewVM(), &Stream{Capacity: num(1), Body: blk(
		&Yield{Value: num(1)},
		&Yield{Value: num(2)},
		&Yield{Value: num(3)},
	)})
	y := v.(*Yielder)

	time.Sleep(20 * time.Millisecond)
	if n := y.ch.Len(); n > 1 {
		t.Errorf("producer queued %d values past a capacity of 1", n)
	}
	if y.Future().IsDone() {
		t.Error("producer finished without a consumer")
	}

	// a value seen by HasNext still occupies its slot
	if more, err := y.HasNext(); !more || err != nil {
		t.Fatalf("HasNext() = %v, %v", more, err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := y.ch.Len(); n != 1 {
		t.Errorf("%d values unconsumed after HasNext, want 1", n)
	}

	for want := int64(1); want <= 3; want++ {
		got, err := y.Next()
		if err != nil || got != want {
			t.Fatalf("Next() = %v, %v; want %d", got, err, want)
		}
	}
	if more, _ := y.HasNext(); more {
		t.Error("stream has values after the producer finished")
	}
}

func TestStreamRejectsBadCapacity(t *testing.T) {
	err := runErr(t, NewVM(), &Stream{Capacity: num(0), Body: blk()})
	expectIs(t, err, ErrTypeMismatch)
}

func TestGeneratorNextMethod(t *testing.T) {
	v := run(t, NewVM(),
		local("g", &Generator{Body: &Yield{Value: num(1)}}),
		mcall(id("g"), "next"),
	)
	if v != int64(1) {
		t.Errorf("next() = %v, want 1", v)
	}
}

func TestSyncPrimitives(t *testing.T) {
	v := run(t, NewVM(),
		local("m", call(id("mutex"))),
		mcall(id("m"), "lock"),
		local("locked", mcall(id("m"), "try_lock")),
		mcall(id("m"), "unlock"),
		local("wg", call(id("wait_group"))),
		mcall(id("wg"), "add", num(2)),
		mcall(id("wg"), "done"),
		list(id("locked"), mcall(id("m"), "is_locked"), mcall(id("wg"), "count")),
	)
	if got := Stringify(v); got != "[false, false, 1]" {
		t.Errorf("got %s", got)
	}
}

func TestAsyncClosureCannotWriteSpawnerLocals(t *testing.T) {
	// x = 1; fn setx() { x = 99 }
	// r = try { await(async { setx() }) } catch e { e.kind }; [r, x]
	v := run(t, NewVM(),
		local("x", num(1)),
		fnDef("setx", MustParams(), let("x", num(99))),
		local("r", &Try{
			Body:    call(id("await"), &AsyncCmd{Body: call(id("setx"))}),
			Name:    "e",
			Handler: field(id("e"), "kind"),
		}),
		list(id("r"), id("x")),
	)
	if got := Stringify(v); got != `["scope", 1]` {
		t.Errorf("got %s, want [\"scope\", 1]", got)
	}
}

func TestAsyncClosureReadsSnapshot(t *testing.T) {
	// x = 1; fn getx() { return x }; h = async { getx() }; x = 2; await(h)
	v := run(t, NewVM(),
		local("x", num(1)),
		fnDef("getx", MustParams(), ret(id("x"))),
		local("h", &AsyncCmd{Body: call(id("getx"))}),
		let("x", num(2)),
		call(id("await"), id("h")),
	)
	if v != int64(1) {
		t.Errorf("task read x = %v, want 1", v)
	}
}

func TestNestedGeneratorYieldsToInnermost(t *testing.T) {
	inner := &Generator{Body: blk(&Yield{Value: num(10)}, &Yield{Value: num(20)})}
	outer := &Generator{Body: blk(
		&Yield{Value: num(1)},
		&ForEach{Var: "v", Iter: inner, Body: &Yield{Value: bin(OpAdd, id("v"), num(100))}},
		&Yield{Value: num(2)},
	)}
	v := run(t, NewVM(),
		local("out", list()),
		&ForEach{Var: "v", Iter: outer, Body: mcall(id("out"), "push", id("v"))},
		id("out"),
	)
	if got := Stringify(v); got != "[1, 110, 120, 2]" {
		t.Errorf("collected %s", got)
	}
}

func TestYielderStackTopIsInnermost(t *testing.T) {
	th := NewThreadContext()
	outer, inner := NewYielder(0), NewYielder(0)
	th.PushYielder(outer)
	th.PushYielder(inner)
	if th.TopYielder() != inner {
		t.Error("top of the yielder stack is not the innermost yielder")
	}
	th.PopYielder()
	if th.TopYielder() != outer {
		t.Error("popping did not restore the enclosing yielder")
	}
	th.PopYielder()
	if th.TopYielder() != nil {
		t.Error("empty yielder stack has a top")
	}
}

func TestTryReceiveRacingClose(t *testing.T) {
	const sent = 100
	vm := NewVM()
	ch := NewChannel(0)
	vm.SetGlobal("q", ch)
	go func() {
		for i := 1; i <= sent; i++ {
			ch.TrySend(Success(int64(i)))
		}
		ch.Close()
	}()

	// poll until a miss coincides with the close, then drain the rest
	done := make(chan Value, 1)
	go func() {
		v, err := vm.Run(blk(
			local("n", num(0)),
			loopForever(
				local("v", mcall(id("q"), "try_receive")),
				&If{
					Cond: bin(OpAnd, bin(OpEq, id("v"), lit(nil)), mcall(id("q"), "is_closed")),
					Then: &Break{},
				},
				&If{Cond: bin(OpNe, id("v"), lit(nil)), Then: let("n", bin(OpAdd, id("n"), num(1)))},
			),
			&ForEach{Var: "v", Iter: id("q"), Body: let("n", bin(OpAdd, id("n"), num(1)))},
			list(id("n"), mcall(id("q"), "try_receive")),
		))
		if err != nil {
			v = err.Error()
		}
		done <- v
	}()

	select {
	case v := <-done:
		if got := Stringify(v); got != "[100, none]" {
			t.Errorf("got %s, want [100, none]", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("polling a closing channel did not finish")
	}
}
