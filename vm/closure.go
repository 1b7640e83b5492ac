package vm

// ---------------------------------------------------------------------------
// Callables
// ---------------------------------------------------------------------------

// Closure is a function value. Ctx is the Context it was defined in, or
// nil for a closure that sees only the heap.
type Closure struct {
	Name        string
	Params      *ParameterList
	Ctx         *Context
	ReturnTypes []string
	Body        Command
}

// Macro is like Closure but receives its arguments unevaluated, as *Expr
// values bound to the caller's Context.
type Macro struct {
	Name        string
	Params      *ParameterList
	Ctx         *Context
	ReturnTypes []string
	Body        Command
}

// BuiltinFunc implements a builtin callable. For a BuiltinMacro every
// argument value is an *Expr.
type BuiltinFunc func(ctx *Context, args []ArgValue) (Value, error)

// Builtin is a host function with evaluated arguments.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

// BuiltinMacro is a host function with unevaluated arguments.
type BuiltinMacro struct {
	Name string
	Fn   BuiltinFunc
}

// Expr is an unevaluated argument expression together with the Context
// it must be evaluated in.
type Expr struct {
	Cmd Command
	Ctx *Context
}

// Eval evaluates the expression in its Context. A break or return raised
// inside it is returned as a *Signal value.
func (e *Expr) Eval() (Value, error) {
	if e.Cmd == nil {
		return nil, nil
	}
	return Exec(e.Ctx, e.Cmd)
}

// EvalIn evaluates the expression in another Context.
func (e *Expr) EvalIn(ctx *Context) (Value, error) {
	if e.Cmd == nil {
		return nil, nil
	}
	return Exec(ctx, e.Cmd)
}

// Arg is one argument at a call site. Name is empty for positional
// arguments.
type Arg struct {
	Name  string
	Value Command
}

// ArgValue is an argument after the call site has been processed.
type ArgValue struct {
	Name  string
	Value Value
}

// Args wraps plain values as positional arguments.
func Args(vs ...Value) []ArgValue {
	out := make([]ArgValue, len(vs))
	for i, v := range vs {
		out[i] = ArgValue{Value: v}
	}
	return out
}

func isCallable(v Value) bool {
	switch v.(type) {
	case *Closure, *Macro, *Builtin, *BuiltinMacro, *LngClass, *Expr:
		return true
	}
	return false
}

// takesExprs reports whether fn wants its arguments unevaluated.
func takesExprs(fn Value) bool {
	switch f := fn.(type) {
	case *Macro, *BuiltinMacro:
		return true
	case *LngClass:
		_, _, lazy := f.initializer()
		return lazy
	}
	return false
}

// callValue evaluates a call site's arguments the way fn expects and
// invokes it. The result may be a *Signal raised while evaluating an
// argument.
func callValue(ctx *Context, fn Value, args []Arg) (Value, error) {
	vals := make([]ArgValue, len(args))
	if takesExprs(fn) {
		for i, a := range args {
			vals[i] = ArgValue{Name: a.Name, Value: &Expr{Cmd: a.Value, Ctx: ctx}}
		}
		return Invoke(ctx, fn, vals)
	}
	for i, a := range args {
		v, sig, err := evalValue(ctx, a.Value)
		if sig != nil || err != nil {
			return forward(sig, err)
		}
		vals[i] = ArgValue{Name: a.Name, Value: v}
	}
	return Invoke(ctx, fn, vals)
}

// Invoke calls fn with prepared arguments. Macros given plain values get
// them wrapped as constant expressions.
func Invoke(ctx *Context, fn Value, args []ArgValue) (Value, error) {
	switch f := fn.(type) {
	case *Closure:
		return f.call(ctx, args)
	case *Macro:
		return f.call(ctx, asExprs(ctx, args))
	case *Builtin:
		return f.Fn(ctx, args)
	case *BuiltinMacro:
		return f.Fn(ctx, asExprs(ctx, args))
	case *LngClass:
		if takesExprs(f) {
			args = asExprs(ctx, args)
		}
		return f.New(ctx, args)
	case *Expr:
		if len(args) > 0 {
			return nil, newFault(BindingFault, ErrTooManyArgs, "an expression takes no arguments")
		}
		return f.Eval()
	}
	return nil, newFault(ObjectFault, ErrNotCallable, "%s is not callable (called with %s)", TypeName(fn), describeArgs(args))
}

// Call invokes fn with positional values and resolves any signal the way
// a callable boundary does. It is the entry point for host code.
func Call(ctx *Context, fn Value, args ...Value) (Value, error) {
	v, err := Invoke(ctx, fn, Args(args...))
	if err != nil {
		return nil, err
	}
	if sig, ok := v.(*Signal); ok {
		if sig.Kind == BreakSignal {
			return nil, newFault(RuntimeFault, ErrBreakOutsideLoop, "cannot break from a function")
		}
		return sig.Value, nil
	}
	return v, nil
}

func asExprs(ctx *Context, args []ArgValue) []ArgValue {
	out := make([]ArgValue, len(args))
	for i, a := range args {
		if _, ok := a.Value.(*Expr); ok {
			out[i] = a
			continue
		}
		out[i] = ArgValue{Name: a.Name, Value: &Expr{Cmd: &Literal{Value: a.Value}, Ctx: ctx}}
	}
	return out
}

func (f *Closure) call(caller *Context, args []ArgValue) (Value, error) {
	callee := caller.WrapOver(f.Ctx)
	if err := f.Params.Bind(caller, callee, args, false); err != nil {
		return nil, err
	}
	v, err := runBody(callee, f.Body)
	if err != nil {
		return nil, err
	}
	if err := checkReturnType(caller, f.Name, f.ReturnTypes, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (m *Macro) call(caller *Context, args []ArgValue) (Value, error) {
	callee := caller.WrapOver(m.Ctx)
	if err := m.Params.Bind(caller, callee, args, true); err != nil {
		return nil, err
	}
	v, err := runBody(callee, m.Body)
	if err != nil {
		return nil, err
	}
	if err := checkReturnType(caller, m.Name, m.ReturnTypes, v); err != nil {
		return nil, err
	}
	return v, nil
}

// runBody executes a callable body: a return signal ends it with the
// carried value, a break signal is a fault.
func runBody(ctx *Context, body Command) (Value, error) {
	return Eval(ctx, body)
}
