package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Parameter lists
// ---------------------------------------------------------------------------

// ParamKind says how an ordinary parameter may be supplied.
type ParamKind int

const (
	PositionalOrNamed ParamKind = iota
	PositionalOnly
	NamedOnly
)

// Param is one ordinary parameter. Types, when non-empty, are the type
// names a bound value must match one of. Default is evaluated in the
// caller's Context when the parameter is left unfilled.
type Param struct {
	Name    string
	Kind    ParamKind
	Types   []string
	Default Command
}

// ParameterList is the declared signature of a closure or macro.
type ParameterList struct {
	Params  []Param
	Rest    string
	Meta    string
	Closure string
}

// ParamRole places a ParamSpec in a ParameterList.
type ParamRole int

const (
	RoleParam ParamRole = iota
	RoleRest
	RoleMeta
	RoleClosure
)

// ParamSpec is one declared parameter in source order.
type ParamSpec struct {
	Role  ParamRole
	Param Param
}

// Rest, Meta and ClosureParam are shorthands for the collector specs.
func Rest(name string) ParamSpec         { return ParamSpec{Role: RoleRest, Param: Param{Name: name}} }
func Meta(name string) ParamSpec         { return ParamSpec{Role: RoleMeta, Param: Param{Name: name}} }
func ClosureParam(name string) ParamSpec { return ParamSpec{Role: RoleClosure, Param: Param{Name: name}} }

// Positional is a plain positional-or-named parameter spec.
func Positional(name string, types ...string) ParamSpec {
	return ParamSpec{Param: Param{Name: name, Types: types}}
}

// NewParams validates specs and builds a ParameterList. Names must be
// distinct and the rest, meta and closure collectors may appear at most
// once each, after every ordinary parameter.
func NewParams(specs ...ParamSpec) (*ParameterList, error) {
	pl := &ParameterList{}
	seen := make(map[string]bool)
	collectors := false
	for _, s := range specs {
		name := s.Param.Name
		if name == "" {
			return nil, newFault(BindingFault, ErrRedeclared, "parameter without a name")
		}
		if seen[name] {
			return nil, newFault(BindingFault, ErrRedeclared, "duplicate parameter %q", name)
		}
		seen[name] = true
		switch s.Role {
		case RoleParam:
			if collectors {
				return nil, newFault(BindingFault, ErrRedeclared, "parameter %q follows a rest, meta or closure parameter", name)
			}
			pl.Params = append(pl.Params, s.Param)
		case RoleRest:
			if pl.Rest != "" {
				return nil, newFault(BindingFault, ErrRedeclared, "more than one rest parameter")
			}
			pl.Rest, collectors = name, true
		case RoleMeta:
			if pl.Meta != "" {
				return nil, newFault(BindingFault, ErrRedeclared, "more than one meta parameter")
			}
			pl.Meta, collectors = name, true
		case RoleClosure:
			if pl.Closure != "" {
				return nil, newFault(BindingFault, ErrRedeclared, "more than one closure parameter")
			}
			pl.Closure, collectors = name, true
		}
	}
	return pl, nil
}

// MustParams is NewParams for signatures known to be valid.
func MustParams(specs ...ParamSpec) *ParameterList {
	pl, err := NewParams(specs...)
	if err != nil {
		panic(err)
	}
	return pl
}

func (pl *ParameterList) index(name string) int {
	for i, p := range pl.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (pl *ParameterList) String() string {
	if pl == nil {
		return "()"
	}
	var parts []string
	for _, p := range pl.Params {
		s := p.Name
		switch p.Kind {
		case PositionalOnly:
			s += "/"
		case NamedOnly:
			s = "*" + s
		}
		if len(p.Types) > 0 {
			s += ": " + strings.Join(p.Types, "|")
		}
		if p.Default != nil {
			s += "=..."
		}
		parts = append(parts, s)
	}
	if pl.Rest != "" {
		parts = append(parts, "..."+pl.Rest)
	}
	if pl.Meta != "" {
		parts = append(parts, "**"+pl.Meta)
	}
	if pl.Closure != "" {
		parts = append(parts, "&"+pl.Closure)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ---------------------------------------------------------------------------
// Binding
// ---------------------------------------------------------------------------

// Bind maps args onto the parameter list and defines the results in
// callee with Let0. Defaults are evaluated in caller. When lazy is set
// the arguments are *Expr values for a macro: defaults become *Expr too
// and no type checks are made.
func (pl *ParameterList) Bind(caller, callee *Context, args []ArgValue, lazy bool) error {
	if pl == nil {
		pl = &ParameterList{}
	}
	n := len(pl.Params)

	var closure Value
	if pl.Closure != "" && len(args) > n {
		closure = args[len(args)-1].Value
		args = args[:len(args)-1]
	}

	values := make([]Value, n)
	filled := make([]bool, n)
	var rest []Value
	var meta *LngObject
	if pl.Meta != "" {
		meta = NewObject(caller)
	}

	fill := func(i int, v Value) error {
		values[i] = v
		filled[i] = true
		if lazy {
			return nil
		}
		return checkParamType(caller, pl.Params[i], v)
	}

	next := 0
	for _, a := range args {
		if a.Name == "" {
			for next < n && (filled[next] || pl.Params[next].Kind == NamedOnly) {
				next++
			}
			if next < n {
				if err := fill(next, a.Value); err != nil {
					return err
				}
				next++
				continue
			}
			if pl.Rest == "" {
				return newFault(BindingFault, ErrTooManyArgs, "too many parameters: expected at most %d, got %d", n, len(args))
			}
			rest = append(rest, a.Value)
			continue
		}

		i := pl.index(a.Name)
		if i < 0 || pl.Params[i].Kind == PositionalOnly {
			if meta == nil {
				if i < 0 {
					return newFault(BindingFault, ErrTooManyArgs, "unknown parameter %q", a.Name)
				}
				return newFault(BindingFault, ErrTooManyArgs, "parameter %q is positional-only", a.Name)
			}
			meta.Ctx.Let0(a.Name, a.Value)
			continue
		}
		if filled[i] {
			return newFault(BindingFault, ErrAlreadyBound, "parameter %q already defined", a.Name)
		}
		if err := fill(i, a.Value); err != nil {
			return err
		}
	}

	for i, p := range pl.Params {
		if filled[i] {
			continue
		}
		if p.Default == nil {
			return newFault(BindingFault, ErrMissingArg, "parameter %q not defined", p.Name)
		}
		if lazy {
			values[i] = &Expr{Cmd: p.Default, Ctx: caller}
			continue
		}
		v, err := Eval(caller, p.Default)
		if err != nil {
			return err
		}
		if err := fill(i, v); err != nil {
			return err
		}
	}

	for i, p := range pl.Params {
		callee.Let0(p.Name, values[i])
	}
	if pl.Rest != "" {
		callee.Let0(pl.Rest, NewList(rest...))
	}
	if pl.Meta != "" {
		callee.Let0(pl.Meta, meta)
	}
	if pl.Closure != "" {
		callee.Let0(pl.Closure, closure)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Type checks
// ---------------------------------------------------------------------------

func checkParamType(ctx *Context, p Param, v Value) error {
	if len(p.Types) == 0 || matchesAny(ctx, v, p.Types) {
		return nil
	}
	return newFault(BindingFault, ErrTypeMismatch, "parameter %q expects %s, got %s",
		p.Name, strings.Join(p.Types, " or "), TypeName(v))
}

func checkReturnType(ctx *Context, name string, types []string, v Value) error {
	if len(types) == 0 || matchesAny(ctx, v, types) {
		return nil
	}
	return newFault(BindingFault, ErrTypeMismatch, "%s must return %s, got %s",
		displayName(name), strings.Join(types, " or "), TypeName(v))
}

func matchesAny(ctx *Context, v Value, types []string) bool {
	for _, t := range types {
		if MatchesType(ctx, v, t) {
			return true
		}
	}
	return false
}

// MatchesType reports whether v is of the native kind or user class
// called name.
func MatchesType(ctx *Context, v Value, name string) bool {
	for _, tag := range tagChain(v) {
		if tag == name {
			return true
		}
	}
	obj, ok := v.(*LngObject)
	if !ok || obj.Class == nil {
		return false
	}
	if c := ctx.global.Class(name); c != nil {
		return obj.InstanceOf(c)
	}
	for _, a := range append([]*LngClass{obj.Class}, obj.Class.Ancestors()...) {
		if a.Name == name {
			return true
		}
	}
	return false
}

func describeArgs(args []ArgValue) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.Name != "" {
			parts[i] = fmt.Sprintf("%s=%s", a.Name, TypeName(a.Value))
		} else {
			parts[i] = TypeName(a.Value)
		}
	}
	return strings.Join(parts, ", ")
}
