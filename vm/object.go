package vm

// LngObject is a class instance or a class-less record. Its fields are
// the bindings of Ctx's own frame; for instances Ctx wraps the class body.
type LngObject struct {
	Class *LngClass
	Ctx   *Context

	// fault is set on exception objects created by catch, so raising
	// them again resumes the original fault.
	fault *Fault
}

// NewObject creates an empty class-less object.
func NewObject(ctx *Context) *LngObject {
	return &LngObject{Ctx: ctx.Open()}
}

// ObjectFrom creates a class-less object holding the given fields.
func ObjectFrom(ctx *Context, fields map[string]Value) *LngObject {
	o := NewObject(ctx)
	for k, v := range fields {
		o.Ctx.Let0(k, v)
	}
	return o
}

func newInstance(ctx *Context, c *LngClass) *LngObject {
	return &LngObject{Class: c, Ctx: ctx.WrapOver(c.Body)}
}

// FieldNames returns the names bound on the object itself, excluding
// this and cls.
func (o *LngObject) FieldNames() []string {
	all := o.Ctx.LocalNames()
	names := all[:0]
	for _, n := range all {
		if n == "this" || n == "cls" {
			continue
		}
		names = append(names, n)
	}
	return names
}

// Field resolves name on the instance, then its class chain. Methods
// found on a class come back bound to this instance.
func (o *LngObject) Field(name string) (Value, bool) {
	own, hasOwn := o.Ctx.ownValue(name)
	if hasOwn && own != nil {
		return own, true
	}
	if o.Class != nil {
		if v, owner, ok := o.Class.lookup(name); ok {
			return o.bind(v, owner), true
		}
		if o.Class.declares(name) {
			return nil, true
		}
	}
	return nil, hasOwn
}

// SetField defines or overwrites a field in the instance frame.
func (o *LngObject) SetField(name string, v Value) error {
	return o.Ctx.Local(name, v)
}

// InstanceOf reports whether o's class is c or inherits from it.
func (o *LngObject) InstanceOf(c *LngClass) bool {
	return o.Class != nil && c != nil && o.Class.IsSubclassOf(c)
}

// bind returns a copy of a class-level closure or macro whose captured
// Context sees this instance frame followed by the owning class body.
func (o *LngObject) bind(v Value, owner *LngClass) Value {
	if owner == nil {
		return v
	}
	switch fn := v.(type) {
	case *Closure:
		b := *fn
		b.Ctx = o.viewFor(owner)
		return &b
	case *Macro:
		b := *fn
		b.Ctx = o.viewFor(owner)
		return &b
	}
	return v
}

// viewFor shares the instance frame but chains it to owner's body, so a
// method inherited from a parent resolves that parent's bindings.
func (o *LngObject) viewFor(owner *LngClass) *Context {
	if owner == o.Class {
		return o.Ctx
	}
	view := *o.Ctx
	view.wrapped = owner.Body
	return &view
}
