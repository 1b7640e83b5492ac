package vm

import (
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// LngClass
// ---------------------------------------------------------------------------

// LngClass is a user class. Body holds the bindings made by the class
// body (fields and methods); it has no lexical parent. Parents are
// searched depth-first in declared order.
type LngClass struct {
	Name    string
	Parents []*LngClass
	Body    *Context
}

// NewClass creates a class whose body frame is opened from ctx.
func NewClass(ctx *Context, name string, parents ...*LngClass) *LngClass {
	return &LngClass{Name: name, Parents: parents, Body: ctx.Open()}
}

func (c *LngClass) String() string {
	return c.Name
}

// Lookup resolves a field or method through the class and its parents.
// The first non-none binding wins; diamond-shaped hierarchies are
// searched once per class.
func (c *LngClass) Lookup(name string) (Value, bool) {
	if v, _, ok := c.lookup(name); ok {
		return v, true
	}
	return nil, c.declares(name)
}

// declares reports whether any class in the hierarchy binds name, even
// to none.
func (c *LngClass) declares(name string) bool {
	if _, ok := c.Body.ownValue(name); ok {
		return true
	}
	for _, a := range c.Ancestors() {
		if _, ok := a.Body.ownValue(name); ok {
			return true
		}
	}
	return false
}

// lookup also reports the class whose body held the binding.
func (c *LngClass) lookup(name string) (Value, *LngClass, bool) {
	return c.lookupIn(name, make(map[*LngClass]bool))
}

func (c *LngClass) lookupIn(name string, visited map[*LngClass]bool) (Value, *LngClass, bool) {
	if visited[c] {
		return nil, nil, false
	}
	visited[c] = true
	if v, ok := c.Body.ownValue(name); ok && v != nil {
		return v, c, true
	}
	for _, p := range c.Parents {
		if v, owner, ok := p.lookupIn(name, visited); ok {
			return v, owner, true
		}
	}
	return nil, nil, false
}

// IsSubclassOf reports whether other is c or one of its ancestors.
func (c *LngClass) IsSubclassOf(other *LngClass) bool {
	return c.isSubclassOf(other, make(map[*LngClass]bool))
}

func (c *LngClass) isSubclassOf(other *LngClass, visited map[*LngClass]bool) bool {
	if c == other {
		return true
	}
	if visited[c] {
		return false
	}
	visited[c] = true
	for _, p := range c.Parents {
		if p.isSubclassOf(other, visited) {
			return true
		}
	}
	return false
}

// Ancestors returns every ancestor class in lookup order, each once.
func (c *LngClass) Ancestors() []*LngClass {
	var out []*LngClass
	visited := map[*LngClass]bool{c: true}
	var walk func(*LngClass)
	walk = func(k *LngClass) {
		for _, p := range k.Parents {
			if visited[p] {
				continue
			}
			visited[p] = true
			out = append(out, p)
			walk(p)
		}
	}
	walk(c)
	return out
}

// initializer returns the init callable and whether it takes
// unevaluated arguments.
func (c *LngClass) initializer() (Value, *LngClass, bool) {
	v, owner, ok := c.lookup("init")
	if !ok {
		return nil, nil, false
	}
	_, lazy := v.(*Macro)
	return v, owner, lazy
}

// New constructs an instance. A Closure init receives evaluated
// arguments; a Macro init receives *Expr arguments built by the caller.
// this and cls are frozen once init returns.
func (c *LngClass) New(ctx *Context, args []ArgValue) (*LngObject, error) {
	obj := newInstance(ctx, c)
	obj.Ctx.Let0("this", obj)
	obj.Ctx.Let0("cls", c)

	init, owner, _ := c.initializer()
	switch fn := init.(type) {
	case nil:
		if len(args) > 0 {
			return nil, newFault(BindingFault, ErrTooManyArgs, "%s has no init but was given %d argument(s)", c.Name, len(args))
		}
	case *Closure, *Macro:
		if _, err := Invoke(ctx, obj.bind(fn, owner), args); err != nil {
			return nil, err
		}
	default:
		return nil, newFault(ObjectFault, ErrNotCallable, "init of %s is a %s, not a closure or macro", c.Name, TypeTag(init))
	}

	if err := obj.Ctx.Freeze("this"); err != nil {
		return nil, err
	}
	if err := obj.Ctx.Freeze("cls"); err != nil {
		return nil, err
	}
	return obj, nil
}

// ---------------------------------------------------------------------------
// ClassTable
// ---------------------------------------------------------------------------

// ClassTable manages registered classes by name.
// It's thread-safe for concurrent access.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*LngClass
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*LngClass),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *LngClass) *LngClass {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	old := ct.classes[c.Name]
	ct.classes[c.Name] = c
	return old
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name string) *LngClass {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// Has returns true if a class with this name is registered.
func (ct *ClassTable) Has(name string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.classes[name]
	return ok
}

// Names returns the registered class names, sorted.
func (ct *ClassTable) Names() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	names := make([]string, 0, len(ct.classes))
	for name := range ct.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}
