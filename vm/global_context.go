package vm

import (
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// GlobalContext: run-wide class registry and native method providers
// ---------------------------------------------------------------------------

// NativeMethod is a script-visible method implemented in Go. recv is the
// value the method was looked up on and args are already evaluated.
type NativeMethod func(ctx *Context, recv Value, args []ArgValue) (Value, error)

// MethodTable maps method names to implementations for one type tag.
type MethodTable map[string]NativeMethod

// GlobalContext is shared by every Context of one VM, including spawned
// task snapshots.
type GlobalContext struct {
	vm      *VM
	classes *ClassTable

	mu        sync.RWMutex
	providers map[string]MethodTable
}

func newGlobalContext(vm *VM) *GlobalContext {
	return &GlobalContext{
		vm:        vm,
		classes:   NewClassTable(),
		providers: make(map[string]MethodTable),
	}
}

// RegisterClass records c under its name, replacing an earlier class.
func (g *GlobalContext) RegisterClass(c *LngClass) {
	if old := g.classes.Register(c); old != nil && old != c {
		logger.Debugf("class %s redefined", c.Name)
	}
}

// Class returns the registered class named name, or nil.
func (g *GlobalContext) Class(name string) *LngClass {
	return g.classes.Lookup(name)
}

// Classes returns the class table.
func (g *GlobalContext) Classes() *ClassTable {
	return g.classes
}

// Provide installs a native method under a type tag.
func (g *GlobalContext) Provide(tag, name string, fn NativeMethod) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.providers[tag]
	if t == nil {
		t = make(MethodTable)
		g.providers[tag] = t
	}
	t[name] = fn
}

// ProvideAll installs a whole table under a type tag.
func (g *GlobalContext) ProvideAll(tag string, table MethodTable) {
	for name, fn := range table {
		g.Provide(tag, name, fn)
	}
}

// LookupMethod finds a native method for v, walking v's tag chain from
// the most specific tag to "any".
func (g *GlobalContext) LookupMethod(v Value, name string) (NativeMethod, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, tag := range tagChain(v) {
		if fn, ok := g.providers[tag][name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// MethodNames lists the native methods visible on v.
func (g *GlobalContext) MethodNames(v Value) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[string]struct{})
	var names []string
	for _, tag := range tagChain(v) {
		for name := range g.providers[tag] {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
