package vm

import (
	"io"
	"os"
	"sync"

	"github.com/chazu/lng/manifest"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var logger = commonlog.GetLogger("lng.vm")

// Default runtime bounds used when neither an option nor a manifest sets
// them.
const (
	DefaultQueueCapacity  = 0
	DefaultStreamCapacity = 16
)

// ---------------------------------------------------------------------------
// VM: one interpreter instance
// ---------------------------------------------------------------------------

// VM owns the heap, the GlobalContext and the runtime settings of one
// program run. Every Context created from it shares the same heap and
// class registry.
type VM struct {
	heap   *Heap
	global *GlobalContext

	// Well-known classes
	exceptionClass *LngClass

	outMu sync.Mutex
	out   io.Writer

	parser Parser

	stepLimit      int64
	queueCapacity  int
	streamCapacity int
	searchPaths    []string

	modulesMu   sync.Mutex
	modules     map[string]*module
	importWaits map[*ThreadContext]*module
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithStepLimit bounds the number of steps a run may take. Zero means
// unbounded.
func WithStepLimit(n int64) Option {
	return func(vm *VM) { vm.stepLimit = n }
}

// WithOutput redirects print.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithParser installs the parser used by eval, EvalString and import.
func WithParser(p Parser) Option {
	return func(vm *VM) { vm.parser = p }
}

// WithSearchPaths sets the directories import resolves relative paths
// against.
func WithSearchPaths(dirs ...string) Option {
	return func(vm *VM) { vm.searchPaths = append([]string(nil), dirs...) }
}

// WithQueueCapacity sets the capacity of que() when none is given.
func WithQueueCapacity(n int) Option {
	return func(vm *VM) { vm.queueCapacity = n }
}

// WithStreamCapacity sets the bound of a stream when none is given.
func WithStreamCapacity(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.streamCapacity = n
		}
	}
}

// WithManifest applies the [runtime], [modules] and [log] sections of a
// project manifest. Options listed after it override its values.
func WithManifest(m *manifest.Manifest) Option {
	return func(vm *VM) {
		if m == nil {
			return
		}
		vm.stepLimit = m.Runtime.StepLimit
		vm.queueCapacity = m.Runtime.DefaultQueueCapacity
		if m.Runtime.StreamCapacity > 0 {
			vm.streamCapacity = m.Runtime.StreamCapacity
		}
		vm.searchPaths = m.SearchPathDirs()
		if err := m.ConfigureLogging(); err != nil {
			logger.Warningf("logging left unconfigured: %s", err.Error())
		}
	}
}

// NewVM creates and bootstraps a new VM.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		heap:           NewHeap(),
		out:            os.Stdout,
		queueCapacity:  DefaultQueueCapacity,
		streamCapacity: DefaultStreamCapacity,
		modules:        make(map[string]*module),
		importWaits:    make(map[*ThreadContext]*module),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.global = newGlobalContext(vm)
	vm.bootstrap()
	return vm
}

func (vm *VM) bootstrap() {
	ctx := vm.NewContext()

	vm.registerCorePrimitives()
	vm.registerStringPrimitives()
	vm.registerNumberPrimitives()
	vm.registerListPrimitives()
	vm.registerConcurrencyPrimitives()
	vm.registerSyncPrimitives()
	vm.registerCodecPrimitives()
	vm.registerSQLitePrimitives()
	vm.bootstrapExceptionClasses(ctx)

	logger.Debugf("vm bootstrapped: %d globals, %d classes", len(vm.heap.Names()), vm.global.Classes().Len())
}

// builtin installs a host function under name on the heap.
func (vm *VM) builtin(name string, fn BuiltinFunc) {
	vm.heap.Set(name, &Builtin{Name: name, Fn: fn})
}

// macro installs a host function receiving unevaluated arguments.
func (vm *VM) macro(name string, fn BuiltinFunc) {
	vm.heap.Set(name, &BuiltinMacro{Name: name, Fn: fn})
}

func (vm *VM) constant(name string, v Value) {
	vm.heap.Set(name, v)
}

// Heap returns the global namespace.
func (vm *VM) Heap() *Heap {
	return vm.heap
}

// Runtime returns the class registry and native method providers.
func (vm *VM) Runtime() *GlobalContext {
	return vm.global
}

// ExceptionClass returns the root of the exception hierarchy.
func (vm *VM) ExceptionClass() *LngClass {
	return vm.exceptionClass
}

// NewContext creates a top-level Context on a fresh logical thread with
// its own step counter.
func (vm *VM) NewContext() *Context {
	return NewContext(vm.heap, vm.global, NewThreadContext(), NewStepCounter(vm.stepLimit))
}

// SetGlobal binds name on the heap.
func (vm *VM) SetGlobal(name string, v Value) {
	vm.heap.Set(name, v)
}

// LookupGlobal returns the heap binding for name.
func (vm *VM) LookupGlobal(name string) (Value, bool) {
	return vm.heap.Get(name)
}

// Register installs a host function as a builtin.
func (vm *VM) Register(name string, fn BuiltinFunc) {
	vm.builtin(name, fn)
}

// Provide installs a native method for values carrying tag.
func (vm *VM) Provide(tag, name string, fn NativeMethod) {
	vm.global.Provide(tag, name, fn)
}
