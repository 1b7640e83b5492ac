package vm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// Parser: the injected front end
// ---------------------------------------------------------------------------

// Parser turns source text into a command tree. name identifies the
// source in positions and diagnostics.
type Parser interface {
	Parse(name, src string) (Command, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(name, src string) (Command, error)

// Parse calls f.
func (f ParserFunc) Parse(name, src string) (Command, error) {
	return f(name, src)
}

// ---------------------------------------------------------------------------
// Top-level boundaries
// ---------------------------------------------------------------------------

// Run executes cmd on a fresh top-level Context.
func (vm *VM) Run(cmd Command) (Value, error) {
	return vm.RunIn(vm.NewContext(), cmd)
}

// RunIn executes cmd directly in ctx. A stray return yields its value; a
// stray break is a fault. Uncaught faults, and host panics converted to
// faults, are logged and returned.
func (vm *VM) RunIn(ctx *Context, cmd Command) (_ Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			f := panicFault("run", r)
			logger.Errorf("uncaught fault: %s", f.Format())
			err = f
		}
	}()
	v, err := Exec(ctx, cmd)
	if err == nil {
		sig, ok := v.(*Signal)
		if !ok {
			return v, nil
		}
		if sig.Kind == ReturnSignal {
			return sig.Value, nil
		}
		err = newFault(RuntimeFault, ErrBreakOutsideLoop, "break outside of a loop")
	}
	f := AsFault(err)
	logger.Errorf("uncaught fault: %s", f.Format())
	return nil, f
}

// RunString parses src and runs it on a fresh top-level Context.
func (vm *VM) RunString(name, src string) (Value, error) {
	cmd, err := vm.parse(name, src)
	if err != nil {
		return nil, err
	}
	return vm.Run(cmd)
}

func (vm *VM) parse(name, src string) (Command, error) {
	if vm.parser == nil {
		return nil, newFault(RuntimeFault, nil, "cannot evaluate %s: no parser configured", name)
	}
	cmd, err := vm.parser.Parse(name, src)
	if err != nil {
		return nil, newFault(RuntimeFault, err, "parse error in %s: %v", name, err)
	}
	return cmd, nil
}

// EvalString parses src and evaluates it in a frame nested in ctx, so it
// sees ctx's bindings but its own definitions stay local.
func (vm *VM) EvalString(ctx *Context, name, src string) (_ Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicFault("eval "+name, r)
		}
	}()
	logger.Debugf("eval %s", name)
	cmd, err := vm.parse(name, src)
	if err != nil {
		return nil, err
	}
	return Eval(ctx.Wrap(), cmd)
}

// ---------------------------------------------------------------------------
// Modules
// ---------------------------------------------------------------------------

type module struct {
	path    string
	loading bool
	loader  *ThreadContext
	done    chan struct{}
	value   *LngObject
	err     error
}

// resolve finds path relative to the search paths, then the working
// directory.
func (vm *VM) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	for _, dir := range vm.searchPaths {
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

// Import loads the module at path once and returns an object holding its
// top-level bindings. The module body runs in its own open frame, so it
// sees the heap but nothing of the importer; it shares the importer's
// thread, so a fault inside it carries the importing frames too.
// Importers on other threads wait for a load in progress. Re-entering a
// module from the thread loading it, directly or through a chain of
// waiting threads, is a circular import.
func (vm *VM) Import(ctx *Context, path string) (Value, error) {
	abs, err := vm.resolve(path)
	if err != nil {
		return nil, newFault(ResourceFault, err, "cannot import %q: %v", path, err)
	}

	vm.modulesMu.Lock()
	if m, ok := vm.modules[abs]; ok {
		if m.loading {
			if vm.waitsOn(m, ctx.thread) {
				vm.modulesMu.Unlock()
				return nil, newFault(ResourceFault, nil, "circular import of %s", abs)
			}
			vm.importWaits[ctx.thread] = m
			vm.modulesMu.Unlock()
			<-m.done
			vm.modulesMu.Lock()
			delete(vm.importWaits, ctx.thread)
		}
		vm.modulesMu.Unlock()
		if m.err != nil {
			return nil, m.err
		}
		return m.value, nil
	}
	m := &module{path: abs, loading: true, loader: ctx.thread, done: make(chan struct{})}
	vm.modules[abs] = m
	vm.modulesMu.Unlock()

	logger.Debugf("importing %s", abs)
	value, err := vm.load(ctx, abs)

	vm.modulesMu.Lock()
	m.loading = false
	m.value, m.err = value, err
	vm.modulesMu.Unlock()
	close(m.done)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// waitsOn reports whether th waiting for m would wait on itself: th
// loads m, or loads a module that m's loader is transitively waiting
// for. Callers hold modulesMu.
func (vm *VM) waitsOn(m *module, th *ThreadContext) bool {
	for k := m; k != nil; k = vm.importWaits[k.loader] {
		if k.loader == th {
			return true
		}
	}
	return false
}

func (vm *VM) load(ctx *Context, abs string) (_ *LngObject, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicFault("import "+abs, r)
		}
	}()
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, newFault(ResourceFault, err, "cannot read %s: %v", abs, err)
	}
	cmd, err := vm.parse(abs, string(data))
	if err != nil {
		return nil, err
	}
	modCtx := ctx.Open()
	if _, err := Eval(modCtx, cmd); err != nil {
		return nil, err
	}
	return ObjectFrom(ctx, modCtx.Visible()), nil
}

// ExitCode maps the outcome of a run to a process exit status: 0 for
// success, 2 when the step limit was reached and 1 for any other fault.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrStepLimit):
		return 2
	default:
		return 1
	}
}

// Describe renders err with its stack trace when it is a fault.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Format()
	}
	return fmt.Sprint(err)
}
