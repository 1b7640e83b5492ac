// Package vm implements the lng runtime.
//
// This package contains:
//   - the value domain and the native method providers keyed by type tag
//   - lexical Contexts over a shared Heap, with freeze and global rules
//   - the command tree and its executor, where break and return travel
//     as ordinary results rather than errors
//   - argument binding for closures, macros, builtins and classes
//   - classes with multiple parents and their instances
//   - channels, yielders, async tasks and streams
//   - faults with source stack traces and the Exception hierarchy
//
// Programs reach the VM as command trees. A Parser is injected with
// WithParser when eval, import or RunString are needed.
package vm
