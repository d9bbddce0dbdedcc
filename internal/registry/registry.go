// Package registry is the indicator/builtin function table the VM's
// CALL_BUILTIN instruction dispatches through: a name, arity
// information, and a plain Go function value, registered into a lookup
// table ahead of execution.
package registry

import (
	"fmt"

	"barlang/internal/errs"
	"barlang/internal/vm"
)

// Context is an alias for vm.CallContext: the current bar's timestamp,
// the logging sink, the stable per-call-site id, and the state slot the
// VM keeps alive across bars. Aliased rather than redefined so a
// *Registry satisfies vm.Caller directly, with no adapter layer.
type Context = vm.CallContext

// Entry is one registered builtin: a name, an arity range, and the
// function that executes it given arguments already evaluated in
// left-to-right order off the VM's operand stack.
type Entry struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 means variadic (no upper bound)
	Execute func(args []vm.Value, ctx Context) (vm.Value, error)
}

// Registry holds every registered builtin plus its aliases.
type Registry struct {
	entries map[string]Entry
	aliases map[string]string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		aliases: make(map[string]string),
	}
}

// Register adds an entry under its canonical name. Registering the same
// name twice is a programmer error, not a runtime condition — it returns
// a BuiltinError rather than silently overwriting.
func (r *Registry) Register(e Entry) error {
	if _, exists := r.entries[e.Name]; exists {
		return errs.New(errs.KindBuiltinError, fmt.Sprintf("builtin %q already registered", e.Name))
	}
	if _, exists := r.aliases[e.Name]; exists {
		return errs.New(errs.KindBuiltinError, fmt.Sprintf("name %q already registered as an alias", e.Name))
	}
	r.entries[e.Name] = e
	return nil
}

// Alias registers altName as another spelling of targetName. The target
// must already be a registered canonical entry; aliasing an alias is
// rejected to keep resolution a single hop.
func (r *Registry) Alias(altName, targetName string) error {
	if _, exists := r.entries[altName]; exists {
		return errs.New(errs.KindBuiltinError, fmt.Sprintf("name %q already registered as a builtin", altName))
	}
	if _, exists := r.aliases[altName]; exists {
		return errs.New(errs.KindBuiltinError, fmt.Sprintf("alias %q already registered", altName))
	}
	if _, exists := r.entries[targetName]; !exists {
		return errs.New(errs.KindBuiltinError, fmt.Sprintf("alias target %q is not a registered builtin", targetName))
	}
	r.aliases[altName] = targetName
	return nil
}

// Lookup resolves name (following at most one alias hop) to its Entry.
func (r *Registry) Lookup(name string) (Entry, bool) {
	if e, ok := r.entries[name]; ok {
		return e, true
	}
	if target, ok := r.aliases[name]; ok {
		e, ok := r.entries[target]
		return e, ok
	}
	return Entry{}, false
}

// Call resolves name and invokes it, checking arity first. Errors from
// arity mismatches are InvalidFunctionCall; a function name with no
// registered entry is also InvalidFunctionCall since the compiler does
// not validate call targets ahead of time — builtin names are resolved
// at call time, not compile time.
func (r *Registry) Call(name string, args []vm.Value, ctx Context) (vm.Value, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return nil, errs.New(errs.KindInvalidFunctionCall, fmt.Sprintf("undefined function %q", name))
	}
	n := len(args)
	if n < e.MinArgs || (e.MaxArgs >= 0 && n > e.MaxArgs) {
		return nil, errs.New(errs.KindInvalidFunctionCall,
			fmt.Sprintf("%q called with %d argument(s)", name, n)).
			WithContext(map[string]interface{}{"min_args": e.MinArgs, "max_args": e.MaxArgs})
	}
	return e.Execute(args, ctx)
}

// Names returns every canonical (non-alias) registered name, sorted
// callers' side if they need stable output; used by tooling/tests that
// enumerate the builtin surface.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
