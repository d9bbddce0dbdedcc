// Package interpreter is the thin facade an embedder actually imports:
// it wires the compiler, the indicator registry, and the VM together so
// callers never construct a Registry by hand just to run a script.
package interpreter

import (
	"barlang/internal/compiler"
	"barlang/internal/indicators"
	"barlang/internal/ir"
	"barlang/internal/logging"
	"barlang/internal/registry"
	"barlang/internal/vm"
)

// Option configures Compile.
type Option func(*compiler.Compiler)

// WithDebugInfo re-exports compiler.WithDebugInfo so callers need only
// import this package.
func WithDebugInfo() Option { return Option(compiler.WithDebugInfo()) }

// WithGlobals re-exports compiler.WithGlobals.
func WithGlobals(names ...string) Option { return Option(compiler.WithGlobals(names...)) }

// Compile lowers an already-parsed statement tree into a validated
// ir.Program, ready to back any number of VM instances.
func Compile(stmts []compiler.Stmt, opts ...Option) (*ir.Program, error) {
	copts := make([]compiler.Option, len(opts))
	for i, o := range opts {
		copts[i] = compiler.Option(o)
	}
	return compiler.New(copts...).Compile(stmts)
}

// NewRegistry builds a registry.Registry with the full indicator and
// scalar builtin family installed, the Caller every VM needs.
func NewRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := indicators.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// VMOptions configures NewVM. Logger defaults to logging.Default()
// (wrapping stdout) when nil.
type VMOptions struct {
	Logger       *logging.Logger
	MaxStackSize int
}

// NewVM builds a VM bound to program, with a fresh indicator registry as
// its Caller — the one-call path an embedder actually wants instead of
// hand-assembling registry.New + indicators.Register + vm.New.
func NewVM(program *ir.Program, opts VMOptions) (*vm.VM, error) {
	reg, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return vm.New(program, reg, vm.Options{
		Logger:       logger,
		MaxStackSize: opts.MaxStackSize,
	}), nil
}
