// Package indicators implements the technical-analysis function family,
// registered into an internal/registry.Registry by Register. One file
// per builtin family, each a plain
// func(args []vm.Value, ctx registry.Context) (vm.Value, error);
// stateful indicators stash a per-call-site object (almost always a
// ring buffer) through registry.Context.SetState.
package indicators

import (
	"fmt"

	"barlang/internal/errs"
	"barlang/internal/registry"
	"barlang/internal/ringbuffer"
	"barlang/internal/vm"
)

// floatArg coerces argument i to float64 or returns a TypeError naming
// the offending function.
func floatArg(fn string, args []vm.Value, i int) (float64, error) {
	f, ok := vm.AsFloat(args[i])
	if !ok {
		return 0, errs.New(errs.KindTypeError, fmt.Sprintf("%s: argument %d must be a number, got %s", fn, i, vm.TypeName(args[i])))
	}
	return f, nil
}

// nullableFloatArg coerces argument i to float64, distinguishing a null
// argument (isNull true, no error) from one of the wrong type
// altogether (err set). Builtins that null-propagate call this instead
// of floatArg so a null operand doesn't get misreported as a TypeError.
func nullableFloatArg(fn string, args []vm.Value, i int) (f float64, isNull bool, err error) {
	if args[i] == nil {
		return 0, true, nil
	}
	f, err = floatArg(fn, args, i)
	return f, false, err
}

// intArg coerces argument i to a positive int period, the common
// shape of every rolling-window indicator's trailing N argument.
func intArg(fn string, args []vm.Value, i int) (int, error) {
	f, err := floatArg(fn, args, i)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if n <= 0 || float64(n) != f {
		return 0, errs.New(errs.KindRuntimeError, fmt.Sprintf("%s: period argument must be a positive integer, got %v", fn, f))
	}
	return n, nil
}

// windowState is the per-call-site state almost every rolling-window
// indicator stores: a fixed-capacity ring buffer sized to the first bar's
// period argument. The period is assumed constant across bars for a
// given call site, since a call site's period argument is a
// compile-time constant in practice.
type windowState struct {
	buf *ringbuffer.RingBuffer[float64]
}

func getOrInitWindow(ctx registry.Context, period int) (*windowState, error) {
	if ws, ok := ctx.State.(*windowState); ok {
		return ws, nil
	}
	buf, err := ringbuffer.New[float64](period)
	if err != nil {
		return nil, err
	}
	ws := &windowState{buf: buf}
	ctx.SetState(ws)
	return ws, nil
}

type statsWindowState struct {
	buf *ringbuffer.StatsRingBuffer[float64]
}

func getOrInitStatsWindow(ctx registry.Context, period int) (*statsWindowState, error) {
	if ws, ok := ctx.State.(*statsWindowState); ok {
		return ws, nil
	}
	buf, err := ringbuffer.NewStats[float64](period)
	if err != nil {
		return nil, err
	}
	ws := &statsWindowState{buf: buf}
	ctx.SetState(ws)
	return ws, nil
}

// counterState backs BARSLAST/VALUEWHEN/FILTER/CROSS-family indicators that need to
// remember a small amount of scalar history (the previous value, a bar
// count since an event) rather than a full window.
type counterState struct {
	initialized bool
	prevA       float64
	prevB       float64
	barsSince   int
	haveEvent   bool
}

func getOrInitCounter(ctx registry.Context) *counterState {
	if cs, ok := ctx.State.(*counterState); ok {
		return cs
	}
	cs := &counterState{}
	ctx.SetState(cs)
	return cs
}

// historyState backs REF(expr, n): a ring buffer of the last n+1 values
// so the value from n bars ago is always available.
type historyState struct {
	buf *ringbuffer.RingBuffer[float64]
	n   int
}

func getOrInitHistory(ctx registry.Context, n int) (*historyState, error) {
	if hs, ok := ctx.State.(*historyState); ok && hs.n == n {
		return hs, nil
	}
	buf, err := ringbuffer.New[float64](n + 1)
	if err != nil {
		return nil, err
	}
	hs := &historyState{buf: buf, n: n}
	ctx.SetState(hs)
	return hs, nil
}

// Register installs every indicator and scalar builtin, plus their
// aliases, into reg. Returns an error immediately if any registration
// collides.
func Register(reg *registry.Registry) error {
	for _, step := range []func(*registry.Registry) error{
		registerRollingWindow,
		registerSmoothing,
		registerReferenceAndEvents,
		registerScalarMath,
		registerVariadic,
		registerPredicates,
	} {
		if err := step(reg); err != nil {
			return err
		}
	}
	return registerAliases(reg)
}

func registerAliases(reg *registry.Registry) error {
	aliases := map[string]string{
		"IFF":     "IFELSE",
		"REFV":    "REF",
		"CROSSUP": "CROSS",
	}
	for alias, target := range aliases {
		if err := reg.Alias(alias, target); err != nil {
			return err
		}
	}
	return nil
}
