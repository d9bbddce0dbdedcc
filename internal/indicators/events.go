package indicators

import (
	"barlang/internal/registry"
	"barlang/internal/vm"
)

// registerReferenceAndEvents installs REF, CROSS, CROSSDOWN, BARSLAST,
// and VALUEWHEN — the family that looks back at prior bars or tracks
// the last time a condition held.
func registerReferenceAndEvents(reg *registry.Registry) error {
	entries := []registry.Entry{
		{
			Name:    "REF",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				v, err := floatArg("REF", args, 0)
				if err != nil {
					return nil, err
				}
				n, err := intArg("REF", args, 1)
				if err != nil {
					return nil, err
				}
				hs, err := getOrInitHistory(ctx, n)
				if err != nil {
					return nil, err
				}
				hs.buf.Push(v)
				if hs.buf.Len() <= n {
					return nil, nil
				}
				return hs.buf.Get(0), nil
			},
		},
		{
			Name:    "CROSS",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				return crossStep(args, ctx, true)
			},
		},
		{
			Name:    "CROSSDOWN",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				return crossStep(args, ctx, false)
			},
		},
		{
			Name:    "BARSLAST",
			MinArgs: 1,
			MaxArgs: 1,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				cs := getOrInitCounter(ctx)
				if vm.Truthy(args[0]) {
					cs.barsSince = 0
					cs.haveEvent = true
				} else if cs.haveEvent {
					cs.barsSince++
				}
				if !cs.haveEvent {
					return nil, nil
				}
				return float64(cs.barsSince), nil
			},
		},
		{
			Name:    "VALUEWHEN",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				v, err := floatArg("VALUEWHEN", args, 1)
				if err != nil {
					return nil, err
				}
				cs := getOrInitCounter(ctx)
				if vm.Truthy(args[0]) {
					cs.prevA = v
					cs.haveEvent = true
				}
				if !cs.haveEvent {
					return nil, nil
				}
				return cs.prevA, nil
			},
		},
	}
	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	return nil
}

// crossStep implements CROSS(A,B)/CROSSDOWN(A,B): 1 exactly on the bar
// where A-B changes sign in the requested direction relative to the
// previous bar, null otherwise (including while a or b is null, or
// before a previous A-B exists to compare against).
func crossStep(args []vm.Value, ctx registry.Context, upward bool) (vm.Value, error) {
	a, aNull, err := nullableFloatArg("CROSS", args, 0)
	if err != nil {
		return nil, err
	}
	b, bNull, err := nullableFloatArg("CROSS", args, 1)
	if err != nil {
		return nil, err
	}
	if aNull || bNull {
		return nil, nil
	}
	cs := getOrInitCounter(ctx)
	diff := a - b
	if !cs.initialized {
		cs.initialized = true
		cs.prevA = diff
		return nil, nil
	}
	prev := cs.prevA
	cs.prevA = diff
	if upward {
		if prev < 0 && diff > 0 {
			return 1.0, nil
		}
	} else {
		if prev > 0 && diff < 0 {
			return 1.0, nil
		}
	}
	return nil, nil
}
