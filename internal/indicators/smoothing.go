package indicators

import (
	"barlang/internal/errs"
	"barlang/internal/registry"
	"barlang/internal/vm"
)

// exponentialState is the one float a smoothing indicator (EMA, 3-arg
// SMA, DMA) needs to remember between bars: its own previous output.
type exponentialState struct {
	initialized bool
	prev        float64
}

func getOrInitExponential(ctx registry.Context) *exponentialState {
	if es, ok := ctx.State.(*exponentialState); ok {
		return es
	}
	es := &exponentialState{}
	ctx.SetState(es)
	return es
}

// registerSmoothing installs EMA(X,N), the 3-arg weighted SMA(X,N,M),
// and DMA(X,A) — the exponential-family indicators that carry one
// scalar of state instead of a window.
func registerSmoothing(reg *registry.Registry) error {
	entries := []registry.Entry{
		{
			Name:    "EMA",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				v, err := floatArg("EMA", args, 0)
				if err != nil {
					return nil, err
				}
				n, err := intArg("EMA", args, 1)
				if err != nil {
					return nil, err
				}
				es := getOrInitExponential(ctx)
				alpha := 2.0 / float64(n+1)
				return stepExponential(es, v, alpha), nil
			},
		},
		{
			Name:    "SMA",
			MinArgs: 3,
			MaxArgs: 3,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				v, err := floatArg("SMA", args, 0)
				if err != nil {
					return nil, err
				}
				n, err := intArg("SMA", args, 1)
				if err != nil {
					return nil, err
				}
				m, err := floatArg("SMA", args, 2)
				if err != nil {
					return nil, err
				}
				if m <= 0 || m > float64(n) {
					return nil, errs.New(errs.KindRuntimeError, "SMA: weight M must satisfy 0 < M <= N")
				}
				es := getOrInitExponential(ctx)
				alpha := m / float64(n)
				return stepExponential(es, v, alpha), nil
			},
		},
		{
			Name:    "DMA",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				v, err := floatArg("DMA", args, 0)
				if err != nil {
					return nil, err
				}
				a, err := floatArg("DMA", args, 1)
				if err != nil {
					return nil, err
				}
				if a <= 0 || a >= 1 {
					return nil, errs.New(errs.KindRuntimeError, "DMA: smoothing factor A must satisfy 0 < A < 1")
				}
				es := getOrInitExponential(ctx)
				return stepExponential(es, v, a), nil
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

func stepExponential(es *exponentialState, v, alpha float64) float64 {
	if !es.initialized {
		es.initialized = true
		es.prev = v
		return v
	}
	es.prev = alpha*v + (1-alpha)*es.prev
	return es.prev
}
