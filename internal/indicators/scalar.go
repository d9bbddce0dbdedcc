package indicators

import (
	"math"

	"barlang/internal/registry"
	"barlang/internal/vm"
)

// unary1 builds a stateless single-argument math Entry that
// null-propagates: a null argument yields null without calling fn.
// fn itself returns nil for any out-of-domain input (e.g. ACOS/ASIN
// outside [-1,1], LN/LOG at or below zero, SQRT below zero).
func unary1(name string, fn func(float64) vm.Value) registry.Entry {
	return registry.Entry{
		Name:    name,
		MinArgs: 1,
		MaxArgs: 1,
		Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
			v, isNull, err := nullableFloatArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			if isNull {
				return nil, nil
			}
			return fn(v), nil
		},
	}
}

// mathFn lifts a total function (no domain restriction) into unary1's
// vm.Value-returning shape.
func mathFn(fn func(float64) float64) func(float64) vm.Value {
	return func(x float64) vm.Value { return fn(x) }
}

// registerScalarMath installs the pure, stateless scalar family: the
// trig/exp/log/rounding functions, 2-arg MAX2/MIN2/POW/MOD, SGN,
// REVERSE, NOT, BETWEEN, RANGE, and the 3-arg IFELSE.
func registerScalarMath(reg *registry.Registry) error {
	entries := []registry.Entry{
		unary1("ABS", mathFn(math.Abs)),
		unary1("ACOS", func(x float64) vm.Value {
			if x < -1 || x > 1 {
				return nil
			}
			return math.Acos(x)
		}),
		unary1("ASIN", func(x float64) vm.Value {
			if x < -1 || x > 1 {
				return nil
			}
			return math.Asin(x)
		}),
		unary1("ATAN", mathFn(math.Atan)),
		unary1("SIN", mathFn(math.Sin)),
		unary1("COS", mathFn(math.Cos)),
		unary1("TAN", mathFn(math.Tan)),
		unary1("EXP", mathFn(math.Exp)),
		unary1("LN", func(x float64) vm.Value {
			if x <= 0 {
				return nil
			}
			return math.Log(x)
		}),
		unary1("LOG", func(x float64) vm.Value {
			if x <= 0 {
				return nil
			}
			return math.Log10(x)
		}),
		unary1("SQRT", func(x float64) vm.Value {
			if x < 0 {
				return nil
			}
			return math.Sqrt(x)
		}),
		unary1("SQUARE", mathFn(func(x float64) float64 { return x * x })),
		unary1("CUBE", mathFn(func(x float64) float64 { return x * x * x })),
		unary1("CEILING", mathFn(math.Ceil)),
		unary1("FLOOR", mathFn(math.Floor)),
		unary1("INTPART", mathFn(math.Trunc)),
		unary1("REVERSE", mathFn(func(x float64) float64 { return -x })),
		unary1("SGN", mathFn(func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			default:
				return 0
			}
		})),
		{
			Name:    "NOT",
			MinArgs: 1,
			MaxArgs: 1,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				if args[0] == nil {
					return nil, nil
				}
				return !vm.Truthy(args[0]), nil
			},
		},
		{
			Name:    "MAX2",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				a, aNull, err := nullableFloatArg("MAX2", args, 0)
				if err != nil {
					return nil, err
				}
				b, bNull, err := nullableFloatArg("MAX2", args, 1)
				if err != nil {
					return nil, err
				}
				if aNull || bNull {
					return nil, nil
				}
				return math.Max(a, b), nil
			},
		},
		{
			Name:    "MIN2",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				a, aNull, err := nullableFloatArg("MIN2", args, 0)
				if err != nil {
					return nil, err
				}
				b, bNull, err := nullableFloatArg("MIN2", args, 1)
				if err != nil {
					return nil, err
				}
				if aNull || bNull {
					return nil, nil
				}
				return math.Min(a, b), nil
			},
		},
		{
			Name:    "POW",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				a, aNull, err := nullableFloatArg("POW", args, 0)
				if err != nil {
					return nil, err
				}
				b, bNull, err := nullableFloatArg("POW", args, 1)
				if err != nil {
					return nil, err
				}
				if aNull || bNull {
					return nil, nil
				}
				return math.Pow(a, b), nil
			},
		},
		{
			Name:    "MOD",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				a, aNull, err := nullableFloatArg("MOD", args, 0)
				if err != nil {
					return nil, err
				}
				b, bNull, err := nullableFloatArg("MOD", args, 1)
				if err != nil {
					return nil, err
				}
				if aNull || bNull || b == 0 {
					return nil, nil
				}
				return math.Mod(a, b), nil
			},
		},
		{
			Name:    "BETWEEN",
			MinArgs: 3,
			MaxArgs: 3,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				v, vNull, err := nullableFloatArg("BETWEEN", args, 0)
				if err != nil {
					return nil, err
				}
				lo, loNull, err := nullableFloatArg("BETWEEN", args, 1)
				if err != nil {
					return nil, err
				}
				hi, hiNull, err := nullableFloatArg("BETWEEN", args, 2)
				if err != nil {
					return nil, err
				}
				if vNull || loNull || hiNull {
					return nil, nil
				}
				if lo > hi {
					lo, hi = hi, lo
				}
				return v >= lo && v <= hi, nil
			},
		},
		{
			Name:    "RANGE",
			MinArgs: 3,
			MaxArgs: 3,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				v, vNull, err := nullableFloatArg("RANGE", args, 0)
				if err != nil {
					return nil, err
				}
				lo, loNull, err := nullableFloatArg("RANGE", args, 1)
				if err != nil {
					return nil, err
				}
				hi, hiNull, err := nullableFloatArg("RANGE", args, 2)
				if err != nil {
					return nil, err
				}
				if vNull || loNull || hiNull {
					return nil, nil
				}
				if lo > hi {
					lo, hi = hi, lo
				}
				return v >= lo && v < hi, nil
			},
		},
		{
			Name:    "IFELSE",
			MinArgs: 3,
			MaxArgs: 3,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				if vm.Truthy(args[0]) {
					return args[1], nil
				}
				return args[2], nil
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
