package indicators

import (
	"fmt"
	"strings"

	"barlang/internal/registry"
	"barlang/internal/vm"
)

// registerVariadic installs the variable-arity builtins: MAX and MIN
// over two or more scalar arguments, and PRINT for debug output as an
// ordinary builtin since the language has no dedicated print statement.
func registerVariadic(reg *registry.Registry) error {
	entries := []registry.Entry{
		{
			Name:    "MAX",
			MinArgs: 2,
			MaxArgs: -1,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				return reduceVariadic("MAX", args, func(a, b float64) bool { return b > a })
			},
		},
		{
			Name:    "MIN",
			MinArgs: 2,
			MaxArgs: -1,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				return reduceVariadic("MIN", args, func(a, b float64) bool { return b < a })
			},
		},
		{
			Name:    "PRINT",
			MinArgs: 0,
			MaxArgs: -1,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				parts := make([]interface{}, len(args))
				for i, a := range args {
					parts[i] = a
				}
				if ctx.Log != nil {
					ctx.Log.Infof("%s", strings.TrimSuffix(fmt.Sprintln(parts...), "\n"))
				}
				if len(args) == 0 {
					return nil, nil
				}
				return args[len(args)-1], nil
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

func reduceVariadic(name string, args []vm.Value, replace func(best, candidate float64) bool) (vm.Value, error) {
	best, err := floatArg(name, args, 0)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(args); i++ {
		v, err := floatArg(name, args, i)
		if err != nil {
			return nil, err
		}
		if replace(best, v) {
			best = v
		}
	}
	return best, nil
}
