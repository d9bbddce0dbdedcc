package indicators

import (
	"barlang/internal/registry"
	"barlang/internal/vm"
)

// registerPredicates installs ISUP, ISDOWN, ISEQUAL — bar-shape checks
// comparing an open against a close, both passed in as ordinary
// arguments rather than read off a bar carried in ctx.
func registerPredicates(reg *registry.Registry) error {
	entries := []registry.Entry{
		{
			Name:    "ISUP",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				open, err := floatArg("ISUP", args, 0)
				if err != nil {
					return nil, err
				}
				c, err := floatArg("ISUP", args, 1)
				if err != nil {
					return nil, err
				}
				return c > open, nil
			},
		},
		{
			Name:    "ISDOWN",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				open, err := floatArg("ISDOWN", args, 0)
				if err != nil {
					return nil, err
				}
				c, err := floatArg("ISDOWN", args, 1)
				if err != nil {
					return nil, err
				}
				return c < open, nil
			},
		},
		{
			Name:    "ISEQUAL",
			MinArgs: 2,
			MaxArgs: 2,
			Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
				open, err := floatArg("ISEQUAL", args, 0)
				if err != nil {
					return nil, err
				}
				c, err := floatArg("ISEQUAL", args, 1)
				if err != nil {
					return nil, err
				}
				return c == open, nil
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
