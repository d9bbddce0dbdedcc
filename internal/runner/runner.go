// Package runner drives a compiled program against several symbols
// concurrently, one vm.VM per symbol sharing only the immutable
// compiled *ir.Program (each VM gets its own registry from
// interpreter.NewVM): a VM instance is not safe for
// concurrent Execute calls, so concurrency comes from running
// independent VM instances, one goroutine per symbol, errors collected
// via errgroup.
package runner

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"barlang/internal/errs"
	"barlang/internal/history"
	"barlang/internal/interpreter"
	"barlang/internal/ir"
	"barlang/internal/logging"
	"barlang/internal/tsoutput"
)

// Target pairs one symbol with the bar source that feeds it.
type Target struct {
	Symbol string
	Source history.Source
}

// Config configures a Run call.
type Config struct {
	Program   *ir.Program
	Targets   []Target
	Recorder  *tsoutput.Recorder
	Logger    *logging.Logger
	MaxBars   int // 0 means unbounded; replay until Source reports ok=false
}

// clock supplies a fallback timestamp for bars whose source leaves
// Bar.Timestamp zero, and always bounds the MaxBars loop regardless of
// whether a real timestamp was available.
type clock struct{ bar int }

func (c *clock) tick() int {
	n := c.bar
	c.bar++
	return n
}

// Run replays every Target concurrently against independent VM
// instances built from the same Program, recording each symbol's
// per-bar output into cfg.Recorder, until every target's Source is
// exhausted or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Program == nil {
		return errs.New(errs.KindRuntimeError, "runner: Config.Program is nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, target := range cfg.Targets {
		target := target
		group.Go(func() error {
			return runOne(gctx, cfg, target, logger)
		})
	}
	return group.Wait()
}

func runOne(ctx context.Context, cfg Config, target Target, logger *logging.Logger) error {
	machine, err := interpreter.NewVM(cfg.Program, interpreter.VMOptions{Logger: logger})
	if err != nil {
		return errs.Wrap(err, "runner: building VM for "+target.Symbol)
	}
	defer target.Source.Close()

	clk := &clock{}
	for cfg.MaxBars == 0 || clk.bar < cfg.MaxBars {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		bar, ok, err := target.Source.Next(ctx)
		if err != nil {
			return errs.Wrap(err, "runner: reading next bar for "+target.Symbol)
		}
		if !ok {
			return nil
		}

		result, err := machine.Execute(bar)
		if err != nil {
			return errs.Wrap(err, "runner: executing bar for "+target.Symbol)
		}

		logical := clk.tick()
		ts := bar.Timestamp
		if ts.IsZero() {
			ts = time.Unix(int64(logical), 0)
		}
		if cfg.Recorder != nil && len(result.Output) > 0 {
			cfg.Recorder.Record(target.Symbol, ts, result.Output)
		}
	}
	return nil
}
