package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"barlang/internal/compiler"
	"barlang/internal/interpreter"
	"barlang/internal/tsoutput"
	"barlang/internal/vm"
)

// sliceSource replays a fixed slice of bars then reports end-of-stream.
type sliceSource struct {
	bars []vm.Bar
	pos  int
}

func (s *sliceSource) Next(ctx context.Context) (vm.Bar, bool, error) {
	if s.pos >= len(s.bars) {
		return vm.Bar{}, false, nil
	}
	bar := s.bars[s.pos]
	s.pos++
	return bar, true, nil
}

func (s *sliceSource) Close() error { return nil }

func TestRunReplaysEverySymbolToCompletion(t *testing.T) {
	stmts := []compiler.Stmt{
		{
			Kind: compiler.StmtExpression,
			Expr: &compiler.Expr{
				Kind:     compiler.ExprAssignment,
				Operator: ":",
				Left:     &compiler.Expr{Kind: compiler.ExprIdentifier, Name: "close"},
				Right:    &compiler.Expr{Kind: compiler.ExprIdentifier, Name: "C"},
			},
		},
	}
	program, err := interpreter.Compile(stmts)
	require.NoError(t, err)

	rec := tsoutput.NewRecorder()
	cfg := Config{
		Program: program,
		Targets: []Target{
			{Symbol: "AAPL", Source: &sliceSource{bars: []vm.Bar{{Close: 10}, {Close: 11}}}},
			{Symbol: "MSFT", Source: &sliceSource{bars: []vm.Bar{{Close: 20}}}},
		},
		Recorder: rec,
	}

	require.NoError(t, Run(context.Background(), cfg))

	aapl := rec.Series("AAPL", "close")
	require.NotNil(t, aapl)
	require.Equal(t, []float64{10, 11}, aapl.ToFloat64Array())

	msft := rec.Series("MSFT", "close")
	require.NotNil(t, msft)
	require.Equal(t, []float64{20}, msft.ToFloat64Array())
}
