package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"barlang/internal/errs"
	"barlang/internal/ir"
)

// stubCaller is a minimal Caller for tests that don't need the real
// indicator registry: ECHO returns its first argument, and STATEFUL
// counts its own calls in its per-call-site state.
type stubCaller struct {
	calls int
}

func (s *stubCaller) Call(name string, args []Value, ctx CallContext) (Value, error) {
	s.calls++
	switch name {
	case "ECHO":
		return args[0], nil
	case "STATEFUL":
		n, _ := ctx.State.(int)
		n++
		ctx.SetState(n)
		return float64(n), nil
	default:
		return nil, errs.New(errs.KindInvalidFunctionCall, "unknown builtin "+name)
	}
}

func program(instrs ...ir.Instruction) *ir.Program {
	p := ir.NewProgram()
	p.Main.Instructions = instrs
	p.Main.LocalCount = 4
	return p
}

func TestExecuteRefreshesOHLCGlobalsEveryCall(t *testing.T) {
	prog := program(
		ir.Instruction{ID: 1, Op: ir.OpLoadGlobal, Operand: ir.Operand{Index: 3}}, // C
		ir.Instruction{ID: 2, Op: ir.OpStoreOutput, Extra: ir.Extra{OperandName: "close"}},
	)
	m := New(prog, &stubCaller{}, Options{})

	result, err := m.Execute(Bar{Close: 10})
	require.NoError(t, err)
	require.Equal(t, 10.0, result.Output["close"])

	result, err = m.Execute(Bar{Close: 20})
	require.NoError(t, err)
	require.Equal(t, 20.0, result.Output["close"])
}

func TestInitGlobalOnlyFiresOnce(t *testing.T) {
	prog := ir.NewProgram()
	slot := prog.ReserveGlobal("cnt")
	prog.Main.Instructions = []ir.Instruction{
		{ID: 1, Op: ir.OpLoadConst, Operand: ir.Operand{Index: prog.AddConstant(0.0)}},
		{ID: 2, Op: ir.OpInitGlobal, Operand: ir.Operand{Index: slot}},
		{ID: 3, Op: ir.OpLoadGlobal, Operand: ir.Operand{Index: slot}},
		{ID: 4, Op: ir.OpLoadConst, Operand: ir.Operand{Index: prog.AddConstant(1.0)}},
		{ID: 5, Op: ir.OpAdd},
		{ID: 6, Op: ir.OpStoreGlobal, Operand: ir.Operand{Index: slot}},
	}
	prog.Main.LocalCount = 0
	m := New(prog, &stubCaller{}, Options{})

	_, err := m.Execute(Bar{})
	require.NoError(t, err)
	_, err = m.Execute(Bar{})
	require.NoError(t, err)
	result, err := m.Execute(Bar{})
	require.NoError(t, err)

	// INIT_GLOBAL only seeded cnt to 0 on the first call; the increment
	// persists across calls since globals survive Execute, so three calls
	// leave it at 3.
	require.Equal(t, 3.0, result.GlobalVars["cnt"])
}

func TestCallBuiltinPersistsPerCallSiteState(t *testing.T) {
	prog := program(
		ir.Instruction{ID: 7, Op: ir.OpCallBuiltin, Operand: ir.Operand{Call: ir.CallOperand{Name: "STATEFUL", ArgCount: 0}}},
		ir.Instruction{ID: 8, Op: ir.OpStoreOutput, Extra: ir.Extra{OperandName: "n"}},
	)
	m := New(prog, &stubCaller{}, Options{})

	r1, err := m.Execute(Bar{})
	require.NoError(t, err)
	require.Equal(t, 1.0, r1.Output["n"])

	r2, err := m.Execute(Bar{})
	require.NoError(t, err)
	require.Equal(t, 2.0, r2.Output["n"])
}

func TestDivisionByZeroIsTagged(t *testing.T) {
	prog := ir.NewProgram()
	prog.Constants = []interface{}{1.0, 0.0}
	prog.Main.Instructions = []ir.Instruction{
		{ID: 1, Op: ir.OpLoadConst, Operand: ir.Operand{Index: 0}},
		{ID: 2, Op: ir.OpLoadConst, Operand: ir.Operand{Index: 1}},
		{ID: 3, Op: ir.OpDiv},
		{ID: 4, Op: ir.OpPop},
	}
	m := New(prog, &stubCaller{}, Options{})

	_, err := m.Execute(Bar{})
	tagged, ok := errs.As(err, errs.KindDivisionByZero)
	require.True(t, ok)
	require.NotNil(t, tagged)
}

func TestArithmeticOnNullOperandPropagatesNull(t *testing.T) {
	prog := ir.NewProgram()
	prog.Constants = []interface{}{1.0, nil}
	prog.Main.Instructions = []ir.Instruction{
		{ID: 1, Op: ir.OpLoadConst, Operand: ir.Operand{Index: 0}},
		{ID: 2, Op: ir.OpLoadConst, Operand: ir.Operand{Index: 1}},
		{ID: 3, Op: ir.OpAdd},
		{ID: 4, Op: ir.OpStoreOutput, Extra: ir.Extra{OperandName: "x"}},
	}
	m := New(prog, &stubCaller{}, Options{})

	result, err := m.Execute(Bar{})
	require.NoError(t, err)
	require.Nil(t, result.Output["x"])
}

func TestUnaryMinusOnNullPassesThroughUnchanged(t *testing.T) {
	prog := ir.NewProgram()
	prog.Constants = []interface{}{nil}
	prog.Main.Instructions = []ir.Instruction{
		{ID: 1, Op: ir.OpLoadConst, Operand: ir.Operand{Index: 0}},
		{ID: 2, Op: ir.OpUnaryMinus},
		{ID: 3, Op: ir.OpStoreOutput, Extra: ir.Extra{OperandName: "x"}},
	}
	m := New(prog, &stubCaller{}, Options{})

	result, err := m.Execute(Bar{})
	require.NoError(t, err)
	require.Nil(t, result.Output["x"])
}

func TestComparisonOnNullOperandPropagatesNull(t *testing.T) {
	prog := ir.NewProgram()
	prog.Constants = []interface{}{1.0, nil}
	prog.Main.Instructions = []ir.Instruction{
		{ID: 1, Op: ir.OpLoadConst, Operand: ir.Operand{Index: 0}},
		{ID: 2, Op: ir.OpLoadConst, Operand: ir.Operand{Index: 1}},
		{ID: 3, Op: ir.OpGT},
		{ID: 4, Op: ir.OpStoreOutput, Extra: ir.Extra{OperandName: "x"}},
	}
	m := New(prog, &stubCaller{}, Options{})

	result, err := m.Execute(Bar{})
	require.NoError(t, err)
	require.Nil(t, result.Output["x"])
}

func TestExecuteWritesEmbedderFieldsIntoMatchingGlobalSlots(t *testing.T) {
	prog := ir.NewProgram()
	slot := prog.ReserveGlobal("V")
	prog.Main.Instructions = []ir.Instruction{
		{ID: 1, Op: ir.OpLoadGlobal, Operand: ir.Operand{Index: slot}},
		{ID: 2, Op: ir.OpStoreOutput, Extra: ir.Extra{OperandName: "v"}},
	}
	m := New(prog, &stubCaller{}, Options{})

	result, err := m.Execute(Bar{Fields: map[string]float64{"V": 42}})
	require.NoError(t, err)
	require.Equal(t, 42.0, result.Output["v"])
}

func TestStackUnderflowIsTagged(t *testing.T) {
	prog := program(ir.Instruction{ID: 1, Op: ir.OpPop})
	m := New(prog, &stubCaller{}, Options{})

	_, err := m.Execute(Bar{})
	_, ok := errs.As(err, errs.KindRuntimeError)
	require.True(t, ok)
}
