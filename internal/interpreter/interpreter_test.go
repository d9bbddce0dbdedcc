package interpreter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"barlang/internal/compiler"
	"barlang/internal/vm"
)

func num(v float64) *compiler.Expr { return &compiler.Expr{Kind: compiler.ExprNumber, NumberValue: v} }
func ident(n string) *compiler.Expr {
	return &compiler.Expr{Kind: compiler.ExprIdentifier, Name: n}
}
func bin(op string, l, r *compiler.Expr) *compiler.Expr {
	return &compiler.Expr{Kind: compiler.ExprBinary, Operator: op, Left: l, Right: r}
}
func call(name string, args ...*compiler.Expr) *compiler.Expr {
	return &compiler.Expr{Kind: compiler.ExprCall, Callee: ident(name), Args: args}
}
func assign(op, name string, rhs *compiler.Expr) *compiler.Expr {
	return &compiler.Expr{Kind: compiler.ExprAssignment, Operator: op, Left: ident(name), Right: rhs}
}

// TestCompileAndRunThreeBarAverage drives a one-statement script — a rolling
// 2-bar average of the close price, displayed every bar — through
// Compile and NewVM across three bars, checking the VM persists the
// MA call site's ring buffer state across Execute calls the way a
// compiled program + long-lived VM is meant to.
func TestCompileAndRunThreeBarAverage(t *testing.T) {
	stmts := []compiler.Stmt{
		{
			Kind: compiler.StmtExpression,
			Expr: assign(":", "avg", call("MA", ident("C"), num(2))),
		},
	}

	program, err := Compile(stmts)
	require.NoError(t, err)

	machine, err := NewVM(program, VMOptions{})
	require.NoError(t, err)

	bars := []vm.Bar{
		{Open: 1, High: 1, Low: 1, Close: 10},
		{Open: 1, High: 1, Low: 1, Close: 20},
		{Open: 1, High: 1, Low: 1, Close: 30},
	}

	result, err := machine.Execute(bars[0])
	require.NoError(t, err)
	require.Nil(t, result.Output["avg"])

	result, err = machine.Execute(bars[1])
	require.NoError(t, err)
	require.InDelta(t, 15.0, result.Output["avg"], 1e-9)

	result, err = machine.Execute(bars[2])
	require.NoError(t, err)
	require.InDelta(t, 25.0, result.Output["avg"], 1e-9)
}

func TestCompileRejectsUndefinedVariable(t *testing.T) {
	stmts := []compiler.Stmt{
		{Kind: compiler.StmtExpression, Expr: ident("nope")},
	}
	_, err := Compile(stmts)
	require.Error(t, err)
}

func TestNewVMBuildsTwoIndependentlyRunnableVMs(t *testing.T) {
	stmts := []compiler.Stmt{
		{Kind: compiler.StmtExpression, Expr: bin("+", num(1), num(2))},
	}
	program, err := Compile(stmts)
	require.NoError(t, err)

	m1, err := NewVM(program, VMOptions{})
	require.NoError(t, err)
	m2, err := NewVM(program, VMOptions{})
	require.NoError(t, err)

	_, err = m1.Execute(vm.Bar{})
	require.NoError(t, err)
	_, err = m2.Execute(vm.Bar{})
	require.NoError(t, err)
}
