package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"barlang/internal/errs"
	"barlang/internal/ir"
)

func num(v float64) *Expr  { return &Expr{Kind: ExprNumber, NumberValue: v} }
func ident(n string) *Expr { return &Expr{Kind: ExprIdentifier, Name: n} }

func bin(op string, l, r *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Operator: op, Left: l, Right: r}
}

func assign(op, name string, rhs *Expr) *Expr {
	return &Expr{Kind: ExprAssignment, Operator: op, Left: ident(name), Right: rhs}
}

func exprStmt(e *Expr) Stmt { return Stmt{Kind: StmtExpression, Expr: e} }

func TestAssignToProtectedNameIsRejected(t *testing.T) {
	c := New()
	_, err := c.Compile([]Stmt{exprStmt(assign(":=", "C", num(5)))})
	require.Error(t, err)
	e, ok := errs.As(err, errs.KindInvalidAssignment)
	require.True(t, ok, "want InvalidAssignment, got %v", err)
	require.Equal(t, errs.KindInvalidAssignment, e.Kind)
}

func TestUndefinedVariableIsRejected(t *testing.T) {
	c := New()
	_, err := c.Compile([]Stmt{exprStmt(ident("nope"))})
	require.Error(t, err)
	_, ok := errs.As(err, errs.KindUndefinedVariable)
	require.True(t, ok)
}

// Mirrors VARIABLE: cnt := 0; cnt := cnt + 1; cnt : cnt;
func TestCounterIncrementAndDisplayCompiles(t *testing.T) {
	c := New()
	prog, err := c.Compile([]Stmt{
		{Kind: StmtVarDecl, Decls: []VarDeclEntry{{Name: "cnt", Init: num(0)}}},
		exprStmt(assign(":=", "cnt", bin("+", ident("cnt"), num(1)))),
		exprStmt(assign(":", "cnt", ident("cnt"))),
	})
	require.NoError(t, err)
	require.NotNil(t, prog)

	slot, ok := prog.GlobalSlots["cnt"]
	require.True(t, ok)
	require.Equal(t, 4, slot) // after O,H,L,C

	// No POP should directly follow either assignment's final store:
	// both ":=" and ":" already net zero on the stack.
	var ops []ir.OpCode
	for _, instr := range prog.Main.Instructions {
		ops = append(ops, instr.Op)
	}
	require.NotContains(t, ops, ir.OpPop)
}

func TestIfElseEmitsResolvedLabels(t *testing.T) {
	c := New()
	thenStmt := Stmt{Kind: StmtBlock, Body: []Stmt{exprStmt(assign(":=", "x", num(1)))}}
	elseStmt := Stmt{Kind: StmtBlock, Body: []Stmt{exprStmt(assign(":=", "x", num(2)))}}
	prog, err := c.Compile([]Stmt{
		{Kind: StmtIf, Test: ident("C"), Then: &thenStmt, Else: &elseStmt},
	})
	require.NoError(t, err)

	for _, instr := range prog.Main.Instructions {
		switch instr.Op {
		case ir.OpJump, ir.OpJumpIfFalse, ir.OpJumpIfTrue:
			_, ok := prog.Labels[instr.Operand.Label]
			require.True(t, ok, "unresolved label %q", instr.Operand.Label)
		}
	}
}

func TestMemberExpressionFailsToCompile(t *testing.T) {
	c := New()
	member := &Expr{Kind: ExprMember, Object: ident("C"), Property: "foo"}
	_, err := c.Compile([]Stmt{exprStmt(member)})
	require.Error(t, err)
	_, ok := errs.As(err, errs.KindRuntimeError)
	require.True(t, ok)
}

func TestNonLastExpressionStatementGetsBalancingPop(t *testing.T) {
	c := New()
	prog, err := c.Compile([]Stmt{
		exprStmt(bin("+", num(1), num(2))), // non-last, leaves a value: needs POP
		exprStmt(num(3)),                   // last: no POP
	})
	require.NoError(t, err)

	popCount := 0
	for _, instr := range prog.Main.Instructions {
		if instr.Op == ir.OpPop {
			popCount++
		}
	}
	require.Equal(t, 1, popCount)
}

func TestReserveGlobalViaWithGlobalsOption(t *testing.T) {
	c := New(WithGlobals("V"))
	_, ok := c.program.GlobalSlots["V"]
	require.True(t, ok)
}
