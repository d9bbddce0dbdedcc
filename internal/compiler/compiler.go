package compiler

import (
	"fmt"

	"barlang/internal/errs"
	"barlang/internal/ir"
)

// protectedWords is the set of identifiers forbidden on the LHS of an
// assignment or a VARIABLE: declaration (spec GLOSSARY "Protected word").
var protectedWords = map[string]bool{
	"O": true, "H": true, "L": true, "C": true,
	"VARIABLE": true, "IF": true, "THEN": true, "ELSE": true,
	"BEGIN": true, "END": true, "RETURN": true,
}

// Compiler walks a parsed tree and emits a single-function ir.Program,
// tracking constants, local/global slots, labels, and stack depth as it
// goes, dispatching on tagged-union Kind fields instead of a Visitor
// pattern.
type Compiler struct {
	program *ir.Program

	locals       map[string]int
	localNames   []string
	instructions []ir.Instruction

	labelCounter int
	nextInstrID  int

	stackDepth    int
	maxStackDepth int

	debug bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDebugInfo enables copying source locations into instruction.Extra.Loc.
func WithDebugInfo() Option {
	return func(c *Compiler) { c.debug = true }
}

// WithGlobals pre-reserves additional embedder-declared global fields
// beyond O,H,L,C, in the order given.
func WithGlobals(names ...string) Option {
	return func(c *Compiler) {
		for _, n := range names {
			c.program.ReserveGlobal(n)
		}
	}
}

// New constructs a Compiler with O,H,L,C pre-seeded at slots 0..3.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		program: ir.NewProgram(),
		locals:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile lowers a top-level statement list into a complete ir.Program.
func (c *Compiler) Compile(stmts []Stmt) (*ir.Program, error) {
	if err := c.compileBody(stmts, true); err != nil {
		return nil, err
	}
	c.program.Main.Instructions = c.instructions
	c.program.Main.LocalCount = len(c.localNames)
	c.program.Main.MaxStackDepth = c.maxStackDepth
	c.program.LocalNames = c.localNames
	if err := ir.Validate(c.program); err != nil {
		return nil, err
	}
	return c.program, nil
}

func (c *Compiler) compileBody(stmts []Stmt, topLevel bool) error {
	for i, s := range stmts {
		last := topLevel && i == len(stmts)-1
		if err := c.lowerStmt(s, last); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) lowerStmt(s Stmt, last bool) error {
	switch s.Kind {
	case StmtExpression:
		if err := c.lowerExpr(s.Expr); err != nil {
			return err
		}
		if exprLeavesValue(s.Expr) && !last {
			c.emit(ir.OpPop, ir.Operand{}, s.Loc, "")
		}
		return nil

	case StmtVarDecl:
		for _, d := range s.Decls {
			if protectedWords[d.Name] {
				return c.errAt(errs.KindInvalidAssignment,
					fmt.Sprintf("cannot declare protected name %q", d.Name), d.Loc)
			}
			slot := c.program.ReserveGlobal(d.Name)
			if d.Init != nil {
				if err := c.lowerExpr(d.Init); err != nil {
					return err
				}
			} else {
				c.emitLoadConst(nil, d.Loc)
			}
			c.emit(ir.OpInitGlobal, ir.Operand{Index: slot}, d.Loc, "")
		}
		return nil

	case StmtIf:
		if err := c.lowerExpr(s.Test); err != nil {
			return err
		}
		lElse := c.newLabel()
		lEnd := c.newLabel()
		c.emit(ir.OpJumpIfFalse, ir.Operand{Label: lElse}, s.Loc, "")
		if s.Then != nil {
			if err := c.lowerStmt(*s.Then, false); err != nil {
				return err
			}
		}
		c.emit(ir.OpJump, ir.Operand{Label: lEnd}, s.Loc, "")
		c.placeLabel(lElse, s.Loc)
		if s.Else != nil {
			if err := c.lowerStmt(*s.Else, false); err != nil {
				return err
			}
		}
		c.placeLabel(lEnd, s.Loc)
		return nil

	case StmtBlock:
		return c.compileBody(s.Body, false)

	case StmtReturn:
		if s.Arg != nil {
			if err := c.lowerExpr(s.Arg); err != nil {
				return err
			}
		} else {
			c.emitLoadConst(nil, s.Loc)
		}
		c.emit(ir.OpReturn, ir.Operand{}, s.Loc, "")
		return nil

	default:
		return c.errAt(errs.KindRuntimeError, "unknown statement kind", s.Loc)
	}
}

// exprLeavesValue reports whether an expression's compiled form leaves a
// value on the stack, i.e. whether a non-last expression statement using
// it needs a balancing POP. Both assignment forms net to zero: `:=` emits
// a single STORE that consumes the computed value, and `:` emits DUP,
// then STORE, then STORE_OUTPUT — the duplicate made by DUP is exactly
// consumed by STORE_OUTPUT's own pop, so nothing survives on the stack
// either way. Every non-assignment expression nets +1 and leaves a value.
func exprLeavesValue(e *Expr) bool {
	return e.Kind != ExprAssignment
}

func (c *Compiler) lowerExpr(e *Expr) error {
	switch e.Kind {
	case ExprNumber:
		c.emitLoadConst(e.NumberValue, e.Loc)
		return nil

	case ExprString:
		c.emitLoadConst(e.StringValue, e.Loc)
		return nil

	case ExprBool:
		c.emitLoadConst(e.BoolValue, e.Loc)
		return nil

	case ExprIdentifier:
		if slot, ok := c.locals[e.Name]; ok {
			c.emit(ir.OpLoadVar, ir.Operand{Index: slot}, e.Loc, "")
			return nil
		}
		if slot, ok := c.program.GlobalSlots[e.Name]; ok {
			c.emit(ir.OpLoadGlobal, ir.Operand{Index: slot}, e.Loc, "")
			return nil
		}
		return c.errAt(errs.KindUndefinedVariable, fmt.Sprintf("undefined variable %q", e.Name), e.Loc)

	case ExprBinary:
		if err := c.lowerExpr(e.Left); err != nil {
			return err
		}
		if err := c.lowerExpr(e.Right); err != nil {
			return err
		}
		op, ok := binaryOp[e.Operator]
		if !ok {
			return c.errAt(errs.KindInvalidOperator, fmt.Sprintf("unknown binary operator %q", e.Operator), e.Loc)
		}
		c.emit(op, ir.Operand{}, e.Loc, "")
		return nil

	case ExprUnary:
		if err := c.lowerExpr(e.Operand); err != nil {
			return err
		}
		switch e.Operator {
		case "+":
			c.emit(ir.OpUnaryPlus, ir.Operand{}, e.Loc, "")
		case "-":
			c.emit(ir.OpUnaryMinus, ir.Operand{}, e.Loc, "")
		default:
			return c.errAt(errs.KindInvalidOperator, fmt.Sprintf("unknown unary operator %q", e.Operator), e.Loc)
		}
		return nil

	case ExprAssignment:
		return c.lowerAssignment(e)

	case ExprCall:
		return c.lowerCall(e)

	case ExprMember:
		// Compiling a member expression always fails today;
		// the language has no object values to access a member of.
		return c.errAt(errs.KindRuntimeError, "member expressions are not compilable", e.Loc)

	default:
		return c.errAt(errs.KindRuntimeError, "unknown expression kind", e.Loc)
	}
}

var binaryOp = map[string]ir.OpCode{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv,
	">": ir.OpGT, "<": ir.OpLT, ">=": ir.OpGTE, "<=": ir.OpLTE,
	"=": ir.OpEQ, "<>": ir.OpNEQ,
	"&&": ir.OpAnd, "||": ir.OpOr,
}

func (c *Compiler) lowerAssignment(e *Expr) error {
	if e.Left.Kind != ExprIdentifier {
		return c.errAt(errs.KindInvalidAssignment, "assignment target must be an identifier", e.Loc)
	}
	name := e.Left.Name
	if protectedWords[name] {
		return c.errAt(errs.KindInvalidAssignment, fmt.Sprintf("cannot assign to protected name %q", name), e.Loc)
	}

	switch e.Operator {
	case ":=":
		if err := c.lowerExpr(e.Right); err != nil {
			return err
		}
		c.storeIdentifier(name, e.Loc)
		return nil

	case ":":
		if err := c.lowerExpr(e.Right); err != nil {
			return err
		}
		c.emit(ir.OpDup, ir.Operand{}, e.Loc, "")
		c.storeIdentifier(name, e.Loc)
		c.emit(ir.OpStoreOutput, ir.Operand{}, e.Loc, name)
		return nil

	default:
		return c.errAt(errs.KindInvalidOperator, fmt.Sprintf("unknown assignment operator %q", e.Operator), e.Loc)
	}
}

// storeIdentifier emits STORE_GLOBAL if name already names a global slot,
// otherwise allocates (or reuses) a local slot and emits STORE_VAR.
func (c *Compiler) storeIdentifier(name string, loc *Loc) {
	if slot, ok := c.program.GlobalSlots[name]; ok {
		c.emit(ir.OpStoreGlobal, ir.Operand{Index: slot}, loc, "")
		return
	}
	slot, ok := c.locals[name]
	if !ok {
		slot = len(c.localNames)
		c.locals[name] = slot
		c.localNames = append(c.localNames, name)
	}
	c.emit(ir.OpStoreVar, ir.Operand{Index: slot}, loc, "")
}

func (c *Compiler) lowerCall(e *Expr) error {
	if e.Callee.Kind == ExprIdentifier {
		for _, arg := range e.Args {
			if err := c.lowerExpr(arg); err != nil {
				return err
			}
		}
		c.emitCall(ir.OpCallBuiltin, ir.CallOperand{Name: e.Callee.Name, ArgCount: len(e.Args)}, e.Loc)
		return nil
	}

	if err := c.lowerExpr(e.Callee); err != nil {
		return err
	}
	for _, arg := range e.Args {
		if err := c.lowerExpr(arg); err != nil {
			return err
		}
	}
	c.emitCall(ir.OpCallFunc, ir.CallOperand{ArgCount: len(e.Args)}, e.Loc)
	return nil
}

// --- emission & bookkeeping -------------------------------------------------

func (c *Compiler) nextID() int {
	c.nextInstrID++
	return c.nextInstrID
}

func (c *Compiler) emitLoadConst(v interface{}, loc *Loc) {
	idx := c.program.AddConstant(v)
	c.emit(ir.OpLoadConst, ir.Operand{Index: idx}, loc, "")
}

func (c *Compiler) emit(op ir.OpCode, operand ir.Operand, loc *Loc, operandName string) {
	instr := ir.Instruction{
		ID:      c.nextID(),
		Op:      op,
		Operand: operand,
	}
	if operandName != "" {
		instr.Extra.OperandName = operandName
	}
	if c.debug && loc != nil {
		instr.Extra.Loc = &ir.Loc{Line: loc.Line, Column: loc.Column}
	}
	c.instructions = append(c.instructions, instr)

	pop, push := op.StackEffect()
	c.applyStackEffect(pop, push)
}

func (c *Compiler) emitCall(op ir.OpCode, call ir.CallOperand, loc *Loc) {
	instr := ir.Instruction{
		ID:      c.nextID(),
		Op:      op,
		Operand: ir.Operand{Call: call},
	}
	if c.debug && loc != nil {
		instr.Extra.Loc = &ir.Loc{Line: loc.Line, Column: loc.Column}
	}
	c.instructions = append(c.instructions, instr)

	var pop int
	if op == ir.OpCallFunc {
		pop = call.ArgCount + 1
	} else {
		pop = call.ArgCount
	}
	c.applyStackEffect(pop, 1)
}

func (c *Compiler) applyStackEffect(pop, push int) {
	c.stackDepth -= pop
	if c.stackDepth < 0 {
		// Internal compiler error: an opcode sequence popping more than the
		// lowering logic pushed is a bug in the compiler, not in the program
		// being compiled.
		panic(fmt.Sprintf("internal compiler error: stack depth went negative (pop=%d push=%d)", pop, push))
	}
	c.stackDepth += push
	if c.stackDepth > c.maxStackDepth {
		c.maxStackDepth = c.stackDepth
	}
}

func (c *Compiler) newLabel() string {
	c.labelCounter++
	return fmt.Sprintf("L%d", c.labelCounter)
}

// placeLabel records the label's position as the current instruction
// count and emits the NOP landing pad.
func (c *Compiler) placeLabel(name string, loc *Loc) {
	c.program.Labels[name] = len(c.instructions)
	c.emit(ir.OpNop, ir.Operand{}, loc, "")
}

func (c *Compiler) errAt(kind errs.Kind, msg string, loc *Loc) error {
	e := errs.New(kind, msg)
	if loc != nil {
		e = e.WithLocation(loc.Line, loc.Column)
	}
	return e
}
