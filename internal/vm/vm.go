package vm

import (
	"fmt"
	"time"

	"barlang/internal/errs"
	"barlang/internal/ir"
)

// defaultMaxStackSize bounds runaway stack growth from a pathological
// program; the compiler's own MaxStackDepth is normally far smaller, but
// this is the VM's independent backstop.
const defaultMaxStackSize = 4096

// Caller is the minimal surface the VM needs from a builtin dispatcher;
// satisfied by *registry.Registry without vm importing registry (which
// itself imports vm for Value/Bar), avoiding an import cycle.
type Caller interface {
	Call(name string, args []Value, ctx CallContext) (Value, error)
}

// CallContext is the payload a Caller's dispatched function receives for
// one CALL_BUILTIN site. It is a plain struct (not registry.Context)
// so this package has no reverse dependency on internal/registry.
// Deliberately carries no Bar: O,H,L,C are ordinary globals, and any
// builtin that needs a bar field (e.g. ISUP/ISDOWN) takes it as a
// regular argument instead.
type CallContext struct {
	MarketTs time.Time
	Log      Logger
	CallID   int
	State    interface{}
	SetState func(interface{})
}

// Logger is the minimal structured-logging surface the VM uses, matching
// internal/logging.Logger's method set so embedders can pass either one
// in or a no-op stub in tests without this package importing logging.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}

// Options configures a VM.
type Options struct {
	Logger       Logger
	MaxStackSize int
}

// Result is what one Execute call reports back to the embedder: the
// named outputs recorded via `:`, every local and global by name for
// inspection/debugging, and the raw value the program's last statement
// produced.
type Result struct {
	Output     map[string]Value
	Vars       map[string]Value
	GlobalVars map[string]Value
	LastResult Value
}

// VM executes one compiled ir.Program repeatedly, once per Execute(bar)
// call, threading per-call-site state across calls. Array-based
// globals and a flat-stack dispatch loop, with no object graph, call
// frames, or module system — this interpreter has exactly one function
// and no user-defined calls.
type VM struct {
	program  *ir.Program
	caller   Caller
	opts     Options
	maxStack int

	stack []Value

	globals       []Value
	globalInit    []bool
	locals        []Value
	callState     map[int]interface{}
	lastResult    Value
}

// New constructs a VM bound to a compiled program and a builtin caller.
func New(program *ir.Program, caller Caller, opts Options) *VM {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	maxStack := opts.MaxStackSize
	if maxStack <= 0 {
		maxStack = defaultMaxStackSize
	}
	return &VM{
		program:    program,
		caller:     caller,
		opts:       opts,
		maxStack:   maxStack,
		globals:    make([]Value, program.Main.GlobalCount),
		globalInit: make([]bool, program.Main.GlobalCount),
		locals:     make([]Value, program.Main.LocalCount),
		callState:  make(map[int]interface{}),
	}
}

// Execute runs the program against one bar: locals reset, O/H/L/C
// slots refreshed from the bar, call-site state and already-initialized
// globals carried over from the prior call.
func (m *VM) Execute(bar Bar) (*Result, error) {
	for i := range m.locals {
		m.locals[i] = nil
	}
	m.lastResult = nil
	output := make(map[string]Value)

	if len(m.globals) > 0 {
		m.globals[0] = bar.Open
		m.globals[1] = bar.High
		m.globals[2] = bar.Low
		m.globals[3] = bar.Close
		m.globalInit[0], m.globalInit[1], m.globalInit[2], m.globalInit[3] = true, true, true, true
	}
	for name, v := range bar.Fields {
		if slot, ok := m.program.GlobalSlots[name]; ok {
			m.globals[slot] = v
			m.globalInit[slot] = true
		}
	}

	m.stack = m.stack[:0]

	instrs := m.program.Main.Instructions
	for ip := 0; ip < len(instrs); ip++ {
		instr := instrs[ip]
		next, err := m.step(instr, bar, output)
		if err != nil {
			return nil, m.withLocation(err, instr)
		}
		if next >= 0 {
			ip = next - 1 // loop's ip++ advances to `next`
		}
	}
	if m.lastResult == nil && len(m.stack) > 0 {
		// No RETURN supplied a value: report what the last statement left.
		m.lastResult = m.stack[len(m.stack)-1]
	}

	return m.buildResult(output), nil
}

// step executes one instruction. It returns the instruction index to
// jump to next, or -1 to fall through to ip+1.
func (m *VM) step(instr ir.Instruction, bar Bar, output map[string]Value) (int, error) {
	switch instr.Op {
	case ir.OpLoadConst:
		return -1, m.push(m.program.Constants[instr.Operand.Index])

	case ir.OpLoadVar:
		return -1, m.push(m.locals[instr.Operand.Index])

	case ir.OpLoadGlobal:
		return -1, m.push(m.globals[instr.Operand.Index])

	case ir.OpStoreVar:
		v, err := m.pop()
		if err != nil {
			return -1, err
		}
		m.locals[instr.Operand.Index] = v
		return -1, nil

	case ir.OpStoreGlobal:
		v, err := m.pop()
		if err != nil {
			return -1, err
		}
		m.globals[instr.Operand.Index] = v
		return -1, nil

	case ir.OpInitGlobal:
		v, err := m.pop()
		if err != nil {
			return -1, err
		}
		idx := instr.Operand.Index
		if !m.globalInit[idx] {
			m.globals[idx] = v
			m.globalInit[idx] = true
		}
		return -1, nil

	case ir.OpStoreOutput:
		v, err := m.pop()
		if err != nil {
			return -1, err
		}
		output[instr.Extra.OperandName] = v
		return -1, nil

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		return -1, m.binaryArith(instr.Op)

	case ir.OpUnaryPlus, ir.OpUnaryMinus:
		return -1, m.unaryArith(instr.Op)

	case ir.OpGT, ir.OpLT, ir.OpGTE, ir.OpLTE, ir.OpEQ, ir.OpNEQ:
		return -1, m.compare(instr.Op)

	case ir.OpAnd, ir.OpOr:
		return -1, m.logical(instr.Op)

	case ir.OpJump:
		return m.program.Labels[instr.Operand.Label], nil

	case ir.OpJumpIfFalse:
		v, err := m.pop()
		if err != nil {
			return -1, err
		}
		if !Truthy(v) {
			return m.program.Labels[instr.Operand.Label], nil
		}
		return -1, nil

	case ir.OpJumpIfTrue:
		v, err := m.pop()
		if err != nil {
			return -1, err
		}
		if Truthy(v) {
			return m.program.Labels[instr.Operand.Label], nil
		}
		return -1, nil

	case ir.OpCallBuiltin:
		return -1, m.callBuiltin(instr, bar)

	case ir.OpCallFunc:
		// Reserved: the language has no user-defined functions. The
		// compiler emits CALL_FUNC only for a call whose callee is not an
		// identifier; executing it always fails.
		return -1, errs.New(errs.KindUnimplementedFeature, "CALL_FUNC is not implemented")

	case ir.OpPop:
		_, err := m.pop()
		return -1, err

	case ir.OpDup:
		v, err := m.peek()
		if err != nil {
			return -1, err
		}
		return -1, m.push(v)

	case ir.OpSwap:
		if len(m.stack) < 2 {
			return -1, errs.New(errs.KindRuntimeError, "stack underflow on SWAP")
		}
		n := len(m.stack)
		m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]
		return -1, nil

	case ir.OpReturn:
		v, err := m.pop()
		if err != nil {
			return -1, err
		}
		m.lastResult = v
		return len(m.program.Main.Instructions), nil

	case ir.OpNop:
		return -1, nil

	default:
		return -1, errs.New(errs.KindRuntimeError, fmt.Sprintf("unknown opcode %s", instr.Op))
	}
}

func (m *VM) callBuiltin(instr ir.Instruction, bar Bar) error {
	argc := instr.Operand.Call.ArgCount
	if len(m.stack) < argc {
		return errs.New(errs.KindRuntimeError, "stack underflow on CALL_BUILTIN")
	}
	args := make([]Value, argc)
	copy(args, m.stack[len(m.stack)-argc:])
	m.stack = m.stack[:len(m.stack)-argc]

	callID := instr.ID
	ctx := CallContext{
		MarketTs: bar.Timestamp,
		Log:      m.opts.Logger,
		CallID:   callID,
		State:    m.callState[callID],
		SetState: func(s interface{}) {
			m.callState[callID] = s
		},
	}
	result, err := m.caller.Call(instr.Operand.Call.Name, args, ctx)
	if err != nil {
		return err
	}
	return m.push(result)
}

func (m *VM) push(v Value) error {
	if len(m.stack) >= m.maxStack {
		return errs.New(errs.KindRuntimeError, "stack overflow")
	}
	m.stack = append(m.stack, v)
	return nil
}

func (m *VM) pop() (Value, error) {
	if len(m.stack) == 0 {
		return nil, errs.New(errs.KindRuntimeError, "stack underflow")
	}
	n := len(m.stack) - 1
	v := m.stack[n]
	m.stack = m.stack[:n]
	return v, nil
}

func (m *VM) peek() (Value, error) {
	if len(m.stack) == 0 {
		return nil, errs.New(errs.KindRuntimeError, "stack underflow")
	}
	return m.stack[len(m.stack)-1], nil
}

func (m *VM) binaryArith(op ir.OpCode) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	if a == nil || b == nil {
		return m.push(nil)
	}
	af, aok := AsFloat(a)
	bf, bok := AsFloat(b)
	if !aok || !bok {
		return errs.New(errs.KindTypeError, fmt.Sprintf("cannot apply %s to %s and %s", op, TypeName(a), TypeName(b)))
	}
	var result float64
	switch op {
	case ir.OpAdd:
		result = af + bf
	case ir.OpSub:
		result = af - bf
	case ir.OpMul:
		result = af * bf
	case ir.OpDiv:
		if bf == 0 {
			return errs.New(errs.KindDivisionByZero, "division by zero")
		}
		result = af / bf
	}
	return m.push(result)
}

func (m *VM) unaryArith(op ir.OpCode) error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	if v == nil {
		return m.push(nil)
	}
	f, ok := AsFloat(v)
	if !ok {
		return errs.New(errs.KindTypeError, fmt.Sprintf("cannot apply %s to %s", op, TypeName(v)))
	}
	if op == ir.OpUnaryMinus {
		f = -f
	}
	return m.push(f)
}

func (m *VM) compare(op ir.OpCode) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	if op == ir.OpEQ {
		return m.push(Equal(a, b))
	}
	if op == ir.OpNEQ {
		return m.push(!Equal(a, b))
	}
	if a == nil || b == nil {
		return m.push(nil)
	}
	af, aok := AsFloat(a)
	bf, bok := AsFloat(b)
	if !aok || !bok {
		return errs.New(errs.KindTypeError, fmt.Sprintf("cannot compare %s and %s", TypeName(a), TypeName(b)))
	}
	var result bool
	switch op {
	case ir.OpGT:
		result = af > bf
	case ir.OpLT:
		result = af < bf
	case ir.OpGTE:
		result = af >= bf
	case ir.OpLTE:
		result = af <= bf
	}
	return m.push(result)
}

func (m *VM) logical(op ir.OpCode) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	var result bool
	if op == ir.OpAnd {
		result = Truthy(a) && Truthy(b)
	} else {
		result = Truthy(a) || Truthy(b)
	}
	return m.push(result)
}

func (m *VM) withLocation(err error, instr ir.Instruction) error {
	tagged, ok := err.(*errs.Error)
	if !ok || tagged.Location != nil || instr.Extra.Loc == nil {
		return err
	}
	return tagged.WithLocation(instr.Extra.Loc.Line, instr.Extra.Loc.Column)
}

func (m *VM) buildResult(output map[string]Value) *Result {
	vars := make(map[string]Value, len(m.program.LocalNames))
	for i, name := range m.program.LocalNames {
		vars[name] = m.locals[i]
	}
	globalVars := make(map[string]Value, len(m.program.GlobalNames))
	for i, name := range m.program.GlobalNames {
		globalVars[name] = m.globals[i]
	}
	return &Result{
		Output:     output,
		Vars:       vars,
		GlobalVars: globalVars,
		LastResult: m.lastResult,
	}
}
