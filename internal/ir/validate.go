package ir

import (
	"fmt"

	"barlang/internal/errs"
)

// Validate checks the structural invariants of a compiled Program:
// every LOAD_CONST/INIT_GLOBAL/LOAD_GLOBAL/STORE_GLOBAL
// operand indexes into Constants/the global slot table, every
// LOAD_VAR/STORE_VAR operand indexes into the local slot table, and every
// JUMP/JUMP_IF_FALSE/JUMP_IF_TRUE label resolves in Labels. A program that
// fails validation never reaches the VM: this is a compiler bug, not a
// runtime condition, so it returns errs.KindRuntimeError (or
// errs.KindUndefinedLabel for a jump whose label is missing).
func Validate(p *Program) error {
	if p.Main == nil {
		return errs.New(errs.KindRuntimeError, "program has no main function")
	}
	localCount := p.Main.LocalCount
	globalCount := len(p.GlobalNames)
	constCount := len(p.Constants)

	for _, instr := range p.Main.Instructions {
		switch instr.Op {
		case OpLoadConst:
			if instr.Operand.Index < 0 || instr.Operand.Index >= constCount {
				return instrErr(instr, fmt.Sprintf("constant index %d out of range [0,%d)", instr.Operand.Index, constCount))
			}
		case OpLoadVar, OpStoreVar:
			if instr.Operand.Index < 0 || instr.Operand.Index >= localCount {
				return instrErr(instr, fmt.Sprintf("local slot %d out of range [0,%d)", instr.Operand.Index, localCount))
			}
		case OpLoadGlobal, OpStoreGlobal, OpInitGlobal:
			if instr.Operand.Index < 0 || instr.Operand.Index >= globalCount {
				return instrErr(instr, fmt.Sprintf("global slot %d out of range [0,%d)", instr.Operand.Index, globalCount))
			}
		case OpJump, OpJumpIfFalse, OpJumpIfTrue:
			if _, ok := p.Labels[instr.Operand.Label]; !ok {
				e := errs.New(errs.KindUndefinedLabel, fmt.Sprintf("undefined label %q", instr.Operand.Label)).
					WithContext(map[string]interface{}{
						"instruction_id": instr.ID,
						"opcode":         instr.Op.String(),
						"label":          instr.Operand.Label,
					})
				if instr.Extra.Loc != nil {
					e = e.WithLocation(instr.Extra.Loc.Line, instr.Extra.Loc.Column)
				}
				return e
			}
		case OpCallBuiltin:
			if instr.Operand.Call.Name == "" {
				return instrErr(instr, "CALL_BUILTIN missing registry name")
			}
		}
	}
	return nil
}

func instrErr(instr Instruction, msg string) error {
	e := errs.New(errs.KindRuntimeError, msg).WithContext(map[string]interface{}{
		"instruction_id": instr.ID,
		"opcode":         instr.Op.String(),
	})
	if instr.Extra.Loc != nil {
		e = e.WithLocation(instr.Extra.Loc.Line, instr.Extra.Loc.Column)
	}
	return e
}
