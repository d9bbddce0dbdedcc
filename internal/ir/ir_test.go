package ir

import "testing"

func TestNewProgramPreSeedsOHLC(t *testing.T) {
	p := NewProgram()
	want := map[string]int{"O": 0, "H": 1, "L": 2, "C": 3}
	for name, slot := range want {
		if p.GlobalSlots[name] != slot {
			t.Fatalf("slot for %s = %d, want %d", name, p.GlobalSlots[name], slot)
		}
	}
	if got := p.Main.GlobalCount; got != 4 {
		t.Fatalf("GlobalCount = %d, want 4", got)
	}
}

func TestReserveGlobalReusesExistingSlot(t *testing.T) {
	p := NewProgram()
	first := p.ReserveGlobal("cnt")
	second := p.ReserveGlobal("cnt")
	if first != second {
		t.Fatalf("ReserveGlobal not idempotent: %d != %d", first, second)
	}
	oSlot := p.ReserveGlobal("O")
	if oSlot != 0 {
		t.Fatalf("re-reserving O returned %d, want 0", oSlot)
	}
}

func TestAddConstantAppendsWithoutDedup(t *testing.T) {
	p := NewProgram()
	i1 := p.AddConstant(1.0)
	i2 := p.AddConstant(1.0)
	if i1 == i2 {
		t.Fatalf("AddConstant deduplicated, want append-only per spec")
	}
}

func TestStackEffectTable(t *testing.T) {
	cases := []struct {
		op         OpCode
		pop, push  int
	}{
		{OpLoadConst, 0, 1},
		{OpAdd, 2, 1},
		{OpDup, 1, 2},
		{OpSwap, 2, 2},
		{OpPop, 1, 0},
		{OpJump, 0, 0},
		{OpJumpIfFalse, 1, 0},
	}
	for _, c := range cases {
		pop, push := c.op.StackEffect()
		if pop != c.pop || push != c.push {
			t.Errorf("%s.StackEffect() = (%d,%d), want (%d,%d)", c.op, pop, push, c.pop, c.push)
		}
	}
}
