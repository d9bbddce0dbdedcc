package ir

// Function is an ordered instruction stream plus the slot counts and
// stack-depth bound the compiler computed for it. The language has no
// user-defined functions, so a Program always holds exactly one: Main.
type Function struct {
	Instructions   []Instruction
	LocalCount     int
	GlobalCount    int
	MaxStackDepth  int
}

// Program is the compiler's output: one Main function, an interned
// constants vector, a label table, and the global-slot bookkeeping needed
// both by the VM (to pre-seed market-data slots) and by result reporting
// (to label globals/locals by name).
type Program struct {
	Main *Function

	Constants []interface{}

	// Labels maps a label id (assigned at compile time) to the instruction
	// index of the NOP placeholder emitted when the label was placed.
	Labels map[string]int

	// GlobalSlots maps a declared global's name to its slot index. Slots
	// 0..3 are always O, H, L, C in that order; embedder-declared fields
	// and VARIABLE: names follow.
	GlobalSlots map[string]int

	// GlobalNames is the reverse of GlobalSlots, indexed by slot, for
	// reporting globalVars by name in the execution result.
	GlobalNames []string

	// LocalNames is the reverse of the compiler's local-slot map, indexed
	// by slot, for reporting vars by name in the execution result.
	LocalNames []string
}

// NewProgram constructs an empty Program with pre-seeded O,H,L,C slots.
func NewProgram() *Program {
	p := &Program{
		Main:        &Function{},
		Constants:   nil,
		Labels:      make(map[string]int),
		GlobalSlots: make(map[string]int),
	}
	for _, name := range []string{"O", "H", "L", "C"} {
		p.ReserveGlobal(name)
	}
	return p
}

// ReserveGlobal allocates a new global slot for name if one does not
// already exist, returning the (possibly pre-existing) slot index: the
// compiler reuses the existing slot rather than re-adding.
func (p *Program) ReserveGlobal(name string) int {
	if slot, ok := p.GlobalSlots[name]; ok {
		return slot
	}
	slot := len(p.GlobalNames)
	p.GlobalSlots[name] = slot
	p.GlobalNames = append(p.GlobalNames, name)
	p.Main.GlobalCount = len(p.GlobalNames)
	return slot
}

// AddConstant appends val to the constants pool and returns its index;
// no deduplication is required.
func (p *Program) AddConstant(val interface{}) int {
	p.Constants = append(p.Constants, val)
	return len(p.Constants) - 1
}
