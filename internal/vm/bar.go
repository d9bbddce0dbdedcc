package vm

import "time"

// Bar is one OHLCV sample the VM executes the compiled program against,
// extended with an arbitrary embedder field map for additional global
// fields beyond O,H,L,C.
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	// Timestamp is the bar's own clock, surfaced to call sites as
	// CallContext.MarketTs. Zero when the source supplies none.
	Timestamp time.Time

	// Fields holds any embedder-declared globals beyond O,H,L,C,V, keyed
	// by the name passed to compiler.WithGlobals.
	Fields map[string]float64
}

// ohlcvAliases maps the spelled-out names of a bar's built-in fields
// onto the canonical O,H,L,C slot names the compiler pre-seeds. Neither
// the compiler nor Execute consults it, so a script addresses these
// fields only as O, H, L and C. V has no pre-seeded slot — it is only
// reachable through Fields — since the language's core four globals are
// fixed at O,H,L,C.
var ohlcvAliases = map[string]string{
	"O": "O", "OPEN": "O",
	"H": "H", "HIGH": "H",
	"L": "L", "LOW": "L",
	"C": "C", "CLOSE": "C",
}

// Value looks up one of the bar's O,H,L,C fields by canonical name
// (a target of ohlcvAliases); any other name yields 0.
func (b Bar) Value(canonical string) float64 {
	switch canonical {
	case "O":
		return b.Open
	case "H":
		return b.High
	case "L":
		return b.Low
	case "C":
		return b.Close
	default:
		return 0
	}
}
