// Package tsoutput records the per-bar Output map a vm.Result carries
// into a labeled time series per output name, so an embedder running a
// multi-bar replay can retrieve the full run afterward instead of only
// seeing the latest bar's values. A Series holds parallel Data/Index
// slices behind the read/append access pattern a live recorder needs.
package tsoutput

import (
	"sync"
	"time"

	"barlang/internal/vm"
)

// Series is one output name's recorded values across a replay, indexed
// by bar timestamp, oldest first.
type Series struct {
	Name  string
	Index []time.Time
	Data  []vm.Value
}

// Len reports the number of recorded points.
func (s *Series) Len() int { return len(s.Data) }

// At returns the i-th recorded (timestamp, value) pair.
func (s *Series) At(i int) (time.Time, vm.Value) { return s.Index[i], s.Data[i] }

// ToFloat64Array converts the series to a float64 slice, skipping bars
// where the output was never written or was non-numeric — null
// propagation means an indicator frequently has no value for its
// first N bars.
func (s *Series) ToFloat64Array() []float64 {
	out := make([]float64, 0, len(s.Data))
	for _, v := range s.Data {
		if f, ok := vm.AsFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// Last returns the most recently recorded value, or nil if the series is
// empty.
func (s *Series) Last() vm.Value {
	if len(s.Data) == 0 {
		return nil
	}
	return s.Data[len(s.Data)-1]
}

// Recorder accumulates one Series per (symbol, output name) pair across
// any number of Record calls. Safe for concurrent use by multiple
// runner goroutines recording different symbols.
type Recorder struct {
	mu     sync.Mutex
	series map[string]map[string]*Series // symbol -> output name -> series
}

// NewRecorder builds an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{series: make(map[string]map[string]*Series)}
}

// Record appends one bar's worth of output values for symbol at
// timestamp t. Output names this symbol has not written before start a
// new Series; names the script didn't write this bar are left absent
// from that bar's point rather than backfilled with a sentinel, since
// vm.Result.Output only contains names the script actually assigned
// via `:` on this call.
func (r *Recorder) Record(symbol string, t time.Time, output map[string]vm.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bySymbol, ok := r.series[symbol]
	if !ok {
		bySymbol = make(map[string]*Series)
		r.series[symbol] = bySymbol
	}
	for name, value := range output {
		s, ok := bySymbol[name]
		if !ok {
			s = &Series{Name: name}
			bySymbol[name] = s
		}
		s.Index = append(s.Index, t)
		s.Data = append(s.Data, value)
	}
}

// Series returns the recorded series for (symbol, name), or nil if
// nothing was ever recorded under that pair.
func (r *Recorder) Series(symbol, name string) *Series {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySymbol, ok := r.series[symbol]
	if !ok {
		return nil
	}
	return bySymbol[name]
}

// Names returns every output name recorded for symbol.
func (r *Recorder) Names(symbol string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySymbol, ok := r.series[symbol]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(bySymbol))
	for name := range bySymbol {
		names = append(names, name)
	}
	return names
}

// Symbols returns every symbol that has had at least one Record call.
func (r *Recorder) Symbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	symbols := make([]string, 0, len(r.series))
	for sym := range r.series {
		symbols = append(symbols, sym)
	}
	return symbols
}
