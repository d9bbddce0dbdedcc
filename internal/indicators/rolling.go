package indicators

import (
	"fmt"
	"math"

	"barlang/internal/errs"
	"barlang/internal/registry"
	"barlang/internal/vm"
)

// registerRollingWindow installs the fixed-window statistical family:
// MA, SUM, COUNT, HHV, LLV, HHVBARS, LLVBARS, AVEDEV, DEVSQ, VAR, VARP,
// STD, STDP, SLOPE, FORCAST, TRMA, TSMA, EMA2, EXIST, EVERY, LAST,
// LONGCROSS, FILTER. Each windowEntry call site owns one ring buffer
// sized to its period argument; LONGCROSS and LAST size theirs to N+1,
// and FILTER keeps a counter instead of a buffer.
func registerRollingWindow(reg *registry.Registry) error {
	entries := []registry.Entry{
		windowEntry("MA", func(vals []float64, sum float64) (float64, error) {
			return sum / float64(len(vals)), nil
		}),
		windowEntry("SUM", func(vals []float64, sum float64) (float64, error) {
			return sum, nil
		}),
		windowEntry("COUNT", func(vals []float64, _ float64) (float64, error) {
			n := 0
			for _, v := range vals {
				if v != 0 {
					n++
				}
			}
			return float64(n), nil
		}),
		windowEntry("HHV", func(vals []float64, _ float64) (float64, error) {
			return maxOf(vals), nil
		}),
		windowEntry("LLV", func(vals []float64, _ float64) (float64, error) {
			return minOf(vals), nil
		}),
		windowEntry("HHVBARS", func(vals []float64, _ float64) (float64, error) {
			return barsSinceExtreme(vals, true), nil
		}),
		windowEntry("LLVBARS", func(vals []float64, _ float64) (float64, error) {
			return barsSinceExtreme(vals, false), nil
		}),
		windowEntry("AVEDEV", func(vals []float64, sum float64) (float64, error) {
			mean := sum / float64(len(vals))
			var total float64
			for _, v := range vals {
				total += math.Abs(v - mean)
			}
			return total / float64(len(vals)), nil
		}),
		windowEntry("DEVSQ", func(vals []float64, sum float64) (float64, error) {
			mean := sum / float64(len(vals))
			var total float64
			for _, v := range vals {
				d := v - mean
				total += d * d
			}
			return total, nil
		}),
		windowEntry("VAR", func(vals []float64, sum float64) (float64, error) {
			return variance(vals, sum, 1), nil
		}),
		windowEntry("VARP", func(vals []float64, sum float64) (float64, error) {
			return variance(vals, sum, 0), nil
		}),
		windowEntry("STD", func(vals []float64, sum float64) (float64, error) {
			return math.Sqrt(variance(vals, sum, 1)), nil
		}),
		windowEntry("STDP", func(vals []float64, sum float64) (float64, error) {
			return math.Sqrt(variance(vals, sum, 0)), nil
		}),
		windowEntry("SLOPE", func(vals []float64, _ float64) (float64, error) {
			slope, _ := linearRegression(vals)
			return slope, nil
		}),
		windowEntry("FORCAST", func(vals []float64, _ float64) (float64, error) {
			slope, intercept := linearRegression(vals)
			return intercept + slope*float64(len(vals)-1), nil
		}),
		windowEntry("TRMA", func(vals []float64, _ float64) (float64, error) {
			return triangularMA(vals), nil
		}),
		windowEntry("TSMA", func(vals []float64, sum float64) (float64, error) {
			// Time-series (simple trailing) moving average: identical
			// definition to MA in this language's dialect, kept as a
			// distinct name for source compatibility.
			return sum / float64(len(vals)), nil
		}),
		windowEntry("EMA2", func(vals []float64, _ float64) (float64, error) {
			return emaOf(vals), nil
		}),
		windowEntry("EXIST", func(vals []float64, _ float64) (float64, error) {
			for _, v := range vals {
				if v != 0 {
					return 1, nil
				}
			}
			return 0, nil
		}),
		windowEntry("EVERY", func(vals []float64, _ float64) (float64, error) {
			for _, v := range vals {
				if v == 0 {
					return 0, nil
				}
			}
			return 1, nil
		}),
	}
	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	if err := reg.Register(longCrossEntry()); err != nil {
		return err
	}
	if err := reg.Register(filterEntry()); err != nil {
		return err
	}
	return reg.Register(lastEntry())
}

// windowEntry builds a 2-arg (value, period) rolling-window Entry whose
// reduce function receives the window's current contents (oldest-first)
// and its running sum, computed in O(1) by the underlying
// StatsRingBuffer.
func windowEntry(name string, reduce func(vals []float64, sum float64) (float64, error)) registry.Entry {
	return registry.Entry{
		Name:    name,
		MinArgs: 2,
		MaxArgs: 2,
		Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
			v, err := floatArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			n, err := intArg(name, args, 1)
			if err != nil {
				return nil, err
			}
			ws, err := getOrInitStatsWindow(ctx, n)
			if err != nil {
				return nil, err
			}
			ws.buf.Push(v)
			if ws.buf.Len() < n {
				return nil, nil // not enough history yet
			}
			return reduce(ws.buf.ToArray(), ws.buf.Sum())
		},
	}
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// barsSinceExtreme returns how many bars ago (0 = current bar) the
// window's max (high=true) or min (high=false) occurred.
func barsSinceExtreme(vals []float64, high bool) float64 {
	bestIdx := len(vals) - 1
	best := vals[bestIdx]
	for i := len(vals) - 2; i >= 0; i-- {
		if (high && vals[i] > best) || (!high && vals[i] < best) {
			best = vals[i]
			bestIdx = i
		}
	}
	return float64(len(vals) - 1 - bestIdx)
}

func variance(vals []float64, sum float64, ddof int) float64 {
	n := len(vals)
	if n-ddof <= 0 {
		return 0
	}
	mean := sum / float64(n)
	var total float64
	for _, v := range vals {
		d := v - mean
		total += d * d
	}
	return total / float64(n-ddof)
}

// linearRegression fits y = intercept + slope*x over vals indexed
// 0..len(vals)-1 (oldest to newest), the standard SLOPE/FORCAST basis.
func linearRegression(vals []float64) (slope, intercept float64) {
	n := float64(len(vals))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range vals {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// triangularMA weights the window's middle more heavily than its edges.
func triangularMA(vals []float64) float64 {
	n := len(vals)
	var weightedSum, weightTotal float64
	for i, v := range vals {
		// Triangular weight peaks at the center index.
		dist := i
		if n-1-i < dist {
			dist = n - 1 - i
		}
		weight := float64(dist + 1)
		weightedSum += v * weight
		weightTotal += weight
	}
	return weightedSum / weightTotal
}

func emaOf(vals []float64) float64 {
	alpha := 2.0 / float64(len(vals)+1)
	ema := vals[0]
	for _, v := range vals[1:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema
}

// longCrossEntry implements LONGCROSS(A, B, N): true when A has stayed
// below B for the prior N bars and A has just crossed above B this bar.
func longCrossEntry() registry.Entry {
	return registry.Entry{
		Name:    "LONGCROSS",
		MinArgs: 3,
		MaxArgs: 3,
		Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
			a, err := floatArg("LONGCROSS", args, 0)
			if err != nil {
				return nil, err
			}
			b, err := floatArg("LONGCROSS", args, 1)
			if err != nil {
				return nil, err
			}
			n, err := intArg("LONGCROSS", args, 2)
			if err != nil {
				return nil, err
			}
			ws, err := getOrInitWindow(ctx, n+1)
			if err != nil {
				return nil, err
			}
			ws.buf.Push(a - b)
			diffs := ws.buf.ToArray()
			if len(diffs) < n+1 {
				return 0.0, nil
			}
			for _, d := range diffs[:len(diffs)-1] {
				if d >= 0 {
					return 0.0, nil
				}
			}
			if diffs[len(diffs)-1] > 0 {
				return 1.0, nil
			}
			return 0.0, nil
		},
	}
}

// filterEntry implements FILTER(COND, N): suppresses repeated truthy
// signals within N bars of the last one, a common TA debounce idiom.
func filterEntry() registry.Entry {
	return registry.Entry{
		Name:    "FILTER",
		MinArgs: 2,
		MaxArgs: 2,
		Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
			cond := vm.Truthy(args[0])
			n, err := intArg("FILTER", args, 1)
			if err != nil {
				return nil, err
			}
			cs := getOrInitCounter(ctx)
			if !cond {
				cs.barsSince++
				return 0.0, nil
			}
			if cs.haveEvent && cs.barsSince < n {
				cs.barsSince++
				return 0.0, nil
			}
			cs.haveEvent = true
			cs.barsSince = 0
			return 1.0, nil
		},
	}
}

// lastEntry implements LAST(COND, N1, N2): 1 iff COND has been
// continuously true from N1 bars ago through N2 bars ago inclusive
// (N1 >= N2 >= 0), 0 otherwise, including while fewer than N1+1 bars
// have been seen.
func lastEntry() registry.Entry {
	return registry.Entry{
		Name:    "LAST",
		MinArgs: 3,
		MaxArgs: 3,
		Execute: func(args []vm.Value, ctx registry.Context) (vm.Value, error) {
			cond := vm.Truthy(args[0])
			n1f, err := floatArg("LAST", args, 1)
			if err != nil {
				return nil, err
			}
			n2f, err := floatArg("LAST", args, 2)
			if err != nil {
				return nil, err
			}
			n1 := int(n1f)
			n2 := int(n2f)
			if n1 < 0 || float64(n1) != n1f {
				return nil, errs.New(errs.KindRuntimeError, fmt.Sprintf("LAST: N1 must be a non-negative integer, got %v", n1f))
			}
			if n2 < 0 || float64(n2) != n2f {
				return nil, errs.New(errs.KindRuntimeError, fmt.Sprintf("LAST: N2 must be a non-negative integer, got %v", n2f))
			}
			if n2 > n1 {
				return nil, errs.New(errs.KindRuntimeError, fmt.Sprintf("LAST: N2 (%d) must not exceed N1 (%d)", n2, n1))
			}
			ws, err := getOrInitWindow(ctx, n1+1)
			if err != nil {
				return nil, err
			}
			v := 0.0
			if cond {
				v = 1.0
			}
			ws.buf.Push(v)
			vals := ws.buf.ToArray()
			if len(vals) < n1+1 {
				return 0.0, nil
			}
			for _, x := range vals[0 : len(vals)-n2] {
				if x == 0 {
					return 0.0, nil
				}
			}
			return 1.0, nil
		},
	}
}
