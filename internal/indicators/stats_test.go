package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rand"
)

// randomWalk generates a reproducible synthetic close-price series: each
// step adds a uniform [-1,1) increment scaled by step to the previous price.
func randomWalk(seed uint64, n int, start, step float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	prices := make([]float64, n)
	price := start
	for i := range prices {
		price += (rng.Float64()*2 - 1) * step
		prices[i] = price
	}
	return prices
}

// TestStdTracksSampleStandardDeviationOnAWindowOfKnownValues checks
// STD against a hand-computed sample standard deviation over a window
// pulled from a seeded random walk, rather than trusting the
// implementation's own formula against itself.
func TestStdTracksSampleStandardDeviationOnAWindowOfKnownValues(t *testing.T) {
	reg := newTestRegistry(t)
	site := &callSite{}

	const period = 20
	prices := randomWalk(42, period, 100, 1.5)

	var result interface{}
	for _, p := range prices {
		var err error
		result, err = reg.Call("STD", []interface{}{p, float64(period)}, site.ctxLive())
		require.NoError(t, err)
	}

	require.NotNil(t, result)
	want := sampleStdDev(prices)
	require.InDelta(t, want, result.(float64), 1e-6)
}

func sampleStdDev(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}
