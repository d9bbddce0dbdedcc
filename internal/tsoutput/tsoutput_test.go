package tsoutput

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordAccumulatesPerSymbolAndName(t *testing.T) {
	rec := NewRecorder()
	t0 := time.Unix(0, 0)
	t1 := t0.Add(time.Minute)

	rec.Record("AAPL", t0, map[string]interface{}{"avg": 10.0})
	rec.Record("AAPL", t1, map[string]interface{}{"avg": 12.0, "sig": true})
	rec.Record("MSFT", t0, map[string]interface{}{"avg": 5.0})

	avg := rec.Series("AAPL", "avg")
	require.NotNil(t, avg)
	require.Equal(t, 2, avg.Len())
	require.Equal(t, []float64{10.0, 12.0}, avg.ToFloat64Array())
	require.Equal(t, 12.0, avg.Last())

	sig := rec.Series("AAPL", "sig")
	require.NotNil(t, sig)
	require.Equal(t, 1, sig.Len())

	require.Nil(t, rec.Series("AAPL", "nope"))
	require.ElementsMatch(t, []string{"AAPL", "MSFT"}, rec.Symbols())
	require.ElementsMatch(t, []string{"avg", "sig"}, rec.Names("AAPL"))
}

func TestSeriesToFloat64ArraySkipsNonNumericAndNilPoints(t *testing.T) {
	s := &Series{Name: "x", Data: []interface{}{1.0, nil, "oops", 2.0}}
	require.Equal(t, []float64{1.0, 2.0}, s.ToFloat64Array())
}
