package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	_, err := New[int](0)
	require.Error(t, err)

	_, err = New[int](-3)
	require.Error(t, err)
}

func TestPushEvictionAndInvariants(t *testing.T) {
	rb, err := New[int](3)
	require.NoError(t, err)

	pushCounts := []int{1, 2, 3, 4, 5, 6}
	for _, v := range pushCounts {
		rb.Push(v)

		wantLen := v
		if wantLen > 3 {
			wantLen = 3
		}
		require.Equal(t, wantLen, rb.Len())
		require.Equal(t, v >= 3, rb.Full())

		arr := rb.ToArray()
		for i := 0; i < rb.Len(); i++ {
			require.Equal(t, arr[i], rb.Get(i))
		}
	}

	// After pushing 1..6 into capacity 3, the window holds 4,5,6.
	require.Equal(t, []int{4, 5, 6}, rb.ToArray())
	require.Equal(t, 4, rb.First())
	require.Equal(t, 6, rb.Last())
}

func TestPushReportsEvictedElement(t *testing.T) {
	rb, _ := New[string](2)

	_, ok := rb.Push("a")
	require.False(t, ok)
	_, ok = rb.Push("b")
	require.False(t, ok)

	evicted, ok := rb.Push("c")
	require.True(t, ok)
	require.Equal(t, "a", evicted)
}

func TestClearResetsToEmpty(t *testing.T) {
	rb, _ := New[int](4)
	rb.Push(1)
	rb.Push(2)
	rb.Clear()

	require.Equal(t, 0, rb.Len())
	require.False(t, rb.Full())
	require.Equal(t, 4, rb.Cap())
}

func TestStatsRunningSumAndAvg(t *testing.T) {
	srb, err := NewStats[float64](3)
	require.NoError(t, err)

	require.Equal(t, float64(0), srb.Avg())

	for _, v := range []float64{2, 4, 6, 8} {
		srb.Push(v)
	}

	// Window holds 4, 6, 8 after evicting 2.
	require.InDelta(t, 18.0, float64(srb.Sum()), 1e-9)
	require.InDelta(t, 6.0, float64(srb.Avg()), 1e-9)
	require.Equal(t, []float64{4, 6, 8}, srb.ToArray())
}

func TestStatsClearResetsSum(t *testing.T) {
	srb, _ := NewStats[float64](2)
	srb.Push(10)
	srb.Push(20)
	srb.Clear()

	require.Equal(t, float64(0), srb.Sum())
	require.Equal(t, float64(0), srb.Avg())
	require.Equal(t, 0, srb.Len())
}
