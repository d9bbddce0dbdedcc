package ringbuffer

import "golang.org/x/exp/constraints"

// StatsRingBuffer wraps a RingBuffer of a float type with an incrementally
// maintained running sum, so Sum and Avg are O(1) regardless of capacity.
type StatsRingBuffer[T constraints.Float] struct {
	ring *RingBuffer[T]
	sum  T
}

// NewStats constructs a StatsRingBuffer of the given capacity.
func NewStats[T constraints.Float](capacity int) (*StatsRingBuffer[T], error) {
	ring, err := New[T](capacity)
	if err != nil {
		return nil, err
	}
	return &StatsRingBuffer[T]{ring: ring}, nil
}

// Push pushes v, updating the running sum: add v, subtract any eviction.
func (s *StatsRingBuffer[T]) Push(v T) {
	evicted, ok := s.ring.Push(v)
	s.sum += v
	if ok {
		s.sum -= evicted
	}
}

// Sum returns the running total of all elements currently held.
func (s *StatsRingBuffer[T]) Sum() T { return s.sum }

// Avg returns Sum()/Len(), or 0 when empty.
func (s *StatsRingBuffer[T]) Avg() T {
	if s.ring.Len() == 0 {
		return 0
	}
	return s.sum / T(s.ring.Len())
}

func (s *StatsRingBuffer[T]) Get(i int) T    { return s.ring.Get(i) }
func (s *StatsRingBuffer[T]) First() T       { return s.ring.First() }
func (s *StatsRingBuffer[T]) Last() T        { return s.ring.Last() }
func (s *StatsRingBuffer[T]) ToArray() []T   { return s.ring.ToArray() }
func (s *StatsRingBuffer[T]) Len() int       { return s.ring.Len() }
func (s *StatsRingBuffer[T]) Full() bool     { return s.ring.Full() }
func (s *StatsRingBuffer[T]) Cap() int       { return s.ring.Cap() }

// Clear resets the buffer and running sum to empty.
func (s *StatsRingBuffer[T]) Clear() {
	s.ring.Clear()
	s.sum = 0
}
