// SPDX-License-Identifier: MIT
/*
Package sma provides a fixed-capacity simple moving average for streaming
numeric data.

Design Principles:
- Bounded Memory: at most Capacity samples are held, oldest evicted first
- O(1) Updates: a running sum is maintained alongside a ring of samples,
  re-derived from the ring once per rotation (amortized O(1))
- Zero Allocations: the ring is allocated once at construction

Usage:

	rms := sma.New[float64](512)
	rms.Add(0.25)
	level := rms.Average() // 0.25

----------------------------------------------------------------------

What this code does:

	The ring holds the most recent samples. head points at the slot the
	next sample is written to. Once the ring is full that slot holds the
	oldest sample, so it is subtracted from the running sum before being
	overwritten.

	For capacity 3 and the stream 1, 2, 3, 4:

	  add 1: ring [1 _ _] sum 1  count 1
	  add 2: ring [1 2 _] sum 3  count 2
	  add 3: ring [1 2 3] sum 6  count 3
	  add 4: ring [4 2 3] sum 9  count 3   (1 evicted)
*/
package sma

// Number is the set of sample types a MovingAverage accepts.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// MovingAverage is a running mean over the last Capacity samples.
// It is not safe for concurrent use.
type MovingAverage[T Number] struct {
	ring  []T
	head  int
	count int
	sum   T
}

// New returns an empty MovingAverage holding at most capacity samples.
// It panics if capacity is less than 1.
func New[T Number](capacity int) *MovingAverage[T] {
	if capacity < 1 {
		panic("sma: capacity must be at least 1")
	}
	return &MovingAverage[T]{ring: make([]T, capacity)}
}

// Add appends a sample, evicting the oldest one when the window is full.
func (m *MovingAverage[T]) Add(sample T) {
	if m.count == len(m.ring) {
		m.sum -= m.ring[m.head]
	} else {
		m.count++
	}
	m.ring[m.head] = sample
	m.sum += sample
	m.head++
	if m.head == len(m.ring) {
		m.head = 0
		m.resum()
	}
}

// resum recomputes the running sum from the ring once per full rotation so
// floating point error from repeated add/subtract cannot accumulate.
func (m *MovingAverage[T]) resum() {
	var sum T
	for i := 0; i < m.count; i++ {
		sum += m.ring[i]
	}
	m.sum = sum
}

// Average returns the mean of the held samples, or 0 when empty.
func (m *MovingAverage[T]) Average() float64 {
	if m.count == 0 {
		return 0
	}
	return float64(m.sum) / float64(m.count)
}

// Count returns the number of samples currently held.
func (m *MovingAverage[T]) Count() int {
	return m.count
}

// Sum returns the running sum of the held samples.
func (m *MovingAverage[T]) Sum() T {
	return m.sum
}

// Reset drops every held sample.
func (m *MovingAverage[T]) Reset() {
	clear(m.ring)
	m.head = 0
	m.count = 0
	m.sum = 0
}
