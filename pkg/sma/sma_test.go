// SPDX-License-Identifier: MIT
package sma

import (
	"fmt"
	"math"
	"testing"
)

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for capacity 0")
		}
	}()
	New[float64](0)
}

func TestEmptyAverage(t *testing.T) {
	m := New[float64](4)
	if got := m.Average(); got != 0 {
		t.Errorf("Average() on empty = %v, want 0", got)
	}
	if got := m.Count(); got != 0 {
		t.Errorf("Count() on empty = %d, want 0", got)
	}
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		samples  []float64
		want     float64
		count    int
	}{
		{"Single", 4, []float64{2}, 2, 1},
		{"Partial", 4, []float64{1, 2, 3}, 2, 3},
		{"Full", 3, []float64{1, 2, 3}, 2, 3},
		{"Evicts oldest", 3, []float64{1, 2, 3, 4}, 3, 3},
		{"Evicts repeatedly", 2, []float64{10, 20, 30, 40, 50}, 45, 2},
		{"Capacity one", 1, []float64{7, 9}, 9, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New[float64](tt.capacity)
			for _, s := range tt.samples {
				m.Add(s)
			}
			if got := m.Average(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Average() = %v, want %v", got, tt.want)
			}
			if got := m.Count(); got != tt.count {
				t.Errorf("Count() = %d, want %d", got, tt.count)
			}
		})
	}
}

func TestIntegerSamples(t *testing.T) {
	m := New[int32](4)
	for _, s := range []int32{1, 2, 3, 4, 5} {
		m.Add(s)
	}
	if got := m.Average(); got != 3.5 {
		t.Errorf("Average() = %v, want 3.5", got)
	}
	if got := m.Sum(); got != 14 {
		t.Errorf("Sum() = %d, want 14", got)
	}
}

func TestBoundedEviction(t *testing.T) {
	const capacity = 128
	m := New[float64](capacity)

	values := make([]float64, capacity+1)
	values[0] = 1000 // outlier
	for i := 1; i < len(values); i++ {
		values[i] = 1
	}

	var total float64
	for _, v := range values {
		m.Add(v)
		total += v
	}
	naive := total / float64(len(values))

	if m.Count() != capacity {
		t.Fatalf("Count() = %d, want %d", m.Count(), capacity)
	}
	if got := m.Average(); got != 1 {
		t.Errorf("Average() = %v, want 1 once the outlier is evicted", got)
	}
	if m.Average() == naive {
		t.Errorf("Average() still reflects the first sample (%v)", naive)
	}
}

func TestReset(t *testing.T) {
	m := New[float64](3)
	for _, s := range []float64{5, 6, 7, 8} {
		m.Add(s)
	}
	m.Reset()

	if m.Count() != 0 || m.Average() != 0 || m.Sum() != 0 {
		t.Fatalf("after Reset: count=%d avg=%v sum=%v, want all zero", m.Count(), m.Average(), m.Sum())
	}

	m.Add(1)
	if got := m.Average(); got != 1 {
		t.Errorf("Average() after Reset+Add(1) = %v, want 1 (no history may survive)", got)
	}
}

func TestLongStreamDoesNotDrift(t *testing.T) {
	m := New[float32](512)
	for i := 0; i < 1_000_000; i++ {
		m.Add(float32(0.1 + 0.9*float64(i%7)/7))
	}
	for range 1024 {
		m.Add(0.5)
	}
	if got := m.Average(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Average() = %v, want 0.5 after refilling the window", got)
	}
}

func TestAddHotPath(t *testing.T) {
	m := New[float64](512)
	allocs := testing.AllocsPerRun(100, func() {
		for i := range 1024 {
			m.Add(float64(i))
		}
		_ = m.Average()
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Add/Average, got %.1f", allocs)
	}
}

func BenchmarkAdd(b *testing.B) {
	for _, capacity := range []int{128, 512} {
		b.Run(fmt.Sprintf("capacity=%d", capacity), func(b *testing.B) {
			m := New[float64](capacity)
			b.ReportAllocs()
			for b.Loop() {
				m.Add(0.5)
			}
		})
	}
}
