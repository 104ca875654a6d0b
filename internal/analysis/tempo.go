// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"pulse/pkg/sma"
)

// TempoResolver corrects octave errors in raw tempo estimates and smooths
// the corrected values.
type TempoResolver struct {
	average         *sma.MovingAverage[float64]
	accuracySamples float64
}

// NewTempoResolver returns a resolver averaging the last window selections.
// accuracySamples is the number of selections needed for full accuracy.
func NewTempoResolver(window, accuracySamples int) *TempoResolver {
	return &TempoResolver{
		average:         sma.New[float64](window),
		accuracySamples: float64(accuracySamples),
	}
}

// Select returns the octave of raw closest to the running average. The
// candidates raw, raw*2 and raw/2 are compared in that order and only a
// strictly smaller distance replaces the current choice, so raw wins ties.
// With no history raw is returned unchanged.
func (r *TempoResolver) Select(raw float64) float64 {
	if r.average.Count() == 0 {
		return raw
	}

	avg := r.average.Average()
	selected := raw
	best := math.Inf(1)
	for _, candidate := range [...]float64{raw, raw * 2, raw / 2} {
		if d := math.Abs(candidate - avg); d < best {
			best = d
			selected = candidate
		}
	}
	return selected
}

// Resolve folds raw into the average and returns the resulting Tempo event.
// A raw value of 0 means no estimate and yields no event.
func (r *TempoResolver) Resolve(raw float64) (Event, bool) {
	if raw == 0 {
		return Event{}, false
	}
	r.average.Add(r.Select(raw))
	return TempoEvent(r.average.Average(), r.Accuracy()), true
}

// Accuracy returns min(1, count/accuracySamples).
func (r *TempoResolver) Accuracy() float64 {
	return math.Min(1.0, float64(r.average.Count())/r.accuracySamples)
}

// Average returns the smoothed tempo, or 0 with no history.
func (r *TempoResolver) Average() float64 {
	return r.average.Average()
}

// Count returns the number of selections held.
func (r *TempoResolver) Count() int {
	return r.average.Count()
}

// Reset discards all tempo history.
func (r *TempoResolver) Reset() {
	r.average.Reset()
}
