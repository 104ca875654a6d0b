// SPDX-License-Identifier: MIT
package analysis

// Gate is the RMS energy gate separating active audio from silence.
type Gate struct {
	threshold float64
}

// NewGate returns a gate opening strictly above threshold.
func NewGate(threshold float64) Gate {
	var g Gate
	g.SetThreshold(threshold)
	return g
}

// SetThreshold adjusts the gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold = threshold
}

// Threshold returns the current gate threshold.
func (g Gate) Threshold() float64 {
	return g.threshold
}

// Open reports whether rms is above the threshold.
func (g Gate) Open(rms float64) bool {
	return rms > g.threshold
}
