// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"pulse/pkg/sma"
)

// EnergyTracker measures per-frame loudness and counts consecutive quiet
// samples.
type EnergyTracker struct {
	gate      Gate
	fullScale float64
	frameSize int
	blockSize int
	threshold int // silence threshold in samples
	ceiling   int // silence counter never grows past this
	silence   int

	rms *sma.MovingAverage[float64]
}

// NewEnergyTracker returns a tracker for frames described by cfg.
func NewEnergyTracker(cfg Config) *EnergyTracker {
	return &EnergyTracker{
		gate:      NewGate(cfg.SilenceRMS),
		fullScale: cfg.VolumeFullScale,
		frameSize: cfg.FrameSize,
		blockSize: cfg.FrameSize / cfg.SubBlocks,
		threshold: cfg.SilenceThreshold(),
		ceiling:   math.MaxInt - cfg.FrameSize,
		rms:       sma.New[float64](cfg.RMSWindow),
	}
}

// Measure splits frame into sub-blocks, feeds each one to tracker, adds its
// RMS to the moving average and returns the averaged RMS for the frame.
//
// While the stream is past the silence threshold the average is cleared
// before every frame, so nothing heard during deep silence blends into the
// level measured once activity resumes.
func (t *EnergyTracker) Measure(frame []float32, tracker BeatTracker) float64 {
	if t.silence > t.threshold {
		t.rms.Reset()
	}

	for off := 0; off+t.blockSize <= len(frame); off += t.blockSize {
		block := frame[off : off+t.blockSize]
		tracker.Feed(block)
		t.rms.Add(blockRMS(block))
	}

	return t.rms.Average()
}

// Open reports whether rms passes the energy gate.
func (t *EnergyTracker) Open(rms float64) bool {
	return t.gate.Open(rms)
}

// Volume maps rms to a loudness in [0, 1].
func (t *EnergyTracker) Volume(rms float64) float64 {
	v := rms / t.fullScale
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MarkActive clears the silence counter.
func (t *EnergyTracker) MarkActive() {
	t.silence = 0
}

// MarkSilent accounts one quiet frame. It returns true only on the frame
// that takes the counter across the silence threshold.
func (t *EnergyTracker) MarkSilent() bool {
	if t.silence >= t.ceiling || t.silence >= t.threshold {
		return false
	}
	t.silence += t.frameSize
	return t.silence >= t.threshold
}

// Silent reports whether the counter has reached the silence threshold.
func (t *EnergyTracker) Silent() bool {
	return t.silence >= t.threshold
}

// SilenceSamples returns the current number of consecutive quiet samples.
func (t *EnergyTracker) SilenceSamples() int {
	return t.silence
}

// Threshold returns the silence threshold in samples.
func (t *EnergyTracker) Threshold() int {
	return t.threshold
}

// Level returns the current averaged RMS without feeding new samples.
func (t *EnergyTracker) Level() float64 {
	return t.rms.Average()
}

// blockRMS calculates the root mean square of a block of normalized samples.
func blockRMS(block []float32) float64 {
	if len(block) == 0 {
		return 0.0
	}

	var sumSquare float64
	for _, s := range block {
		v := float64(s)
		sumSquare += v * v
	}

	return math.Sqrt(sumSquare / float64(len(block)))
}
