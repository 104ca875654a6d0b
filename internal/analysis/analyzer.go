// SPDX-License-Identifier: MIT
/*
Package analysis turns normalized audio frames into semantic events for the
renderer: smoothed loudness (Volume), smoothed tempo (Tempo) and a marker
that prolonged silence invalidated the accumulated history (Reset).

State machine:

	          rms <= gate, counter crosses threshold
	          (tracker + tempo history reset, emits Reset)
	Active ───────────────────────────────────────────▶ Silent
	  ▲                                                   │
	  └─────────────────── rms > gate ────────────────────┘
	                (silently, next Volume/Tempo shows it)

Every frame is split into sub-blocks. Each sub-block is fed to the beat
tracker and its RMS to a bounded moving average; the averaged RMS decides
which branch runs. Active frames emit Volume and, once the tracker has an
estimate, an octave-corrected Tempo.

Thread Safety:
- An Analyzer is owned by a single analysis goroutine and is not safe for
  concurrent use
- Events leave through an EventSink, the only hand-off to other goroutines
*/
package analysis

import "fmt"

// State is the Analyzer's silence state.
type State uint8

const (
	StateActive State = iota
	StateSilent
)

func (s State) String() string {
	if s == StateSilent {
		return "silent"
	}
	return "active"
}

// Analyzer is the orchestrating state machine. It exclusively owns the beat
// tracker, both moving averages and the silence counter.
type Analyzer struct {
	frameSize  int
	channels   int
	sampleRate int

	newTracker TrackerFactory
	tracker    BeatTracker
	energy     *EnergyTracker
	tempo      *TempoResolver
	resets     uint64
}

// NewAnalyzer validates cfg and builds an Analyzer in the Active state with
// empty history. newTracker is called immediately and again on every reset.
func NewAnalyzer(cfg Config, newTracker TrackerFactory) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	if newTracker == nil {
		return nil, fmt.Errorf("invalid analysis config: beat tracker factory is nil")
	}

	return &Analyzer{
		frameSize:  cfg.FrameSize,
		channels:   cfg.Channels,
		sampleRate: cfg.SampleRate,
		newTracker: newTracker,
		tracker:    newTracker(cfg.Channels, cfg.SampleRate),
		energy:     NewEnergyTracker(cfg),
		tempo:      NewTempoResolver(cfg.TempoWindow, cfg.AccuracySamples),
	}, nil
}

// Process analyzes one frame and sends the resulting events to sink in
// order: at most one Volume followed by at most one Tempo for an active
// frame, at most one Reset for a silent frame.
//
// Signal content never causes an error. Process fails only when frame has
// the wrong length or when sink rejects an event, in which case the error
// from sink is returned unchanged.
func (a *Analyzer) Process(frame []float32, sink EventSink) error {
	if len(frame) != a.frameSize {
		return fmt.Errorf("%w: got %d samples, want %d", ErrFrameSize, len(frame), a.frameSize)
	}

	rms := a.energy.Measure(frame, a.tracker)

	if a.energy.Open(rms) {
		a.energy.MarkActive()
		if err := sink.Send(VolumeEvent(a.energy.Volume(rms))); err != nil {
			return err
		}
		if event, ok := a.tempo.Resolve(a.tracker.Estimate()); ok {
			return sink.Send(event)
		}
		return nil
	}

	if a.energy.MarkSilent() {
		a.tracker = a.newTracker(a.channels, a.sampleRate)
		a.tempo.Reset()
		a.resets++
		return sink.Send(ResetEvent())
	}
	return nil
}

// State returns Silent once the silence counter has reached the threshold.
func (a *Analyzer) State() State {
	if a.energy.Silent() {
		return StateSilent
	}
	return StateActive
}

// SilenceSamples returns the number of consecutive quiet samples counted.
func (a *Analyzer) SilenceSamples() int {
	return a.energy.SilenceSamples()
}

// SilenceThreshold returns the silence threshold in samples.
func (a *Analyzer) SilenceThreshold() int {
	return a.energy.Threshold()
}

// Level returns the current averaged RMS.
func (a *Analyzer) Level() float64 {
	return a.energy.Level()
}

// Tempo returns the smoothed tempo and its accuracy.
func (a *Analyzer) Tempo() (average, accuracy float64) {
	return a.tempo.Average(), a.tempo.Accuracy()
}

// Resets returns how many silence resets have fired.
func (a *Analyzer) Resets() uint64 {
	return a.resets
}

// FrameSize returns the number of samples Process expects.
func (a *Analyzer) FrameSize() int {
	return a.frameSize
}
