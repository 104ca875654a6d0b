// SPDX-License-Identifier: MIT
package analysis

// BeatTracker estimates tempo from a mono sample stream. Implementations keep
// all history internally; a fresh instance starts from scratch.
type BeatTracker interface {
	// Feed ingests one sub-block of normalized samples. It is called from
	// the analysis hot path and should not allocate.
	Feed(samples []float32)
	// Estimate returns the current tempo in beats per minute, or 0 when no
	// estimate is available yet.
	Estimate() float64
}

// TrackerFactory builds a BeatTracker with no history for the given stream
// layout. The Analyzer calls it at construction and on every silence reset.
type TrackerFactory func(channels, sampleRate int) BeatTracker

// EventSink receives the events produced by the Analyzer in order. Send
// returning an error means the consumer is gone.
type EventSink interface {
	Send(Event) error
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(Event) error

// Send calls f(e).
func (f SinkFunc) Send(e Event) error {
	return f(e)
}
