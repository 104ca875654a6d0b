// SPDX-License-Identifier: MIT
package analysis

import "errors"

const (
	testFrameSize  = 1024
	testSubBlocks  = 256
	testSampleRate = 8000 // silence threshold floor(0.618*8000) = 4944 samples
)

var errConsumerGone = errors.New("consumer gone")

func testConfig() Config {
	cfg := DefaultConfig(testSampleRate)
	cfg.FrameSize = testFrameSize
	cfg.SubBlocks = testSubBlocks
	return cfg
}

// fakeTracker returns a fixed estimate and records what it was fed.
type fakeTracker struct {
	estimate  float64
	feeds     int
	fedTotal  int
	lastBlock int
}

func (f *fakeTracker) Feed(samples []float32) {
	f.feeds++
	f.fedTotal += len(samples)
	f.lastBlock = len(samples)
}

func (f *fakeTracker) Estimate() float64 {
	return f.estimate
}

// trackerFarm hands out fake trackers, one per factory call, each returning
// the estimate configured at the time it is created.
type trackerFarm struct {
	estimate float64
	created  []*fakeTracker
}

func (f *trackerFarm) factory(channels, sampleRate int) BeatTracker {
	t := &fakeTracker{estimate: f.estimate}
	f.created = append(f.created, t)
	return t
}

func (f *trackerFarm) current() *fakeTracker {
	return f.created[len(f.created)-1]
}

// recorder collects events per Process call.
type recorder struct {
	events []Event
}

func (r *recorder) Send(e Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) take() []Event {
	out := r.events
	r.events = nil
	return out
}

func constantFrame(size int, value float32) []float32 {
	frame := make([]float32, size)
	for i := range frame {
		frame[i] = value
	}
	return frame
}

func silentFrame() []float32 {
	return make([]float32, testFrameSize)
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}
