// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"pulse/internal/analysis"
	"pulse/internal/events"
	"pulse/internal/log"
)

// recordingStream stands in for a PortAudio stream. Read blocks until the
// stream is aborted.
type recordingStream struct {
	mu      sync.Mutex
	calls   []string
	reading bool
	overlap bool

	once    sync.Once
	aborted chan struct{}
}

func newRecordingStream() *recordingStream {
	return &recordingStream{aborted: make(chan struct{})}
}

func (s *recordingStream) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingStream) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *recordingStream) Read() error {
	s.mu.Lock()
	s.reading = true
	s.calls = append(s.calls, "read")
	s.mu.Unlock()

	<-s.aborted

	s.mu.Lock()
	s.reading = false
	s.mu.Unlock()
	return errors.New("stream aborted")
}

func (s *recordingStream) Abort() error {
	s.record("abort")
	s.once.Do(func() { close(s.aborted) })
	return nil
}

func (s *recordingStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reading {
		s.overlap = true
	}
	s.calls = append(s.calls, "close")
	return nil
}

func newTestDeviceSource(stream *recordingStream) *DeviceSource {
	return &DeviceSource{
		stream: stream,
		terminate: func() error {
			stream.record("terminate")
			return nil
		},
		buffer:     make([]int32, testFrameSize),
		sampleRate: testSampleRate,
		device:     "Test Mic",
		logger:     log.New("device"),
	}
}

func TestDeviceSourceShutdownOrder(t *testing.T) {
	stream := newRecordingStream()
	engine, err := NewEngine(newTestDeviceSource(stream), testConfig(), events.New[analysis.Event](), nil)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(stream.Calls()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Run never read from the stream")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if got, want := stream.Calls(), []string{"read", "abort"}; !slices.Equal(got, want) {
		t.Errorf("calls before Close = %v, want %v", got, want)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	engine.Close()

	if got, want := stream.Calls(), []string{"read", "abort", "close", "terminate"}; !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if stream.overlap {
		t.Error("stream closed while a read was in progress")
	}
}

func TestDeviceSourceCloseWithoutStop(t *testing.T) {
	stream := newRecordingStream()
	src := newTestDeviceSource(stream)

	if err := src.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if got, want := stream.Calls(), []string{"abort", "close", "terminate"}; !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}
