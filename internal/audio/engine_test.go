// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"pulse/internal/analysis"
	"pulse/internal/events"
	"pulse/internal/metrics"
	"pulse/internal/pcm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func collect(ch *events.Channel[analysis.Event]) []analysis.Event {
	var out []analysis.Event
	ch.Drain(func(e analysis.Event) { out = append(out, e) })
	return out
}

func TestRunEndsOnEOF(t *testing.T) {
	ch := events.New[analysis.Event]()
	engine, err := NewEngine(memorySource(t, repeat(0, 8)...), testConfig(), ch, nil)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if engine.Frames() != 8 {
		t.Errorf("Frames() = %d, want 8", engine.Frames())
	}

	got := collect(ch)
	if len(got) != 1 || got[0].Kind != analysis.EventReset {
		t.Errorf("expected a single Reset for 8 silent frames, got %v", got)
	}
}

func TestRunEmitsVolumeForLoudInput(t *testing.T) {
	ch := events.New[analysis.Event]()
	engine, err := NewEngine(memorySource(t, 0.1, 0.1), testConfig(), ch, nil)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	got := collect(ch)
	if len(got) != 2 {
		t.Fatalf("expected one Volume per frame, got %v", got)
	}
	for _, e := range got {
		if e.Kind != analysis.EventVolume || e.Average < 0.49 || e.Average > 0.51 {
			t.Errorf("unexpected event %v, want Volume about 0.5", e)
		}
	}
}

func TestRunConsumerGone(t *testing.T) {
	ch := events.New[analysis.Event]()
	ch.Close()

	engine, err := NewEngine(memorySource(t, 0.3, 0.3, 0.3), testConfig(), ch, nil)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	err = engine.Run(context.Background())
	if !errors.Is(err, ErrConsumerGone) {
		t.Fatalf("Run() = %v, want ErrConsumerGone", err)
	}
	if !errors.Is(err, events.ErrReceiverClosed) {
		t.Errorf("Run() = %v, should wrap ErrReceiverClosed", err)
	}
	if engine.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", engine.Frames())
	}
}

func TestRunCancellationUnblocksRead(t *testing.T) {
	src := newBlockingSource()
	engine, err := NewEngine(src, testConfig(), events.New[analysis.Event](), nil)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if n := src.closes.Load(); n != 0 {
		t.Errorf("source closed %d times by Run, want 0", n)
	}

	engine.Close()
	if n := src.closes.Load(); n != 1 {
		t.Errorf("source closed %d times after Close, want 1", n)
	}
}

func TestRunCancelledWhileSending(t *testing.T) {
	ch := events.New[analysis.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shutdown cancels the context and closes the channel under a frame
	// still being processed.
	sink := analysis.SinkFunc(func(e analysis.Event) error {
		cancel()
		ch.Close()
		return ch.Send(e)
	})

	engine, err := NewEngine(memorySource(t, 0.3, 0.3), testConfig(), sink, nil)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	if err := engine.Run(ctx); err != nil {
		t.Errorf("Run() = %v, want nil on shutdown", err)
	}
}

func TestRunShortRead(t *testing.T) {
	stream := pcmStream(t, 0.3, 0.3)
	src := NewPipeSource(bytes.NewReader(stream[:len(stream)-10]), nil, pcm.S16LE, testSampleRate)

	engine, err := NewEngine(src, testConfig(), events.New[analysis.Event](), nil)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	err = engine.Run(context.Background())
	if !errors.Is(err, ErrShortRead) {
		t.Errorf("Run() = %v, want ErrShortRead", err)
	}
	if engine.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1 complete frame", engine.Frames())
	}
}

func TestNewEngineRejectsBadSetup(t *testing.T) {
	t.Run("Unsupported format", func(t *testing.T) {
		src := NewPipeSource(bytes.NewReader(nil), nil, pcm.Format(0), testSampleRate)
		_, err := NewEngine(src, testConfig(), events.New[analysis.Event](), nil)
		if !errors.Is(err, pcm.ErrUnsupportedFormat) {
			t.Errorf("NewEngine() = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("Invalid analysis config", func(t *testing.T) {
		cfg := testConfig()
		cfg.Analysis.FrameSize = 1000
		_, err := NewEngine(memorySource(t), cfg, events.New[analysis.Event](), nil)
		if err == nil {
			t.Error("expected error for indivisible frame size")
		}
	})
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	engine, err := NewEngine(memorySource(t, 0.3, 0.3, 0, 0), testConfig(), events.New[analysis.Event](), m)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if got := testutil.ToFloat64(m.FramesProcessed); got != 4 {
		t.Errorf("frames processed = %v, want 4", got)
	}
	// The first quiet frame still averages in the loud history.
	if got := testutil.ToFloat64(m.Events.WithLabelValues("volume")); got != 3 {
		t.Errorf("volume events = %v, want 3", got)
	}
}

func BenchmarkEngineRun(b *testing.B) {
	stream := pcmStream(b, repeat(0.3, 16)...)
	ch := events.New[analysis.Event]()

	b.ReportAllocs()
	for b.Loop() {
		src := NewPipeSource(bytes.NewReader(stream), nil, pcm.S16LE, testSampleRate)
		engine, err := NewEngine(src, testConfig(), ch, nil)
		if err != nil {
			b.Fatal(err)
		}
		_ = engine.Run(context.Background())
		ch.Drain(func(analysis.Event) {})
	}
}
