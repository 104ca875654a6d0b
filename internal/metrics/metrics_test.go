// SPDX-License-Identifier: MIT
package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pulse/internal/analysis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

func TestRecordEvent(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordEvent(analysis.TempoEvent(120, 0.5))
	m.RecordEvent(analysis.VolumeEvent(0.25))
	m.RecordEvent(analysis.VolumeEvent(0.75))

	if got := testutil.ToFloat64(m.Tempo); got != 120 {
		t.Errorf("tempo gauge = %v, want 120", got)
	}
	if got := testutil.ToFloat64(m.TempoAccuracy); got != 0.5 {
		t.Errorf("accuracy gauge = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(m.Volume); got != 0.75 {
		t.Errorf("volume gauge = %v, want 0.75", got)
	}
	if got := testutil.ToFloat64(m.Events.WithLabelValues("volume")); got != 2 {
		t.Errorf("volume events = %v, want 2", got)
	}

	m.RecordEvent(analysis.ResetEvent())
	if got := testutil.ToFloat64(m.Volume); got != 0 {
		t.Errorf("volume after reset = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.Events.WithLabelValues("reset")); got != 1 {
		t.Errorf("reset events = %v, want 1", got)
	}
}

func TestRecordFrame(t *testing.T) {
	m, _ := newTestMetrics(t)

	cfg := analysis.DefaultConfig(8000)
	cfg.FrameSize = 1024
	a, err := analysis.NewAnalyzer(cfg, analysis.NewEnvelopeTracker)
	if err != nil {
		t.Fatal(err)
	}
	sink := analysis.SinkFunc(func(analysis.Event) error { return nil })
	for range 5 {
		if err := a.Process(make([]float32, 1024), sink); err != nil {
			t.Fatal(err)
		}
		m.RecordFrame(time.Millisecond, a)
	}

	if got := testutil.ToFloat64(m.FramesProcessed); got != 5 {
		t.Errorf("frames processed = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.Silent); got != 1 {
		t.Errorf("silent gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SilenceSamples); got != 5*1024 {
		t.Errorf("silence samples = %v, want %d", got, 5*1024)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.RecordEvent(analysis.ResetEvent())
	m.RecordFrame(time.Millisecond, nil)
	m.RecordTick(3, 0)
	m.RecordTransportError("udp")
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.RecordTick(2, 1)
	m.RecordTransportError("websocket")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		"pulse_render_ticks_total 1",
		"pulse_event_queue_length 1",
		`pulse_transport_errors_total{transport="websocket"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
