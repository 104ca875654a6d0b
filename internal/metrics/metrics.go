// SPDX-License-Identifier: MIT
/*
Package metrics exposes the analyzer and renderer internals to Prometheus.

All recording methods are safe to call on a nil *Metrics, so components can
run with metrics disabled without guarding every call.
*/
package metrics

import (
	"time"

	"pulse/internal/analysis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pulse"

// Metrics contains all Prometheus metrics for the analyzer.
type Metrics struct {
	// Analysis worker
	FramesProcessed prometheus.Counter
	Events          *prometheus.CounterVec
	Tempo           prometheus.Gauge
	TempoAccuracy   prometheus.Gauge
	Volume          prometheus.Gauge
	Level           prometheus.Gauge
	SilenceSamples  prometheus.Gauge
	Silent          prometheus.Gauge
	FrameDuration   prometheus.Histogram

	// Render worker
	RenderTicks   prometheus.Counter
	EventsPerTick prometheus.Histogram
	QueueLength   prometheus.Gauge

	// Transports
	TransportErrors *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Total number of audio frames analyzed",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of events emitted by the analyzer",
		}, []string{"kind"}),
		Tempo: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tempo_bpm",
			Help:      "Most recent smoothed tempo",
		}),
		TempoAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tempo_accuracy",
			Help:      "Accuracy of the most recent tempo in [0, 1]",
		}),
		Volume: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volume",
			Help:      "Most recent loudness in [0, 1]",
		}),
		Level: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rms_level",
			Help:      "Averaged RMS of the last analyzed frame",
		}),
		SilenceSamples: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "silence_samples",
			Help:      "Consecutive quiet samples counted",
		}),
		Silent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "silent",
			Help:      "1 while the stream is past the silence threshold",
		}),
		FrameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_processing_seconds",
			Help:      "Time spent analyzing one frame",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		RenderTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_ticks_total",
			Help:      "Total number of render ticks",
		}),
		EventsPerTick: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_events_per_tick",
			Help:      "Events drained per render tick",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		QueueLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_queue_length",
			Help:      "Events waiting for the renderer",
		}),
		TransportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Total number of failed transport sends",
		}, []string{"transport"}),
	}
}

// RecordEvent counts e and updates the matching gauge.
func (m *Metrics) RecordEvent(e analysis.Event) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(e.Kind.String()).Inc()
	switch e.Kind {
	case analysis.EventTempo:
		m.Tempo.Set(e.Average)
		m.TempoAccuracy.Set(e.Accuracy)
	case analysis.EventVolume:
		m.Volume.Set(e.Average)
	case analysis.EventReset:
		m.Volume.Set(0)
		m.TempoAccuracy.Set(0)
	}
}

// RecordFrame records one analyzed frame.
func (m *Metrics) RecordFrame(d time.Duration, a *analysis.Analyzer) {
	if m == nil {
		return
	}
	m.FramesProcessed.Inc()
	m.FrameDuration.Observe(d.Seconds())
	m.Level.Set(a.Level())
	m.SilenceSamples.Set(float64(a.SilenceSamples()))
	if a.State() == analysis.StateSilent {
		m.Silent.Set(1)
	} else {
		m.Silent.Set(0)
	}
}

// RecordTick records one render tick that drained n events with queued
// events still waiting.
func (m *Metrics) RecordTick(n, queued int) {
	if m == nil {
		return
	}
	m.RenderTicks.Inc()
	m.EventsPerTick.Observe(float64(n))
	m.QueueLength.Set(float64(queued))
}

// RecordTransportError counts a failed send on the named transport.
func (m *Metrics) RecordTransportError(transport string) {
	if m == nil {
		return
	}
	m.TransportErrors.WithLabelValues(transport).Inc()
}
