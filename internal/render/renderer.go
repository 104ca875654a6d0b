// SPDX-License-Identifier: MIT
/*
Package render is the consumer side of the event channel. A Renderer ticks
at a fixed rate, drains every event queued since the last tick, advances the
visual Model and publishes the resulting State to its transports.
*/
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pulse/internal/analysis"
	"pulse/internal/events"
	"pulse/internal/log"
	"pulse/internal/metrics"
	"pulse/internal/transport"
)

type output struct {
	name string
	t    transport.Transport
}

// Renderer owns the receiving end of the event channel.
type Renderer struct {
	events   *events.Channel[analysis.Event]
	model    *Model
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *log.Logger

	outputs []output

	mu       sync.RWMutex
	snapshot State
}

// NewRenderer creates a renderer reading from ch. m may be nil.
func NewRenderer(ch *events.Channel[analysis.Event], p Params, m *metrics.Metrics) (*Renderer, error) {
	if ch == nil {
		return nil, fmt.Errorf("render: event channel cannot be nil")
	}
	if p.FPS < 1 {
		return nil, fmt.Errorf("render: invalid fps %d", p.FPS)
	}
	model := NewModel(p)
	return &Renderer{
		events:   ch,
		model:    model,
		interval: time.Second / time.Duration(p.FPS),
		metrics:  m,
		logger:   log.New("Renderer"),
		snapshot: model.State(),
	}, nil
}

// AddTransport registers t under name. Not safe to call once Run started.
func (r *Renderer) AddTransport(name string, t transport.Transport) {
	r.outputs = append(r.outputs, output{name: name, t: t})
}

// Interval returns the tick period.
func (r *Renderer) Interval() time.Duration {
	return r.interval
}

// Snapshot returns the most recently published state. Safe for concurrent
// use.
func (r *Renderer) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Run ticks until ctx is done. On return the event channel is closed, so
// the producer's next Send fails.
func (r *Renderer) Run(ctx context.Context) error {
	defer r.events.Close()

	r.logger.Infof("rendering at %s per tick (%d transports)", r.interval, len(r.outputs))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.logger.Debugf("stopping: %v", context.Cause(ctx))
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			r.Tick(dt)
		}
	}
}

// Tick drains the queued events, steps the model by dt seconds and
// publishes the new state. It returns the number of events drained.
func (r *Renderer) Tick(dt float64) int {
	n := r.events.Drain(func(e analysis.Event) {
		r.model.Apply(e)
		r.publish(e)
	})
	r.model.Step(dt)
	s := r.model.State()

	r.mu.Lock()
	r.snapshot = s
	r.mu.Unlock()

	r.publish(s)
	r.metrics.RecordTick(n, r.events.Len())
	return n
}

func (r *Renderer) publish(data any) {
	for _, o := range r.outputs {
		if err := o.t.Send(data); err != nil {
			r.metrics.RecordTransportError(o.name)
			r.logger.Debugf("%s send failed: %v", o.name, err)
		}
	}
}

// Close closes every registered transport.
func (r *Renderer) Close() error {
	var errs []error
	for _, o := range r.outputs {
		if err := o.t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.name, err))
		}
	}
	return errors.Join(errs...)
}
