// SPDX-License-Identifier: MIT
package render

import (
	"math"

	"pulse/internal/analysis"
	"pulse/internal/config"
)

// Params are the constants of the visual state model.
type Params struct {
	FPS             int
	Rotation        float64 // radians per bpm-second
	LensMin         float64 // lens distance at volume 0
	LensMax         float64 // lens distance at volume 1
	TempoSmoothing  float64
	VolumeSmoothing float64
	IdleBPM         float64 // target bpm after a reset
}

// ParamsFromConfig copies the render section of cfg.
func ParamsFromConfig(cfg config.RenderConfig) Params {
	return Params{
		FPS:             cfg.FPS,
		Rotation:        cfg.Rotation,
		LensMin:         cfg.LensMin,
		LensMax:         cfg.LensMax,
		TempoSmoothing:  cfg.TempoSmoothing,
		VolumeSmoothing: cfg.VolumeSmoothing,
		IdleBPM:         cfg.IdleBPM,
	}
}

// DefaultParams returns the built-in model constants.
func DefaultParams() Params {
	return ParamsFromConfig(config.NewConfig().Render)
}

// State is one published snapshot of the visual model.
type State struct {
	Tick         uint64  `json:"tick"`
	BPM          float64 `json:"bpm"`
	TargetBPM    float64 `json:"target_bpm"`
	Accuracy     float64 `json:"accuracy"`
	Volume       float64 `json:"volume"`
	TargetVolume float64 `json:"target_volume"`
	Theta        float64 `json:"theta"` // rotation angle in [0, 2π]
	Lens         float64 `json:"lens"`  // lens distance from center, relative
	Sign         float64 `json:"sign"`  // rotation direction, ±1
	Resets       uint64  `json:"resets"`
}

// Model turns analyzer events into smoothly animated state. It is not safe
// for concurrent use.
type Model struct {
	p Params
	s State
}

// NewModel returns a model at rest: displayed bpm 0 approaching the idle
// bpm, volume 0, rotating forward.
func NewModel(p Params) *Model {
	return &Model{
		p: p,
		s: State{
			TargetBPM: p.IdleBPM,
			Sign:      1,
			Lens:      p.LensMin,
		},
	}
}

// Apply updates the targets from one event.
func (m *Model) Apply(e analysis.Event) {
	switch e.Kind {
	case analysis.EventReset:
		m.s.TargetBPM = m.p.IdleBPM
		m.s.TargetVolume = 0
		m.s.Accuracy = 0
		m.s.Sign = -m.s.Sign
		m.s.Resets++
	case analysis.EventTempo:
		m.s.TargetBPM = e.Average
		m.s.Accuracy = e.Accuracy
	case analysis.EventVolume:
		m.s.TargetVolume = e.Average
	}
}

// Step advances the animation by dt seconds.
func (m *Model) Step(dt float64) {
	s := &m.s
	s.Tick++

	if d := s.TargetBPM - s.BPM; d != 0 {
		s.BPM += d * dt * m.p.TempoSmoothing
	}
	if d := s.TargetVolume - s.Volume; d != 0 {
		s.Volume += d * dt * m.p.VolumeSmoothing
	}

	s.Theta += dt * s.BPM * m.p.Rotation * s.Sign
	if s.Theta > 2*math.Pi {
		s.Theta = 0
	}
	if s.Theta < 0 {
		s.Theta = 2 * math.Pi
	}

	s.Lens = m.p.LensMin + (m.p.LensMax-m.p.LensMin)*s.Volume
}

// State returns the current snapshot.
func (m *Model) State() State {
	return m.s
}
