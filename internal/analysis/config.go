// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// Analysis defaults.
const (
	DefaultFrameSize       = 16384 // samples per frame delivered by the source
	DefaultSubBlocks       = 256   // sub-blocks per frame
	DefaultSilenceRMS      = 0.01  // energy gate
	DefaultSilenceSeconds  = 0.618 // silence needed before a reset
	DefaultRMSWindow       = 512   // sub-block RMS values averaged
	DefaultTempoWindow     = 128   // tempo selections averaged
	DefaultVolumeFullScale = 0.2   // RMS mapped to full volume
	DefaultAccuracySamples = 4     // tempo samples for full accuracy
	DefaultMinBPM          = 45.0
	DefaultMaxBPM          = 190.0
)

// Config parameterizes an Analyzer.
type Config struct {
	FrameSize       int
	SubBlocks       int
	SampleRate      int
	Channels        int
	SilenceRMS      float64
	SilenceSeconds  float64
	RMSWindow       int
	TempoWindow     int
	VolumeFullScale float64
	AccuracySamples int
}

// DefaultConfig returns the default analysis parameters for a mono stream.
func DefaultConfig(sampleRate int) Config {
	return Config{
		FrameSize:       DefaultFrameSize,
		SubBlocks:       DefaultSubBlocks,
		SampleRate:      sampleRate,
		Channels:        1,
		SilenceRMS:      DefaultSilenceRMS,
		SilenceSeconds:  DefaultSilenceSeconds,
		RMSWindow:       DefaultRMSWindow,
		TempoWindow:     DefaultTempoWindow,
		VolumeFullScale: DefaultVolumeFullScale,
		AccuracySamples: DefaultAccuracySamples,
	}
}

// Validate checks the parameters for internal consistency.
func (c Config) Validate() error {
	if c.FrameSize <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", c.FrameSize)
	}
	if c.SubBlocks <= 0 || c.FrameSize%c.SubBlocks != 0 {
		return fmt.Errorf("frame size %d is not divisible into %d sub-blocks", c.FrameSize, c.SubBlocks)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 {
		return fmt.Errorf("only mono streams are analyzed, got %d channels", c.Channels)
	}
	if c.SilenceRMS < 0 || c.SilenceRMS >= 1 {
		return fmt.Errorf("silence rms must be in [0, 1), got %f", c.SilenceRMS)
	}
	if c.SilenceSeconds <= 0 {
		return fmt.Errorf("silence seconds must be positive, got %f", c.SilenceSeconds)
	}
	if c.RMSWindow < 1 || c.TempoWindow < 1 {
		return fmt.Errorf("moving average windows must hold at least one sample (rms %d, tempo %d)",
			c.RMSWindow, c.TempoWindow)
	}
	if c.VolumeFullScale <= 0 {
		return fmt.Errorf("volume full scale must be positive, got %f", c.VolumeFullScale)
	}
	if c.AccuracySamples < 1 {
		return fmt.Errorf("accuracy samples must be at least 1, got %d", c.AccuracySamples)
	}
	return nil
}

// SilenceThreshold returns the number of consecutive quiet samples after
// which the stream is considered silent.
func (c Config) SilenceThreshold() int {
	return int(math.Floor(c.SilenceSeconds * float64(c.SampleRate)))
}

// FrameTime returns the duration of one frame in seconds.
func (c Config) FrameTime() float64 {
	return float64(c.FrameSize) / float64(c.SampleRate)
}
