// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the analyzer.
const (
	DefaultLogLevel = "info"

	// Source defaults
	DefaultSourceKind = SourceDevice
	DefaultDeviceID   = MinDeviceID // Default to system default device
	DefaultFormat     = "s32le"
	DefaultSampleRate = 44100 // CD-quality audio
	DefaultLowLatency = false

	// Analysis defaults
	DefaultFrameSize       = 16384
	DefaultSubBlocks       = 256
	DefaultSilenceRMS      = 0.01
	DefaultSilenceSeconds  = 0.618
	DefaultRMSWindow       = 512
	DefaultTempoWindow     = 128
	DefaultVolumeFullScale = 0.2
	DefaultAccuracySamples = 4
	DefaultMinBPM          = 45.0
	DefaultMaxBPM          = 190.0

	// Render defaults
	DefaultFPS             = 24
	DefaultRotation        = 0.000976 // radians per beat-second
	DefaultLensMin         = 0.146
	DefaultLensMax         = 1.0
	DefaultTempoSmoothing  = 0.1
	DefaultVolumeSmoothing = 0.382
	DefaultIdleBPM         = 200.0

	// Recording defaults
	DefaultOutputDir = "./recordings"
	DefaultBitDepth  = 32

	// Transport defaults
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz

	// Metrics defaults
	DefaultMetricsAddress = ":9100"

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxFPS        = 240

	// DefaultFileName is looked up in the working directory when no path
	// is given.
	DefaultFileName = "pulse.yaml"
)

// Source kinds.
const (
	SourceDevice = "device" // PortAudio capture device
	SourcePipe   = "pipe"   // raw PCM from a command or stdin
	SourceFile   = "file"   // decoded wav/mp3/ogg file
)

// NewConfig returns a Config holding the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Source: SourceConfig{
			Kind:       DefaultSourceKind,
			Device:     DefaultDeviceID,
			Format:     DefaultFormat,
			SampleRate: DefaultSampleRate,
			LowLatency: DefaultLowLatency,
		},
		Analysis: AnalysisConfig{
			FrameSize:       DefaultFrameSize,
			SubBlocks:       DefaultSubBlocks,
			SilenceRMS:      DefaultSilenceRMS,
			SilenceSeconds:  DefaultSilenceSeconds,
			RMSWindow:       DefaultRMSWindow,
			TempoWindow:     DefaultTempoWindow,
			VolumeFullScale: DefaultVolumeFullScale,
			AccuracySamples: DefaultAccuracySamples,
			MinBPM:          DefaultMinBPM,
			MaxBPM:          DefaultMaxBPM,
		},
		Render: RenderConfig{
			FPS:             DefaultFPS,
			Rotation:        DefaultRotation,
			LensMin:         DefaultLensMin,
			LensMax:         DefaultLensMax,
			TempoSmoothing:  DefaultTempoSmoothing,
			VolumeSmoothing: DefaultVolumeSmoothing,
			IdleBPM:         DefaultIdleBPM,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultOutputDir,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddress,
		},
	}
}

// FrameTime returns the duration of one analysis frame at the configured
// sample rate.
func (c *Config) FrameTime() time.Duration {
	return time.Duration(float64(c.Analysis.FrameSize) / float64(c.Source.SampleRate) * float64(time.Second))
}
