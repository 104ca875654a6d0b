// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pulse/internal/log"
	"pulse/internal/pcm"
	"pulse/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Source    SourceConfig    `yaml:"source"`    // Where frames come from.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Tempo and loudness analysis.
	Render    RenderConfig    `yaml:"render"`    // Visual state model.
	Recording RecordingConfig `yaml:"recording"` // WAV copy of the analyzed stream.
	Transport TransportConfig `yaml:"transport"` // Where render state is published.
	Metrics   MetricsConfig   `yaml:"metrics"`   // Prometheus endpoint.
}

// SourceConfig selects and parameterizes the frame source.
type SourceConfig struct {
	Kind       string   `yaml:"kind"`        // "device", "pipe" or "file".
	Device     int      `yaml:"device"`      // PortAudio device index for capture (-1 for default).
	Command    []string `yaml:"command"`     // argv producing raw PCM on stdout; empty reads stdin.
	File       string   `yaml:"file"`        // wav, mp3 or ogg file to analyze.
	Format     string   `yaml:"format"`      // Sample format of pipe input ("s16le", "f32le", "s32le").
	SampleRate int      `yaml:"sample_rate"` // Sample rate in Hz of device and pipe input.
	LowLatency bool     `yaml:"low_latency"` // Request low latency settings from PortAudio device.
}

// AnalysisConfig holds the analyzer parameters.
type AnalysisConfig struct {
	FrameSize       int     `yaml:"frame_size"`        // Samples per analyzed frame.
	SubBlocks       int     `yaml:"sub_blocks"`        // Sub-blocks per frame.
	SilenceRMS      float64 `yaml:"silence_rms"`       // RMS energy gate.
	SilenceSeconds  float64 `yaml:"silence_seconds"`   // Silence needed before a reset.
	RMSWindow       int     `yaml:"rms_window"`        // Sub-block RMS values averaged.
	TempoWindow     int     `yaml:"tempo_window"`      // Tempo selections averaged.
	VolumeFullScale float64 `yaml:"volume_full_scale"` // RMS reported as full volume.
	AccuracySamples int     `yaml:"accuracy_samples"`  // Tempo selections needed for full accuracy.
	MinBPM          float64 `yaml:"min_bpm"`           // Slowest tempo searched.
	MaxBPM          float64 `yaml:"max_bpm"`           // Fastest tempo searched.
}

// RenderConfig holds the visual state model constants.
type RenderConfig struct {
	FPS             int     `yaml:"fps"`              // Render ticks per second.
	Rotation        float64 `yaml:"rotation"`         // Rotation rate per bpm.
	LensMin         float64 `yaml:"lens_min"`         // Lens distance at zero volume.
	LensMax         float64 `yaml:"lens_max"`         // Lens distance at full volume.
	TempoSmoothing  float64 `yaml:"tempo_smoothing"`  // Approach rate of displayed bpm.
	VolumeSmoothing float64 `yaml:"volume_smoothing"` // Approach rate of displayed volume.
	IdleBPM         float64 `yaml:"idle_bpm"`         // Target bpm after a reset.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Enable audio recording to file.
	OutputDir string `yaml:"output_dir"` // Directory to save recorded audio files.
	BitDepth  int    `yaml:"bit_depth"`  // Bit depth for recorded audio (16 or 32).
}

// TransportConfig holds settings related to publishing render state.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve state over a websocket.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the websocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send state snapshots over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it looks for DefaultFileName in the working directory. If no file is found, it uses
// built-in defaults. After loading defaults or from file, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultFileName); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	for _, v := range []interface{ Validate() error }{
		&c.Source, &c.Analysis, &c.Render, &c.Recording, &c.Transport, &c.Metrics,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceConfig) Validate() error {
	switch s.Kind {
	case SourceDevice:
		if s.Device < MinDeviceID {
			return fmt.Errorf("%w: source.device %d is below %d", ErrInvalid, s.Device, MinDeviceID)
		}
	case SourcePipe:
		if _, err := pcm.ParseFormat(s.Format); err != nil {
			return fmt.Errorf("%w: source.format: %w", ErrInvalid, err)
		}
	case SourceFile:
		if s.File == "" {
			return fmt.Errorf("%w: source.file must be set for a file source", ErrInvalid)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown source.kind %q", ErrInvalid, s.Kind)
	}
	if s.SampleRate < MinSampleRate || s.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: source.sample_rate %d outside [%d, %d]",
			ErrInvalid, s.SampleRate, MinSampleRate, MaxSampleRate)
	}
	return nil
}

func (a *AnalysisConfig) Validate() error {
	if a.FrameSize <= 0 || a.SubBlocks <= 0 || a.FrameSize%a.SubBlocks != 0 {
		return fmt.Errorf("%w: analysis.frame_size %d must be a positive multiple of sub_blocks %d",
			ErrInvalid, a.FrameSize, a.SubBlocks)
	}
	if !bitint.IsPowerOfTwo(a.FrameSize) {
		log.Warnf("config: analysis.frame_size %d is not a power of two, device buffers may be split", a.FrameSize)
	}
	if a.SilenceRMS < 0 || a.SilenceRMS >= 1 {
		return fmt.Errorf("%w: analysis.silence_rms %v outside [0, 1)", ErrInvalid, a.SilenceRMS)
	}
	if a.SilenceSeconds <= 0 {
		return fmt.Errorf("%w: analysis.silence_seconds must be positive", ErrInvalid)
	}
	if a.RMSWindow < 1 || a.TempoWindow < 1 || a.AccuracySamples < 1 {
		return fmt.Errorf("%w: analysis windows must hold at least one sample", ErrInvalid)
	}
	if a.VolumeFullScale <= 0 {
		return fmt.Errorf("%w: analysis.volume_full_scale must be positive", ErrInvalid)
	}
	if a.MinBPM <= 0 || a.MaxBPM <= a.MinBPM {
		return fmt.Errorf("%w: analysis bpm range [%v, %v] is empty", ErrInvalid, a.MinBPM, a.MaxBPM)
	}
	return nil
}

func (r *RenderConfig) Validate() error {
	if r.FPS < 1 || r.FPS > MaxFPS {
		return fmt.Errorf("%w: render.fps %d outside [1, %d]", ErrInvalid, r.FPS, MaxFPS)
	}
	if r.LensMin > r.LensMax {
		return fmt.Errorf("%w: render.lens_min %v exceeds lens_max %v", ErrInvalid, r.LensMin, r.LensMax)
	}
	if r.TempoSmoothing < 0 || r.VolumeSmoothing < 0 {
		return fmt.Errorf("%w: render smoothing must not be negative", ErrInvalid)
	}
	if r.IdleBPM < 0 {
		return fmt.Errorf("%w: render.idle_bpm must not be negative", ErrInvalid)
	}
	return nil
}

func (r *RecordingConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.BitDepth != 16 && r.BitDepth != 32 {
		return fmt.Errorf("%w: recording.bit_depth %d, want 16 or 32", ErrInvalid, r.BitDepth)
	}
	if r.OutputDir == "" {
		return fmt.Errorf("%w: recording.output_dir must be set when recording", ErrInvalid)
	}
	return nil
}

func (t *TransportConfig) Validate() error {
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return fmt.Errorf("%w: transport.websocket_address must be set when the websocket is enabled", ErrInvalid)
	}
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("%w: transport.udp_target_address must be set when UDP is enabled", ErrInvalid)
		}
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address '%s' appears invalid (missing port?)",
				ErrInvalid, t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive when UDP is enabled", ErrInvalid)
		}
	}
	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("%w: metrics.address must be set when metrics are enabled", ErrInvalid)
	}
	return nil
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Debugf("configuration: Overriding log_level from env: %s", val)
	}

	// ENV_SOURCE_{...}
	// These select the frame source.

	// ENV_SOURCE_KIND
	if val, ok := os.LookupEnv("ENV_SOURCE_KIND"); ok {
		cfg.Source.Kind = val
		log.Debugf("configuration: Overriding source.kind from env: %s", val)
	}
	// ENV_SOURCE_DEVICE
	if val, ok := os.LookupEnv("ENV_SOURCE_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Source.Device = iVal
			log.Debugf("configuration: Overriding source.device from env: %d", iVal)
		}
	}
	// ENV_SOURCE_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_SOURCE_SAMPLE_RATE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Source.SampleRate = iVal
			log.Debugf("configuration: Overriding source.sample_rate from env: %d", iVal)
		}
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			log.Debugf("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		log.Debugf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			log.Debugf("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
	// ENV_WEBSOCKET_ADDRESS
	if val, ok := os.LookupEnv("ENV_WEBSOCKET_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
		log.Debugf("configuration: Overriding transport.websocket_address from env: %s", val)
	}

	// ENV_METRICS_ADDRESS
	if val, ok := os.LookupEnv("ENV_METRICS_ADDRESS"); ok {
		cfg.Metrics.Address = val
		log.Debugf("configuration: Overriding metrics.address from env: %s", val)
	}
}
