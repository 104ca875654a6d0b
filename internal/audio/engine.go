// SPDX-License-Identifier: MIT
/*
Package audio implements the analysis worker and the frame sources it reads
from:
- PortAudio capture with the blocking read API
- Raw PCM from a subprocess or stdin
- Decoded wav, mp3 and Ogg Vorbis files
- WAV recording of the analyzed stream with atomic state management

Thread Safety:
- Engine.Run owns the source, the converter buffers and the Analyzer
- Pre-allocates buffers to avoid GC in the hot path
- Source.Close may be called from any goroutine to abort a blocked read
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"pulse/internal/analysis"
	"pulse/internal/config"
	"pulse/internal/log"
	"pulse/internal/metrics"
	"pulse/internal/pcm"
)

// Engine reads frames from a Source, converts them and feeds them to an
// Analyzer whose events go to a sink.
type Engine struct {
	source   Source
	format   pcm.Format
	analyzer *analysis.Analyzer
	sink     analysis.EventSink
	metrics  *metrics.Metrics
	logger   *log.Logger

	// Pre-allocated frame buffers.
	raw   []byte
	frame []float32

	frames atomic.Uint64
}

// AnalysisConfig derives the analyzer parameters for a stream at
// sampleRate from cfg.
func AnalysisConfig(cfg *config.Config, sampleRate int) analysis.Config {
	a := cfg.Analysis
	return analysis.Config{
		FrameSize:       a.FrameSize,
		SubBlocks:       a.SubBlocks,
		SampleRate:      sampleRate,
		Channels:        1,
		SilenceRMS:      a.SilenceRMS,
		SilenceSeconds:  a.SilenceSeconds,
		RMSWindow:       a.RMSWindow,
		TempoWindow:     a.TempoWindow,
		VolumeFullScale: a.VolumeFullScale,
		AccuracySamples: a.AccuracySamples,
	}
}

// NewEngine builds an engine around source. m may be nil.
func NewEngine(source Source, cfg *config.Config, sink analysis.EventSink, m *metrics.Metrics) (*Engine, error) {
	format := source.Format()
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %s", pcm.ErrUnsupportedFormat, format)
	}

	analyzerCfg := AnalysisConfig(cfg, source.SampleRate())
	analyzer, err := analysis.NewAnalyzer(analyzerCfg,
		analysis.EnvelopeTrackerFactory(cfg.Analysis.MinBPM, cfg.Analysis.MaxBPM))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		source:   source,
		format:   format,
		analyzer: analyzer,
		sink:     sink,
		metrics:  m,
		logger:   log.New("engine"),
		raw:      make([]byte, analyzerCfg.FrameSize*format.Width()),
		frame:    make([]float32, analyzerCfg.FrameSize),
	}
	e.logger.Debugf("frame time %.3fs, silence threshold %d samples",
		analyzerCfg.FrameTime(), analyzerCfg.SilenceThreshold())
	return e, nil
}

// Analyzer returns the engine's analyzer. It must not be used while Run
// is active.
func (e *Engine) Analyzer() *analysis.Analyzer {
	return e.analyzer
}

// Frames returns the number of frames processed so far.
func (e *Engine) Frames() uint64 {
	return e.frames.Load()
}

// Run processes frames until ctx is cancelled, the source is exhausted or
// an error occurs.
//
// Cancellation and the end of a finite source return nil. A sink that
// rejects an event stops the loop with an error wrapping ErrConsumerGone.
// Malformed stream data is returned as a wrapped error.
//
// Cancellation only stops the source; it is released by Close once Run
// has returned.
func (e *Engine) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if err := e.source.Stop(); err != nil {
			e.logger.Debugf("source stop: %v", err)
		}
	})
	defer stop()

	sink := analysis.SinkFunc(func(ev analysis.Event) error {
		if err := e.sink.Send(ev); err != nil {
			return err
		}
		e.metrics.RecordEvent(ev)
		return nil
	})

	e.logger.Infof("analysis started")
	for {
		if ctx.Err() != nil {
			e.logger.Infof("analysis stopped after %d frames", e.frames.Load())
			return nil
		}

		if err := e.source.ReadFrame(e.raw); err != nil {
			if ctx.Err() != nil {
				e.logger.Infof("analysis stopped after %d frames", e.frames.Load())
				return nil
			}
			if errors.Is(err, io.EOF) {
				e.logger.Infof("end of stream after %d frames", e.frames.Load())
				return nil
			}
			return fmt.Errorf("read frame %d: %w", e.frames.Load(), err)
		}

		start := time.Now()
		if err := pcm.Decode(e.frame, e.raw, e.format); err != nil {
			return fmt.Errorf("decode frame %d: %w", e.frames.Load(), err)
		}

		if err := e.analyzer.Process(e.frame, sink); err != nil {
			if errors.Is(err, analysis.ErrFrameSize) {
				return fmt.Errorf("frame %d: %w", e.frames.Load(), err)
			}
			// The consumer goes away on shutdown too.
			if ctx.Err() != nil {
				e.logger.Infof("analysis stopped after %d frames", e.frames.Load())
				return nil
			}
			e.logger.Infof("event consumer gone, stopping")
			return fmt.Errorf("%w: %w", ErrConsumerGone, err)
		}

		e.frames.Add(1)
		e.metrics.RecordFrame(time.Since(start), e.analyzer)
	}
}

// Close releases the source. Call it after Run has returned.
func (e *Engine) Close() error {
	return e.source.Close()
}
