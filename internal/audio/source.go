// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"pulse/internal/config"
	"pulse/internal/log"
	"pulse/internal/pcm"
)

// Source delivers fixed-size frames of mono PCM.
//
// ReadFrame blocks until dst, which must hold exactly one frame in the
// source's format, is filled. A finite source returns io.EOF once it is
// exhausted.
//
// Stop may be called from another goroutine to release a blocked
// ReadFrame. It frees nothing the read still uses. Close releases the
// source and must only be called once no ReadFrame is in progress. Both
// are safe to call more than once.
type Source interface {
	SampleRate() int
	Format() pcm.Format
	ReadFrame(dst []byte) error
	Stop() error
	Close() error
}

// OpenSource builds the source selected by cfg, wrapped in a recorder when
// recording is enabled. Setup problems are returned before any frame is
// read.
func OpenSource(ctx context.Context, cfg *config.Config) (Source, error) {
	frameSize := cfg.Analysis.FrameSize

	var (
		src Source
		err error
	)
	switch cfg.Source.Kind {
	case config.SourceDevice:
		src, err = OpenDevice(cfg.Source.Device, cfg.Source.SampleRate, frameSize, cfg.Source.LowLatency)
	case config.SourcePipe:
		var format pcm.Format
		format, err = pcm.ParseFormat(cfg.Source.Format)
		if err == nil {
			src, err = OpenPipe(ctx, cfg.Source.Command, format, cfg.Source.SampleRate)
		}
	case config.SourceFile:
		src, err = OpenFile(cfg.Source.File)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source.Kind)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("audio: %s source, %d Hz, %s, frame %d samples (%.3fs)",
		cfg.Source.Kind, src.SampleRate(), src.Format(), frameSize,
		float64(frameSize)/float64(src.SampleRate()))

	if cfg.Recording.Enabled {
		path := filepath.Join(cfg.Recording.OutputDir, RecordingName(time.Now()))
		rec, err := NewRecordingSource(src, path, frameSize, cfg.Recording.BitDepth)
		if err != nil {
			src.Close()
			return nil, err
		}
		log.Infof("audio: recording to %s", path)
		return rec, nil
	}
	return src, nil
}
