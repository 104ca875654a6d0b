// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"pulse/internal/log"
	"pulse/internal/pcm"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RecordingName returns the file name used for a recording started at t.
func RecordingName(t time.Time) string {
	return "pulse-" + t.Format("20060102-150405") + ".wav"
}

// RecordingSource passes frames through from an inner source and writes
// every delivered frame to a mono WAV file.
type RecordingSource struct {
	Source

	isRecording int32 // Atomic flag for thread-safe state
	mu          sync.Mutex
	path        string
	bitDepth    int
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	samples     []float32        // decoded copy of the current frame
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	closeOnce   sync.Once
	closeErr    error
}

// NewRecordingSource creates path (and its directory) and starts
// recording frames of frameSize samples read from inner. bitDepth is 16
// or 32.
func NewRecordingSource(inner Source, path string, frameSize, bitDepth int) (*RecordingSource, error) {
	if bitDepth != 16 && bitDepth != 32 {
		return nil, fmt.Errorf("unsupported recording bit depth %d", bitDepth)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	r := &RecordingSource{
		Source:   inner,
		path:     path,
		bitDepth: bitDepth,
		samples:  make([]float32, frameSize),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  inner.SampleRate(),
			},
			Data:           make([]int, frameSize),
			SourceBitDepth: bitDepth,
		},
	}
	if err := r.StartRecording(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the recording's file path.
func (r *RecordingSource) Path() string {
	return r.path
}

// Recording reports whether frames are currently written to disk.
func (r *RecordingSource) Recording() bool {
	return atomic.LoadInt32(&r.isRecording) == 1
}

// StartRecording opens the output file. It fails if already recording.
func (r *RecordingSource) StartRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadInt32(&r.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(r.path)
	if err != nil {
		return err
	}
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, r.Source.SampleRate(), r.bitDepth, 1, 1)

	atomic.StoreInt32(&r.isRecording, 1)
	return nil
}

// StopRecording finalizes the WAV header and closes the file. Frames keep
// flowing from the inner source.
func (r *RecordingSource) StopRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&r.isRecording, 0)

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	return nil
}

// ReadFrame reads from the inner source and appends the frame to the
// recording. A failed write stops the recording but not the stream.
func (r *RecordingSource) ReadFrame(dst []byte) error {
	if err := r.Source.ReadFrame(dst); err != nil {
		return err
	}
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}

	if err := r.write(dst); err != nil {
		log.Errorf("audio: error writing to WAV file, recording stopped: %v", err)
		_ = r.StopRecording()
	}
	return nil
}

func (r *RecordingSource) write(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	n := len(frame) / r.Source.Format().Width()
	if cap(r.samples) < n {
		r.samples = make([]float32, n)
		r.sampleBuf.Data = make([]int, n)
	}
	samples := r.samples[:n]
	if err := pcm.Decode(samples, frame, r.Source.Format()); err != nil {
		return err
	}

	scale := float64(math.MaxInt16)
	if r.bitDepth == 32 {
		scale = float64(math.MaxInt32)
	}
	data := r.sampleBuf.Data[:n]
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		data[i] = int(math.Round(v * scale))
	}
	r.sampleBuf.Data = data

	return r.wavEncoder.Write(r.sampleBuf)
}

// Stop releases a blocked read of the inner source.
func (r *RecordingSource) Stop() error {
	return r.Source.Stop()
}

// Close stops recording and closes the inner source.
func (r *RecordingSource) Close() error {
	r.closeOnce.Do(func() {
		recErr := r.StopRecording()
		r.closeErr = r.Source.Close()
		if r.closeErr == nil {
			r.closeErr = recErr
		}
	})
	return r.closeErr
}
