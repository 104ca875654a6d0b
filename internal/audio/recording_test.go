// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func newTestRecording(t testing.TB, bitDepth int, amplitudes ...float32) *RecordingSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec", "test_recording.wav")
	rec, err := NewRecordingSource(memorySource(t, amplitudes...), path, testFrameSize, bitDepth)
	if err != nil {
		t.Fatalf("NewRecordingSource error: %v", err)
	}
	return rec
}

func TestRecordingStartStop(t *testing.T) {
	rec := newTestRecording(t, 16)

	if atomic.LoadInt32(&rec.isRecording) != 1 {
		t.Error("source should be in recording state")
	}
	if rec.outputFile == nil {
		t.Error("Output file should be initialized")
	}
	if rec.wavEncoder == nil {
		t.Error("WAV encoder should be initialized")
	}
	if rec.sampleBuf.Format.NumChannels != 1 {
		t.Errorf("Buffer channels mismatch: got %d, want 1", rec.sampleBuf.Format.NumChannels)
	}
	if rec.sampleBuf.Format.SampleRate != testSampleRate {
		t.Errorf("Buffer sample rate mismatch: got %d, want %d", rec.sampleBuf.Format.SampleRate, testSampleRate)
	}

	// Store reference to check file closure.
	outputFile := rec.outputFile

	if err := rec.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if rec.Recording() {
		t.Error("source should not be recording after stopping")
	}
	if rec.outputFile != nil || rec.wavEncoder != nil {
		t.Error("file and encoder should be released after stopping")
	}
	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}
	if _, err := os.Stat(rec.Path()); os.IsNotExist(err) {
		t.Error("Recording file was not created")
	}
}

func TestRecordingWritesFrames(t *testing.T) {
	tests := []struct {
		bitDepth int
		scale    float64
	}{
		{16, math.MaxInt16},
		{32, math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-bit", tt.bitDepth), func(t *testing.T) {
			rec := newTestRecording(t, tt.bitDepth, 0.5, -0.25, 0)
			frame := make([]byte, testFrameSize*2)
			for range 3 {
				if err := rec.ReadFrame(frame); err != nil {
					t.Fatalf("ReadFrame error: %v", err)
				}
			}
			if err := rec.Close(); err != nil {
				t.Fatalf("Close error: %v", err)
			}

			f, err := os.Open(rec.Path())
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			dec := wav.NewDecoder(f)
			buf, err := dec.FullPCMBuffer()
			if err != nil {
				t.Fatalf("decode recording: %v", err)
			}
			if int(dec.BitDepth) != tt.bitDepth || dec.NumChans != 1 {
				t.Errorf("recording is %d-bit %d channels", dec.BitDepth, dec.NumChans)
			}
			if len(buf.Data) != 3*testFrameSize {
				t.Fatalf("recorded %d samples, want %d", len(buf.Data), 3*testFrameSize)
			}

			// s16 input quantization bounds the error.
			checks := map[int]float64{0: 0.5, testFrameSize: -0.25, 2 * testFrameSize: 0}
			for i, want := range checks {
				got := float64(buf.Data[i]) / tt.scale
				if math.Abs(got-want) > 1e-4 {
					t.Errorf("sample %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestRecordingErrorCases(t *testing.T) {
	t.Run("Already recording", func(t *testing.T) {
		rec := newTestRecording(t, 16)
		defer rec.Close()
		err := rec.StartRecording()
		if err == nil || !strings.Contains(err.Error(), "already recording") {
			t.Errorf("StartRecording() = %v, want already recording", err)
		}
	})

	t.Run("Invalid path", func(t *testing.T) {
		_, err := NewRecordingSource(memorySource(t), "/dev/null/rec/file.wav", testFrameSize, 16)
		if err == nil {
			t.Error("expected error for invalid path")
		}
	})

	t.Run("Unsupported bit depth", func(t *testing.T) {
		_, err := NewRecordingSource(memorySource(t), filepath.Join(t.TempDir(), "x.wav"), testFrameSize, 24)
		if err == nil {
			t.Error("expected error for 24-bit recording")
		}
	})

	t.Run("Stop when not recording", func(t *testing.T) {
		rec := newTestRecording(t, 16)
		rec.StopRecording()
		if err := rec.StopRecording(); err != nil {
			t.Errorf("second StopRecording() = %v, want nil", err)
		}
	})
}

func TestRecordingKeepsStreamingAfterStop(t *testing.T) {
	rec := newTestRecording(t, 16, 0.1, 0.1)
	defer rec.Close()

	frame := make([]byte, testFrameSize*2)
	if err := rec.ReadFrame(frame); err != nil {
		t.Fatal(err)
	}
	rec.StopRecording()
	if err := rec.ReadFrame(frame); err != nil {
		t.Errorf("ReadFrame after StopRecording = %v, want nil", err)
	}
}

func TestRecordingName(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := RecordingName(ts); got != "pulse-20250304-050607.wav" {
		t.Errorf("RecordingName() = %q", got)
	}
}

func BenchmarkRecordingReadFrame(b *testing.B) {
	rec := newTestRecording(b, 16, repeat(0.3, 64)...)
	defer rec.Close()
	frame := make([]byte, testFrameSize*2)

	b.ReportAllocs()
	for b.Loop() {
		if err := rec.ReadFrame(frame); err != nil {
			b.StopTimer()
			rec.Source = memorySource(b, repeat(0.3, 64)...)
			b.StartTimer()
		}
	}
}
