// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"

	"pulse/internal/config"
	"pulse/internal/pcm"
)

const (
	testSampleRate = 8000
	testFrameSize  = 1024
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Source.SampleRate = testSampleRate
	cfg.Analysis.FrameSize = testFrameSize
	return cfg
}

// pcmStream encodes frames of constant amplitude as S16LE.
func pcmStream(t testing.TB, amplitudes ...float32) []byte {
	t.Helper()
	var out []byte
	frame := make([]float32, testFrameSize)
	raw := make([]byte, testFrameSize*2)
	for _, a := range amplitudes {
		for i := range frame {
			frame[i] = a
		}
		if err := pcm.Encode(raw, frame, pcm.S16LE); err != nil {
			t.Fatalf("Encode error: %v", err)
		}
		out = append(out, raw...)
	}
	return out
}

func memorySource(t testing.TB, amplitudes ...float32) *PipeSource {
	return NewPipeSource(bytes.NewReader(pcmStream(t, amplitudes...)), nil, pcm.S16LE, testSampleRate)
}

func repeat(a float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = a
	}
	return out
}

// blockingSource blocks in ReadFrame until stopped.
type blockingSource struct {
	once    sync.Once
	stopped chan struct{}
	closes  atomic.Int32
}

func newBlockingSource() *blockingSource {
	return &blockingSource{stopped: make(chan struct{})}
}

func (b *blockingSource) SampleRate() int    { return testSampleRate }
func (b *blockingSource) Format() pcm.Format { return pcm.S16LE }

func (b *blockingSource) ReadFrame(dst []byte) error {
	<-b.stopped
	return bytes.ErrTooLarge // any error; the engine must prefer ctx state
}

func (b *blockingSource) Stop() error {
	b.once.Do(func() { close(b.stopped) })
	return nil
}

func (b *blockingSource) Close() error {
	b.closes.Add(1)
	return b.Stop()
}
