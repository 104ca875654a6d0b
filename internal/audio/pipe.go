// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"pulse/internal/log"
	"pulse/internal/pcm"
)

// PipeSource reads raw little-endian PCM from a command's stdout or from
// any reader. The format and sample rate are declared by the caller.
type PipeSource struct {
	r          io.Reader
	closer     io.Closer
	cmd        *exec.Cmd
	format     pcm.Format
	sampleRate int

	stopOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// OpenPipe starts argv and reads its stdout. With an empty argv it reads
// standard input.
func OpenPipe(ctx context.Context, argv []string, format pcm.Format, sampleRate int) (*PipeSource, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %s", pcm.ErrUnsupportedFormat, format)
	}
	if len(argv) == 0 {
		log.Infof("audio: reading %s PCM from stdin", format)
		return NewPipeSource(os.Stdin, os.Stdin, format, sampleRate), nil
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	log.Infof("audio: capture started (%s)", strings.Join(argv, " "))

	s := NewPipeSource(stdout, nil, format, sampleRate)
	s.cmd = cmd
	return s, nil
}

// NewPipeSource wraps r. closer, if not nil, is closed by Close.
func NewPipeSource(r io.Reader, closer io.Closer, format pcm.Format, sampleRate int) *PipeSource {
	return &PipeSource{r: r, closer: closer, format: format, sampleRate: sampleRate}
}

func (s *PipeSource) SampleRate() int    { return s.sampleRate }
func (s *PipeSource) Format() pcm.Format { return s.format }

// ReadFrame reads exactly len(dst) bytes. A stream ending on a frame
// boundary yields io.EOF; one ending inside a frame yields ErrShortRead.
func (s *PipeSource) ReadFrame(dst []byte) error {
	if len(dst)%s.format.Width() != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %s samples",
			pcm.ErrFrameSize, len(dst), s.format)
	}
	n, err := io.ReadFull(s.r, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, n, len(dst))
	case errors.Is(err, io.EOF):
		return io.EOF
	default:
		return fmt.Errorf("pipe read: %w", err)
	}
}

// Stop kills the command, if any. Its stdout then reaches end of file and
// a blocked ReadFrame returns. A plain reader is left alone.
func (s *PipeSource) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.cmd != nil && s.cmd.Process != nil {
			if err = s.cmd.Process.Kill(); errors.Is(err, os.ErrProcessDone) {
				err = nil
			}
		}
	})
	return err
}

// Close stops the command, reaps it and closes the reader. Wait must not
// run while a read from stdout is in progress, so Close belongs to the
// reading goroutine.
func (s *PipeSource) Close() error {
	s.closeOnce.Do(func() {
		if err := s.Stop(); err != nil {
			log.Debugf("audio: kill capture: %v", err)
		}
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Wait()
			log.Infof("audio: capture stopped")
		}
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}
