// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"
	"time"

	"pulse/internal/log"
	"pulse/internal/pcm"

	"github.com/gordonklaus/portaudio"
)

// captureStream is the part of *portaudio.Stream a DeviceSource drives.
type captureStream interface {
	Read() error
	Abort() error
	Close() error
}

// DeviceSource captures mono frames from a PortAudio input device using
// the blocking read API. Samples are captured as int32 and delivered as
// S32LE.
type DeviceSource struct {
	stream     captureStream
	terminate  func() error
	buffer     []int32
	sampleRate int
	device     string
	latency    time.Duration
	logger     *log.Logger

	stopOnce  sync.Once
	stopErr   error
	closeOnce sync.Once
	closeErr  error
}

// OpenDevice initializes PortAudio and starts a capture stream delivering
// frameSize samples per read. deviceID -1 selects the default input.
func OpenDevice(deviceID, sampleRate, frameSize int, lowLatency bool) (*DeviceSource, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	device, err := InputDevice(deviceID)
	if err != nil {
		Terminate()
		return nil, err
	}

	latency := device.DefaultHighInputLatency
	if lowLatency {
		latency = device.DefaultLowInputLatency
	}

	buffer := make([]int32, frameSize)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: frameSize,
		SampleRate:      float64(sampleRate),
	}

	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		Terminate()
		return nil, fmt.Errorf("failed to open input stream on %q: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		Terminate()
		return nil, fmt.Errorf("failed to start input stream on %q: %w", device.Name, err)
	}

	s := &DeviceSource{
		stream:     stream,
		terminate:  Terminate,
		buffer:     buffer,
		sampleRate: sampleRate,
		device:     device.Name,
		latency:    latency,
		logger:     log.New("device"),
	}
	s.logger.Infof("capturing from %q at %d Hz, latency %s", device.Name, sampleRate, latency)
	return s, nil
}

func (s *DeviceSource) SampleRate() int    { return s.sampleRate }
func (s *DeviceSource) Format() pcm.Format { return pcm.S32LE }

// Device returns the name of the capture device.
func (s *DeviceSource) Device() string { return s.device }

// ReadFrame blocks until the device delivered a full frame. An input
// overflow is reported but the frame is still delivered.
func (s *DeviceSource) ReadFrame(dst []byte) error {
	if len(dst) != len(s.buffer)*4 {
		return fmt.Errorf("%w: got %d bytes, want %d", pcm.ErrFrameSize, len(dst), len(s.buffer)*4)
	}

	if err := s.stream.Read(); err != nil {
		if err != portaudio.InputOverflowed {
			return fmt.Errorf("device read: %w", err)
		}
		s.logger.Warnf("input overflowed, samples were dropped")
	}

	for i, v := range s.buffer {
		pcm.PutS32(dst, i, v)
	}
	return nil
}

// Stop aborts the stream, which releases a blocked ReadFrame. The stream
// stays open until Close.
func (s *DeviceSource) Stop() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.stream.Abort()
	})
	return s.stopErr
}

// Close stops and closes the stream and shuts PortAudio down. It must not
// run while ReadFrame is in progress.
func (s *DeviceSource) Close() error {
	s.closeOnce.Do(func() {
		if err := s.Stop(); err != nil {
			s.logger.Debugf("abort: %v", err)
		}
		s.closeErr = s.stream.Close()
		if err := s.terminate(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
