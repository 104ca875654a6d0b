// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pulse/internal/pcm"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// decodeChunk is the number of frames requested from a decoder at a time.
const decodeChunk = 4096

// monoDecoder produces the first channel of a decoded file as PCM bytes.
type monoDecoder interface {
	// decode fills dst with whole samples and returns the bytes written.
	// It returns io.EOF once the stream is exhausted.
	decode(dst []byte) (int, error)
	sampleRate() int
	format() pcm.Format
}

// FileSource decodes a wav, mp3 or Ogg Vorbis file into frames. Only the
// first channel is analyzed. The last frame is padded with silence.
type FileSource struct {
	file *os.File
	dec  monoDecoder
	done bool

	closeOnce sync.Once
	closeErr  error
}

// OpenFile opens path and picks a decoder by extension.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	var dec monoDecoder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		dec, err = newWavDecoder(f)
	case ".mp3":
		dec, err = newMP3Decoder(f)
	case ".ogg", ".oga":
		dec, err = newOggDecoder(f)
	default:
		err = fmt.Errorf("%w: extension %q", ErrUnsupportedFile, ext)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &FileSource{file: f, dec: dec}, nil
}

func (s *FileSource) SampleRate() int    { return s.dec.sampleRate() }
func (s *FileSource) Format() pcm.Format { return s.dec.format() }

// ReadFrame fills dst with the next frame. After the frame holding the
// last decoded samples it returns io.EOF.
func (s *FileSource) ReadFrame(dst []byte) error {
	if s.done {
		return io.EOF
	}
	if len(dst)%s.dec.format().Width() != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %s samples",
			pcm.ErrFrameSize, len(dst), s.dec.format())
	}

	filled := 0
	for filled < len(dst) {
		n, err := s.dec.decode(dst[filled:])
		filled += n
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}

	if filled == 0 {
		return io.EOF
	}
	clear(dst[filled:])
	return nil
}

// Stop is a no-op; reading a file never blocks for long.
func (s *FileSource) Stop() error { return nil }

func (s *FileSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.file.Close()
	})
	return s.closeErr
}

// wavDecoder reads integer PCM wav files of 16 or 32 bits.
type wavDecoder struct {
	d     *wav.Decoder
	buf   *goaudio.IntBuffer
	chans int
	fmt   pcm.Format
}

func newWavDecoder(r io.ReadSeeker) (*wavDecoder, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", ErrUnsupportedFile)
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: wav audio format %d is not integer PCM", ErrUnsupportedFile, d.WavAudioFormat)
	}

	var format pcm.Format
	switch d.BitDepth {
	case 16:
		format = pcm.S16LE
	case 32:
		format = pcm.S32LE
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", pcm.ErrUnsupportedFormat, d.BitDepth)
	}

	chans := int(d.NumChans)
	if chans < 1 {
		return nil, fmt.Errorf("%w: wav declares no channels", ErrUnsupportedFile)
	}
	return &wavDecoder{
		d:     d,
		buf:   &goaudio.IntBuffer{Data: make([]int, decodeChunk*chans)},
		chans: chans,
		fmt:   format,
	}, nil
}

func (w *wavDecoder) sampleRate() int    { return int(w.d.SampleRate) }
func (w *wavDecoder) format() pcm.Format { return w.fmt }

func (w *wavDecoder) decode(dst []byte) (int, error) {
	width := w.fmt.Width()
	frames := min(len(dst)/width, decodeChunk)
	w.buf.Data = w.buf.Data[:frames*w.chans]

	n, err := w.d.PCMBuffer(w.buf)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, io.EOF
	}

	got := n / w.chans
	for i := range got {
		v := w.buf.Data[i*w.chans]
		if width == 2 {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(int16(v)))
		} else {
			pcm.PutS32(dst, i, int32(v))
		}
	}
	return got * width, nil
}

// mp3Decoder reads go-mp3 output, which is always 16-bit stereo.
type mp3Decoder struct {
	d   *gomp3.Decoder
	raw []byte
}

func newMP3Decoder(r io.Reader) (*mp3Decoder, error) {
	d, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFile, err)
	}
	return &mp3Decoder{d: d, raw: make([]byte, decodeChunk*4)}, nil
}

func (m *mp3Decoder) sampleRate() int    { return m.d.SampleRate() }
func (m *mp3Decoder) format() pcm.Format { return pcm.S16LE }

func (m *mp3Decoder) decode(dst []byte) (int, error) {
	frames := min(len(dst)/2, decodeChunk)
	raw := m.raw[:frames*4]

	n, err := io.ReadFull(m.d, raw)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	got := n / 4
	for i := range got {
		copy(dst[2*i:2*i+2], raw[4*i:4*i+2])
	}
	return got * 2, err
}

// oggDecoder reads Ogg Vorbis float samples.
type oggDecoder struct {
	r     *oggvorbis.Reader
	buf   []float32
	chans int
}

func newOggDecoder(r io.Reader) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFile, err)
	}
	chans := reader.Channels()
	return &oggDecoder{r: reader, buf: make([]float32, decodeChunk*chans), chans: chans}, nil
}

func (o *oggDecoder) sampleRate() int    { return o.r.SampleRate() }
func (o *oggDecoder) format() pcm.Format { return pcm.F32LE }

func (o *oggDecoder) decode(dst []byte) (int, error) {
	frames := min(len(dst)/4, decodeChunk)
	n, err := o.r.Read(o.buf[:frames*o.chans])

	got := n / o.chans
	for i := range got {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(o.buf[i*o.chans]))
	}
	return got * 4, err
}
