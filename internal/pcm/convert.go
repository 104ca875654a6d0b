// SPDX-License-Identifier: MIT
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	s16Scale = 32768.0
	s32Scale = float64(math.MaxInt32)
)

// Decode converts src, encoded as format, into dst. len(src) must equal
// len(dst) * format.Width().
func Decode(dst []float32, src []byte, format Format) error {
	width := format.Width()
	if width == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if len(src) != len(dst)*width {
		return fmt.Errorf("%w: got %d bytes, want %d (%d %s samples)",
			ErrFrameSize, len(src), len(dst)*width, len(dst), format)
	}

	switch format {
	case S16LE:
		decodeS16(dst, src)
	case F32LE:
		decodeF32(dst, src)
	case S32LE:
		decodeS32(dst, src)
	}
	return nil
}

// DecodeS32 converts signed 32-bit little-endian samples to floats, mapping
// each value v to v / MaxInt32.
func DecodeS32(dst []float32, src []byte) error {
	return Decode(dst, src, S32LE)
}

func decodeS16(dst []float32, src []byte) {
	for i := range dst {
		v := int16(binary.LittleEndian.Uint16(src[2*i:]))
		dst[i] = float32(float64(v) / s16Scale)
	}
}

func decodeF32(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}

func decodeS32(dst []float32, src []byte) {
	for i := range dst {
		v := int32(binary.LittleEndian.Uint32(src[4*i:]))
		dst[i] = float32(float64(v) / s32Scale)
	}
}

// Encode writes src into dst using format, clamping to [-1, 1] for the
// integer formats. len(dst) must equal len(src) * format.Width().
func Encode(dst []byte, src []float32, format Format) error {
	width := format.Width()
	if width == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if len(dst) != len(src)*width {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(dst), len(src)*width)
	}

	for i, s := range src {
		switch format {
		case S16LE:
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(quantize(s, s16Scale-1)))
		case F32LE:
			binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(s))
		case S32LE:
			binary.LittleEndian.PutUint32(dst[4*i:], uint32(quantize(s, s32Scale)))
		}
	}
	return nil
}

// PutS32 stores one signed 32-bit sample at dst[4*i:].
func PutS32(dst []byte, i int, v int32) {
	binary.LittleEndian.PutUint32(dst[4*i:], uint32(v))
}

func quantize(s float32, scale float64) int32 {
	v := float64(s)
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int32(math.Round(v * scale))
}
