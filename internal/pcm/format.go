// SPDX-License-Identifier: MIT
/*
Package pcm converts raw little-endian PCM bytes to normalized float samples
and back. Three sample formats are supported: signed 16-bit, 32-bit float and
signed 32-bit integer. Integer formats are scaled into [-1, 1]; float samples
are passed through unchanged.
*/
package pcm

import (
	"fmt"
	"strings"
)

// Format identifies a PCM sample encoding.
type Format int

const (
	S16LE Format = iota + 1
	F32LE
	S32LE
)

// String returns the canonical lowercase name of the format.
func (f Format) String() string {
	switch f {
	case S16LE:
		return "s16le"
	case F32LE:
		return "f32le"
	case S32LE:
		return "s32le"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Width returns the number of bytes per sample, or 0 for an unknown format.
func (f Format) Width() int {
	switch f {
	case S16LE:
		return 2
	case F32LE, S32LE:
		return 4
	default:
		return 0
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f.Width() != 0
}

// ParseFormat converts a format name (case-insensitive) to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "s16le", "s16":
		return S16LE, nil
	case "f32le", "f32", "float32le":
		return F32LE, nil
	case "s32le", "s32":
		return S32LE, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so formats can be
// written by name in YAML configuration.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
