// SPDX-License-Identifier: MIT
package pcm

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	ErrFrameSize         = errors.New("buffer length does not match frame size")
)
