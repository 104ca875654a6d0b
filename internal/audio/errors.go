// SPDX-License-Identifier: MIT
package audio

import "errors"

var (
	// ErrConsumerGone is returned by Engine.Run when the event consumer
	// stopped accepting events.
	ErrConsumerGone = errors.New("event consumer gone")

	// ErrShortRead means the stream ended in the middle of a frame.
	ErrShortRead = errors.New("short read")

	// ErrUnsupportedFile is returned for files no decoder handles.
	ErrUnsupportedFile = errors.New("unsupported audio file")

	// ErrUnknownSource is returned for an unknown source kind.
	ErrUnknownSource = errors.New("unknown source kind")
)
