// SPDX-License-Identifier: MIT
/*
Package transport publishes render state and analyzer events to the outside
world. The renderer calls Send once per payload; implementations must not
block the render tick and should drop data rather than queue without bound.
*/
package transport

import "errors"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// Transport defines a generic interface for sending render state or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}
