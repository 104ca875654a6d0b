// SPDX-License-Identifier: MIT
/*
Package events provides the hand-off between the analysis worker and the
render worker: an unbounded single-producer/single-consumer FIFO.

Send never blocks, so the analysis worker keeps pace with the audio source
no matter how slowly the consumer drains. The consumer polls with TryRecv or
Drain once per render tick and calls Close when it stops; every later Send
fails with ErrReceiverClosed, which tells the producer to shut down.

Thread Safety:
- Exactly one goroutine may call Send
- Exactly one goroutine may call TryRecv, Drain and Close
- Len and Closed may be called from anywhere
*/
package events

import (
	"errors"
	"sync/atomic"
)

// ErrReceiverClosed is returned by Send once the receiving side has closed.
var ErrReceiverClosed = errors.New("events: receiver closed")

type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
}

// Channel is a lock-free linked-list queue. The list always holds a stub
// node at head; a value becomes visible to the consumer once the producer
// publishes the node carrying it with an atomic store.
type Channel[T any] struct {
	// consumer side
	head *node[T]

	// producer side
	tail *node[T]

	length atomic.Int64
	closed atomic.Bool
}

// New returns an empty, open channel.
func New[T any]() *Channel[T] {
	stub := &node[T]{}
	return &Channel[T]{head: stub, tail: stub}
}

// Send appends v. It never blocks and fails only after Close.
func (c *Channel[T]) Send(v T) error {
	if c.closed.Load() {
		return ErrReceiverClosed
	}
	n := &node[T]{value: v}
	c.length.Add(1)
	c.tail.next.Store(n)
	c.tail = n
	return nil
}

// TryRecv removes and returns the oldest value. ok is false when nothing
// is queued.
func (c *Channel[T]) TryRecv() (v T, ok bool) {
	next := c.head.next.Load()
	if next == nil {
		return v, false
	}
	v = next.value
	var zero T
	next.value = zero
	c.head = next
	c.length.Add(-1)
	return v, true
}

// Drain calls fn for every value queued at the time of the call and for
// any value that arrives while draining. It returns the number received.
func (c *Channel[T]) Drain(fn func(T)) int {
	n := 0
	for {
		v, ok := c.TryRecv()
		if !ok {
			return n
		}
		fn(v)
		n++
	}
}

// Close marks the receiver as gone. Values still queued are discarded.
// Close is idempotent.
func (c *Channel[T]) Close() {
	if c.closed.Swap(true) {
		return
	}
	for {
		if _, ok := c.TryRecv(); !ok {
			return
		}
	}
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	return c.closed.Load()
}

// Len returns the number of queued values. The result is approximate while
// the producer or consumer is active.
func (c *Channel[T]) Len() int {
	return int(c.length.Load())
}
