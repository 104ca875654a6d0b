// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"sync/atomic"

	"pulse/internal/log"
)

// LoggingTransport implements the Transport interface by logging each
// payload at debug level.
type LoggingTransport struct {
	logger *log.Logger
	sent   atomic.Uint64
	closed atomic.Bool
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	lt := &LoggingTransport{logger: log.New("LoggingTransport")}
	lt.logger.Infof("using logging transport")
	return lt
}

// Send logs the received data. It never fails before Close.
func (lt *LoggingTransport) Send(data any) error {
	if lt.closed.Load() {
		return ErrClosed
	}
	lt.sent.Add(1)
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	// Attempt to marshal for pretty printing, but log raw if it fails
	jsonData, err := json.Marshal(data)
	if err != nil {
		lt.logger.Debugf("received (%T): %+v (JSON marshal error: %v)", data, data, err)
		return nil
	}
	lt.logger.Debugf("received (%T): %s", data, jsonData)
	return nil
}

// Sent returns the number of payloads accepted.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

// Close marks the transport closed.
func (lt *LoggingTransport) Close() error {
	if lt.closed.Swap(true) {
		return nil
	}
	lt.logger.Infof("closed after %d payloads", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
