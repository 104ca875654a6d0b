// SPDX-License-Identifier: MIT
package analysis

import "errors"

var (
	ErrFrameSize = errors.New("frame length does not match configured frame size")
)
