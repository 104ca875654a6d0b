// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-two helpers for buffer and transform sizing.
All functions are allocation free and run in constant time.

Usage:

	// Size an FFT so a linear autocorrelation of n samples fits
	size := bitint.NextPowerOfTwo(2 * n)

	// Check a frame size before opening a device buffer
	ok := bitint.IsPowerOfTwo(frameSize)

NextPowerOfTwo works on size-1 so that exact powers of two map to
themselves: bits.Len(7) is 3 and 1<<3 is 8, while bits.Len(8) would give 16.
*/
package bitint

import "math/bits"

// Integer is the set of signed integer types the helpers accept.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// NextPowerOfTwo returns the smallest power of 2 >= size, and 1 for
// size <= 0. The result overflows for sizes above the largest power of two
// representable in T.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo[T Integer](size T) T {
	if size <= 0 {
		return 1
	}
	return T(1) << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of two
// have a single bit set, so n&(n-1) clears it.
func IsPowerOfTwo[T Integer](n T) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns floor(log2(n)) for n > 0 and -1 otherwise.
func Log2[T Integer](n T) int {
	if n <= 0 {
		return -1
	}
	return bits.Len64(uint64(n)) - 1
}
