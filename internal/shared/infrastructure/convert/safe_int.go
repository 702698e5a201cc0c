// Package convert provides safe integer conversion utilities.
package convert

import (
	"fmt"
	"math"
)

// IntToInt32Clamped converts an int to int32, clamping to min/max bounds if overflow.
// Use this when truncation is acceptable behavior (e.g., pool sizes).
func IntToInt32Clamped(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// IntToUint32Clamped converts an int to uint32, clamping negative values to 0
// and large values to math.MaxUint32.
func IntToUint32Clamped(v int) uint32 {
	if v < 0 {
		return 0
	}
	if uint64(v) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// Uint64ToInt64 converts a uint64 to int64, returning an error if overflow occurs.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to int64", v)
	}
	return int64(v), nil
}

// Int64ToUint64 converts an int64 to uint64, returning an error if negative.
func Int64ToUint64(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("cannot convert negative int64 to uint64: %d", v)
	}
	return uint64(v), nil
}
