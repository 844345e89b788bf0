// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Emulate storage precision of adapter factors on float64 buffers.
//   - A value "cast" to a narrower format is rounded to the nearest value
//     representable in that format and stored back as float64.
//
// Formats:
//   - FP32: IEEE-754 binary32 (round-to-nearest-even via float32 conversion).
//   - BF16: upper 16 bits of binary32, round-to-nearest-even on the dropped half.
//   - FP16: IEEE-754 binary16 via github.com/x448/float16.

package matrix

import (
	"fmt"
	"math"
	"strings"

	"github.com/x448/float16"
)

// Precision names a floating-point storage format.
type Precision int

const (
	// PrecisionKeep leaves values untouched (float64).
	PrecisionKeep Precision = iota
	// PrecisionFP32 rounds to binary32.
	PrecisionFP32
	// PrecisionBF16 rounds to bfloat16.
	PrecisionBF16
	// PrecisionFP16 rounds to binary16.
	PrecisionFP16
)

const opRoundTo = "RoundTo"

// String returns the canonical lower-case name.
func (p Precision) String() string {
	switch p {
	case PrecisionKeep:
		return "keep"
	case PrecisionFP32:
		return "fp32"
	case PrecisionBF16:
		return "bf16"
	case PrecisionFP16:
		return "fp16"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// ParsePrecision maps a name to a Precision. The empty string and "fp64"
// map to PrecisionKeep; "float32", "bfloat16" and "float16" are accepted aliases.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep", "fp64", "float64":
		return PrecisionKeep, nil
	case "fp32", "float32":
		return PrecisionFP32, nil
	case "bf16", "bfloat16":
		return PrecisionBF16, nil
	case "fp16", "float16":
		return PrecisionFP16, nil
	default:
		return PrecisionKeep, fmt.Errorf("%q: %w", s, ErrUnknownPrecision)
	}
}

// RoundTo rounds every element of m to precision p in place.
// Values outside the target range become ±Inf, exactly as a hardware cast would.
// Complexity: O(r*c).
func RoundTo(m *Dense, p Precision) error {
	if err := ValidateNotNil(m); err != nil {
		return matrixErrorf(opRoundTo, err)
	}
	RoundSlice(m.data, p)

	return nil
}

// RoundSlice rounds xs to precision p in place.
func RoundSlice(xs []float64, p Precision) {
	var round func(float64) float64
	switch p {
	case PrecisionFP32:
		round = roundFP32
	case PrecisionBF16:
		round = roundBF16
	case PrecisionFP16:
		round = roundFP16
	default:
		return
	}
	for i, v := range xs {
		xs[i] = round(v)
	}
}

func roundFP32(v float64) float64 { return float64(float32(v)) }

func roundFP16(v float64) float64 {
	return float64(float16.Fromfloat32(float32(v)).Float32())
}

// roundBF16 keeps the upper half of the binary32 pattern, rounding half to even.
// NaN stays NaN (quiet bit preserved).
func roundBF16(v float64) float64 {
	f := float32(v)
	if f != f {
		return v
	}
	bits := math.Float32bits(f)
	lsb := (bits >> 16) & 1
	bits += 0x7fff + lsb
	bits &= 0xffff0000

	return float64(math.Float32frombits(bits))
}
