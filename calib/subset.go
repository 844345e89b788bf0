// SPDX-License-Identifier: MIT

package calib

import "fmt"

// Subset returns a view of the first n examples of data (the calibration
// subset, typically batchSize·iterations). If n ≥ data.Len() data itself is
// returned.
//
// Errors:
//   - ErrNilArgument for a nil dataset, ErrEmptyDataset for n ≤ 0.
func Subset(data Dataset, n int) (Dataset, error) {
	if data == nil {
		return nil, calibErrorf(opSubset, ErrNilArgument)
	}
	if n <= 0 {
		return nil, calibErrorf(opSubset, fmt.Errorf("n=%d: %w", n, ErrEmptyDataset))
	}
	if n >= data.Len() {
		return data, nil
	}

	return prefix{Dataset: data, n: n}, nil
}

// prefix exposes examples [0, n) of an underlying Dataset.
type prefix struct {
	Dataset
	n int
}

func (p prefix) Len() int { return p.n }

func (p prefix) Batch(lo, hi int) (Batch, error) {
	if lo < 0 || hi > p.n || lo >= hi {
		return nil, fmt.Errorf("calib: batch [%d,%d) outside subset of %d", lo, hi, p.n)
	}

	return p.Dataset.Batch(lo, hi)
}
