// SPDX-License-Identifier: MIT
// File: dataset.go
// Role: in-memory regression samples and their JSON form.

package linmodel

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-json-experiment/json"

	"github.com/katalvlaran/lorainit/calib"
)

// ErrBadDataset indicates samples with inconsistent or non-finite vectors.
var ErrBadDataset = errors.New("linmodel: malformed dataset")

// Sample is one input/target pair.
type Sample struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Batch is a contiguous run of samples.
type Batch []Sample

// Len implements calib.Batch.
func (b Batch) Len() int { return len(b) }

// Dataset is a fixed-order slice of samples.
type Dataset []Sample

var _ calib.Dataset = Dataset(nil)

// Len implements calib.Dataset.
func (d Dataset) Len() int { return len(d) }

// Batch returns samples [lo, hi) without copying.
func (d Dataset) Batch(lo, hi int) (calib.Batch, error) {
	if lo < 0 || hi > len(d) || lo >= hi {
		return nil, fmt.Errorf("linmodel: batch [%d,%d) outside dataset of %d", lo, hi, len(d))
	}

	return Batch(d[lo:hi]), nil
}

// Validate checks that every sample has finite vectors of the same lengths
// as the first one.
func (d Dataset) Validate() error {
	if len(d) == 0 {
		return nil
	}
	nx, ny := len(d[0].X), len(d[0].Y)
	if nx == 0 || ny == 0 {
		return fmt.Errorf("sample 0: empty vector: %w", ErrBadDataset)
	}
	for i, s := range d {
		if len(s.X) != nx || len(s.Y) != ny {
			return fmt.Errorf("sample %d: got %d/%d values, want %d/%d: %w", i, len(s.X), len(s.Y), nx, ny, ErrBadDataset)
		}
		if !finite(s.X) || !finite(s.Y) {
			return fmt.Errorf("sample %d: non-finite value: %w", i, ErrBadDataset)
		}
	}

	return nil
}

type datasetDoc struct {
	Samples []Sample `json:"samples"`
}

// LoadDataset decodes {"samples": [{"x": [...], "y": [...]}, ...]} from r.
func LoadDataset(r io.Reader) (Dataset, error) {
	var doc datasetDoc
	if err := json.UnmarshalRead(r, &doc); err != nil {
		return nil, fmt.Errorf("linmodel: decode: %w", err)
	}
	d := Dataset(doc.Samples)
	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// LoadDatasetFile opens path and calls LoadDataset.
func LoadDatasetFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadDataset(f)
}

func finite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}
