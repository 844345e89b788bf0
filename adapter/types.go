// SPDX-License-Identifier: MIT

package adapter

import (
	"math"

	"github.com/katalvlaran/lorainit/matrix"
)

// Target is one frozen weight receiving an adapter.
// Weight is out×in; Rank and Scaling describe the adapter attached to it.
type Target struct {
	Name    string
	Weight  *matrix.Dense
	Rank    int
	Scaling float64
}

// Factors holds the trainable adapter of a single target:
// A is rank×in, B is out×rank, and the adapted weight is W + Scaling·B@A.
// Magnitude is the per-row norm vector of the decomposed weight and is nil
// unless weight decomposition is enabled.
type Factors struct {
	A         *matrix.Dense
	B         *matrix.Dense
	Scaling   float64
	Magnitude []float64
}

// Rank is the number of rows of A.
func (f *Factors) Rank() int { return f.A.Rows() }

// Delta returns Scaling·B@A as a fresh out×in matrix.
func (f *Factors) Delta() (*matrix.Dense, error) {
	ba, err := matrix.Mul(f.B, f.A)
	if err != nil {
		return nil, err
	}
	if err = matrix.ScaleInPlace(ba, f.Scaling); err != nil {
		return nil, err
	}

	return ba, nil
}

// ExportScaling is the scaling to persist alongside the factors.
// Gradient runs other than LoRA-One store -s.
func (f *Factors) ExportScaling(cfg Config) float64 {
	if cfg.Mode == ModeGradient && cfg.Direction != DirectionLoRAOne {
		return -f.Scaling
	}

	return f.Scaling
}

// Scaling returns the adapter scaling alpha/rank, or alpha/√rank with rsLoRA.
// A non-positive rank yields 0.
func Scaling(alpha float64, rank int, rsLoRA bool) float64 {
	if rank <= 0 {
		return 0
	}
	if rsLoRA {
		return alpha / math.Sqrt(float64(rank))
	}

	return alpha / float64(rank)
}
