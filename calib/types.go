// SPDX-License-Identifier: MIT

package calib

import (
	"context"
	"sort"

	"github.com/katalvlaran/lorainit/matrix"
)

// GradientMap maps a parameter name to a gradient with the parameter's shape.
// A missing entry means "no gradient", never zero.
type GradientMap map[string]*matrix.Dense

// Names returns the keys in ascending order.
func (g GradientMap) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Batch is an opaque slice of a Dataset understood by the matching Model.
type Batch interface {
	// Len returns the number of examples in the batch.
	Len() int
}

// Dataset is an indexable, fixed-order collection of examples.
type Dataset interface {
	// Len returns the number of examples.
	Len() int
	// Batch returns examples [lo, hi). 0 ≤ lo < hi ≤ Len().
	Batch(lo, hi int) (Batch, error)
}

// Step is the result of one forward+backward pass.
type Step struct {
	// Loss is the mean loss over the batch.
	Loss float64
	// Grads holds the gradient of every trainable parameter for this batch.
	// Entries may alias model-owned buffers that ZeroGrad clears.
	Grads GradientMap
}

// Model runs forward and backward passes against the current parameter values.
type Model interface {
	Step(ctx context.Context, b Batch) (Step, error)
	ZeroGrad()
}
