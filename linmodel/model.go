// SPDX-License-Identifier: MIT
// File: model.go
// Role: a chain of linear layers with squared-error loss.
//
// Forward:  h₀ = x, h_{k+1} = W_k·h_k, ŷ = h_L
// Loss:     mean over the batch of ½‖ŷ − y‖²
// Backward: δ_L = ŷ − y, ∇W_k += δ_{k+1}·h_kᵀ / n, δ_k = W_kᵀ·δ_{k+1}
//
// Gradients accumulate into model-owned buffers until ZeroGrad, and Step
// returns those buffers directly.

package linmodel

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lorainit/calib"
	"github.com/katalvlaran/lorainit/matrix"
	"github.com/katalvlaran/lorainit/weights"
)

// ErrShape indicates layers that do not chain, or samples that do not fit.
var ErrShape = errors.New("linmodel: shape mismatch")

// ErrBatchType indicates a calib.Batch not produced by a linmodel Dataset.
var ErrBatchType = errors.New("linmodel: unsupported batch type")

// Model evaluates layers read live from a weight store.
type Model struct {
	store  *weights.Store
	layers []string
	grads  map[string]*matrix.Dense
}

var _ calib.Model = (*Model)(nil)

// New binds layers (in forward order) of store. Every layer must exist and
// consecutive layers must chain: cols(W_{k+1}) = rows(W_k).
func New(store *weights.Store, layers ...string) (*Model, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("no layers: %w", ErrShape)
	}
	m := &Model{store: store, layers: append([]string(nil), layers...), grads: make(map[string]*matrix.Dense, len(layers))}

	prevRows := -1
	for _, name := range layers {
		w, ok := store.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("layer %q: %w", name, weights.ErrNotFound)
		}
		if prevRows >= 0 && w.Cols() != prevRows {
			return nil, fmt.Errorf("layer %q has %d inputs, previous layer %d outputs: %w", name, w.Cols(), prevRows, ErrShape)
		}
		prevRows = w.Rows()
		g, err := matrix.NewDense(w.Rows(), w.Cols())
		if err != nil {
			return nil, err
		}
		m.grads[name] = g
	}

	return m, nil
}

// In is the input width.
func (m *Model) In() int {
	w, _ := m.store.Lookup(m.layers[0])
	return w.Cols()
}

// Out is the output width.
func (m *Model) Out() int {
	w, _ := m.store.Lookup(m.layers[len(m.layers)-1])
	return w.Rows()
}

// Step runs forward and backward over b. Frozen layers (store.Trainable is
// false) get no gradient entry.
func (m *Model) Step(ctx context.Context, b calib.Batch) (calib.Step, error) {
	if err := ctx.Err(); err != nil {
		return calib.Step{}, err
	}
	batch, ok := b.(Batch)
	if !ok {
		return calib.Step{}, fmt.Errorf("%T: %w", b, ErrBatchType)
	}
	if len(batch) == 0 {
		return calib.Step{}, fmt.Errorf("empty batch: %w", ErrShape)
	}

	ws := make([]*mat.Dense, len(m.layers))
	gs := make([]*mat.Dense, len(m.layers))
	for k, name := range m.layers {
		w, ok := m.store.Lookup(name)
		if !ok {
			return calib.Step{}, fmt.Errorf("layer %q: %w", name, weights.ErrNotFound)
		}
		ws[k] = mat.NewDense(w.Rows(), w.Cols(), w.RawData())
		g := m.grads[name]
		gs[k] = mat.NewDense(g.Rows(), g.Cols(), g.RawData())
	}

	inv := 1 / float64(len(batch))
	loss := 0.0
	acts := make([]*mat.VecDense, len(ws)+1)
	for i, s := range batch {
		if len(s.X) != m.In() || len(s.Y) != m.Out() {
			return calib.Step{}, fmt.Errorf("sample %d: x/y lengths %d/%d, model %d/%d: %w",
				i, len(s.X), len(s.Y), m.In(), m.Out(), ErrShape)
		}

		acts[0] = mat.NewVecDense(len(s.X), s.X)
		for k, w := range ws {
			r, _ := w.Dims()
			acts[k+1] = mat.NewVecDense(r, nil)
			acts[k+1].MulVec(w, acts[k])
		}

		delta := mat.NewVecDense(len(s.Y), nil)
		delta.SubVec(acts[len(ws)], mat.NewVecDense(len(s.Y), s.Y))
		loss += 0.5 * mat.Dot(delta, delta)

		for k := len(ws) - 1; k >= 0; k-- {
			gs[k].RankOne(gs[k], inv, delta, acts[k])
			if k > 0 {
				_, c := ws[k].Dims()
				next := mat.NewVecDense(c, nil)
				next.MulVec(ws[k].T(), delta)
				delta = next
			}
		}
	}

	grads := make(calib.GradientMap, len(m.layers))
	for _, name := range m.layers {
		if m.store.Trainable(name) {
			grads[name] = m.grads[name]
		}
	}

	return calib.Step{Loss: loss * inv, Grads: grads}, nil
}

// ZeroGrad clears every gradient buffer.
func (m *Model) ZeroGrad() {
	for _, g := range m.grads {
		clear(g.RawData())
	}
}

// Loss returns the mean per-batch loss over data. Gradient buffers are
// cleared after every batch.
func (m *Model) Loss(ctx context.Context, data calib.Dataset, batchSize int) (float64, error) {
	if batchSize <= 0 {
		return 0, calib.ErrBadBatchSize
	}
	n := data.Len()
	if n == 0 {
		return 0, calib.ErrEmptyDataset
	}
	total, batches := 0.0, 0
	for lo := 0; lo < n; lo += batchSize {
		b, err := data.Batch(lo, min(lo+batchSize, n))
		if err != nil {
			return 0, err
		}
		st, err := m.Step(ctx, b)
		m.ZeroGrad()
		if err != nil {
			return 0, err
		}
		total += st.Loss
		batches++
	}

	return total / float64(batches), nil
}
