// SPDX-License-Identifier: MIT
// Package calib_test holds the deterministic fakes shared by calib tests.
package calib_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lorainit/calib"
	"github.com/katalvlaran/lorainit/matrix"
	"github.com/katalvlaran/lorainit/weights"
)

var errBoom = errors.New("boom")

// items is a Dataset of scalars; every batch is itself an items slice.
type items []float64

func (x items) Len() int { return len(x) }

func (x items) Batch(lo, hi int) (calib.Batch, error) {
	if lo < 0 || hi > len(x) || lo >= hi {
		return nil, fmt.Errorf("batch [%d,%d) of %d", lo, hi, len(x))
	}

	return x[lo:hi], nil
}

// meanModel reports the batch mean as the gradient of "w" (1×1), writing it
// into a single reused buffer the way autograd reuses .grad tensors.
type meanModel struct {
	buf    *matrix.Dense
	frozen *matrix.Dense
	steps  int
	zeroed int
	failAt int // Step index that fails; -1 never
	seen   []int
}

func newMeanModel(t *testing.T) *meanModel {
	t.Helper()
	buf, err := matrix.NewDense(1, 1)
	require.NoError(t, err)
	frozen, err := matrix.NewDense(1, 1)
	require.NoError(t, err)

	return &meanModel{buf: buf, frozen: frozen, failAt: -1}
}

func (m *meanModel) Step(_ context.Context, b calib.Batch) (calib.Step, error) {
	if m.steps == m.failAt {
		return calib.Step{}, errBoom
	}
	m.steps++
	xs := b.(items)
	m.seen = append(m.seen, xs.Len())

	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	mean := sum / float64(len(xs))
	m.buf.RawData()[0] += mean
	m.frozen.RawData()[0] += 1

	return calib.Step{
		Loss:  mean,
		Grads: calib.GradientMap{"w": m.buf, "frozen": m.frozen, "none": nil},
	}, nil
}

func (m *meanModel) ZeroGrad() {
	m.zeroed++
	m.buf.RawData()[0] = 0
	m.frozen.RawData()[0] = 0
}

// quadModel evaluates loss = (p - target)² on the scalar parameter "p".
type quadModel struct {
	store  *weights.Store
	target float64
	zeroed int
	// observed collects the parameter value seen by every Step.
	observed []float64
}

func (q *quadModel) Step(_ context.Context, _ calib.Batch) (calib.Step, error) {
	p, _ := q.store.Lookup("p")
	v := p.RawData()[0]
	q.observed = append(q.observed, v)
	d := v - q.target

	g, err := matrix.NewDenseFrom(1, 1, []float64{2 * d})
	if err != nil {
		return calib.Step{}, err
	}

	return calib.Step{Loss: d * d, Grads: calib.GradientMap{"p": g}}, nil
}

func (q *quadModel) ZeroGrad() { q.zeroed++ }

// constModel returns the same loss for every batch.
type constModel struct{ loss float64 }

func (c constModel) Step(context.Context, calib.Batch) (calib.Step, error) {
	return calib.Step{Loss: c.loss}, nil
}

func (constModel) ZeroGrad() {}

// nanAbove returns NaN once "p" exceeds limit, else a finite loss of p.
type nanAbove struct {
	store *weights.Store
	limit float64
}

func (n nanAbove) Step(context.Context, calib.Batch) (calib.Step, error) {
	p, _ := n.store.Lookup("p")
	v := p.RawData()[0]
	if v > n.limit {
		return calib.Step{Loss: math.NaN()}, nil
	}

	return calib.Step{Loss: -v}, nil
}

func (nanAbove) ZeroGrad() {}

// scalarStore returns a store holding "p" = v (1×1).
func scalarStore(t *testing.T, v float64) *weights.Store {
	t.Helper()
	s := weights.NewStore()
	m, err := matrix.NewDenseFrom(1, 1, []float64{v})
	require.NoError(t, err)
	require.NoError(t, s.Register("p", m))

	return s
}

// scalar returns the 1×1 value of name in s.
func scalar(t *testing.T, s *weights.Store, name string) float64 {
	t.Helper()
	m, ok := s.Lookup(name)
	require.True(t, ok)

	return m.RawData()[0]
}
