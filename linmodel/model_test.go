// SPDX-License-Identifier: MIT
package linmodel_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lorainit/calib"
	"github.com/katalvlaran/lorainit/linmodel"
	"github.com/katalvlaran/lorainit/matrix"
	"github.com/katalvlaran/lorainit/weights"
)

func mustDense(t *testing.T, rows, cols int, data ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows, cols, data)
	require.NoError(t, err)

	return m
}

func randDense(t *testing.T, rows, cols int, rng *rand.Rand) *matrix.Dense {
	t.Helper()
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}

	return mustDense(t, rows, cols, data...)
}

// twoLayer returns a 4→3→2 network and 6 random samples.
func twoLayer(t *testing.T) (*weights.Store, *linmodel.Model, linmodel.Dataset) {
	t.Helper()
	rng := rand.New(rand.NewSource(17))
	s := weights.NewStore()
	require.NoError(t, s.Register("l0", randDense(t, 3, 4, rng)))
	require.NoError(t, s.Register("l1", randDense(t, 2, 3, rng)))
	m, err := linmodel.New(s, "l0", "l1")
	require.NoError(t, err)

	data := make(linmodel.Dataset, 6)
	for i := range data {
		data[i] = linmodel.Sample{
			X: []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()},
			Y: []float64{rng.NormFloat64(), rng.NormFloat64()},
		}
	}

	return s, m, data
}

func TestStep_SingleLayer(t *testing.T) {
	s := weights.NewStore()
	require.NoError(t, s.Register("w", mustDense(t, 1, 2, 1, 2)))
	m, err := linmodel.New(s, "w")
	require.NoError(t, err)

	// ŷ = 3, 2; e = 3, 1; loss = (4.5 + 0.5)/2; ∇ = ([3 3] + [2 0])/2
	st, err := m.Step(context.Background(), linmodel.Batch{
		{X: []float64{1, 1}, Y: []float64{0}},
		{X: []float64{2, 0}, Y: []float64{1}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, st.Loss, 1e-15)
	assert.InDeltaSlice(t, []float64{2.5, 1.5}, st.Grads["w"].RawData(), 1e-15)
}

func TestStep_FiniteDifferences(t *testing.T) {
	s, m, data := twoLayer(t)
	ctx := context.Background()

	st, err := m.Step(ctx, linmodel.Batch(data))
	require.NoError(t, err)
	grads := map[string][]float64{}
	for name, g := range st.Grads {
		grads[name] = append([]float64(nil), g.RawData()...)
	}
	m.ZeroGrad()

	const h = 1e-6
	for _, name := range []string{"l0", "l1"} {
		w, _ := s.Lookup(name)
		for idx := range w.RawData() {
			orig := w.RawData()[idx]
			w.RawData()[idx] = orig + h
			up, err := m.Loss(ctx, data, len(data))
			require.NoError(t, err)
			w.RawData()[idx] = orig - h
			down, err := m.Loss(ctx, data, len(data))
			require.NoError(t, err)
			w.RawData()[idx] = orig

			assert.InDelta(t, (up-down)/(2*h), grads[name][idx], 1e-6, "%s[%d]", name, idx)
		}
	}
}

func TestStep_AccumulatesUntilZeroGrad(t *testing.T) {
	_, m, data := twoLayer(t)
	ctx := context.Background()

	first, err := m.Step(ctx, linmodel.Batch(data[:2]))
	require.NoError(t, err)
	once := append([]float64(nil), first.Grads["l1"].RawData()...)

	second, err := m.Step(ctx, linmodel.Batch(data[:2]))
	require.NoError(t, err)
	for i, v := range second.Grads["l1"].RawData() {
		assert.InDelta(t, 2*once[i], v, 1e-12)
	}
	require.Same(t, first.Grads["l1"], second.Grads["l1"], "buffers are model-owned")

	m.ZeroGrad()
	for _, v := range second.Grads["l1"].RawData() {
		require.Zero(t, v)
	}
}

func TestStep_FrozenLayerHasNoGradient(t *testing.T) {
	s, m, data := twoLayer(t)
	require.NoError(t, s.SetTrainable("l0", false))

	st, err := m.Step(context.Background(), linmodel.Batch(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, st.Grads.Names())
}

type foreignBatch struct{}

func (foreignBatch) Len() int { return 1 }

func TestStep_Errors(t *testing.T) {
	_, m, data := twoLayer(t)

	_, err := m.Step(context.Background(), foreignBatch{})
	require.ErrorIs(t, err, linmodel.ErrBatchType)

	_, err = m.Step(context.Background(), linmodel.Batch{{X: []float64{1}, Y: []float64{1, 2}}})
	require.ErrorIs(t, err, linmodel.ErrShape)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Step(ctx, linmodel.Batch(data))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_Errors(t *testing.T) {
	s := weights.NewStore()
	require.NoError(t, s.Register("a", mustDense(t, 2, 3, 1, 2, 3, 4, 5, 6)))
	require.NoError(t, s.Register("b", mustDense(t, 1, 3, 1, 2, 3)))

	_, err := linmodel.New(s)
	require.ErrorIs(t, err, linmodel.ErrShape)
	_, err = linmodel.New(s, "a", "b")
	require.ErrorIs(t, err, linmodel.ErrShape)
	_, err = linmodel.New(s, "a", "missing")
	require.ErrorIs(t, err, weights.ErrNotFound)
}

func TestLoss_Validation(t *testing.T) {
	_, m, data := twoLayer(t)

	_, err := m.Loss(context.Background(), data, 0)
	require.ErrorIs(t, err, calib.ErrBadBatchSize)
	_, err = m.Loss(context.Background(), linmodel.Dataset{}, 2)
	require.ErrorIs(t, err, calib.ErrEmptyDataset)
}
