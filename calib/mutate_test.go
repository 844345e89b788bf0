// SPDX-License-Identifier: MIT
package calib_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lorainit/calib"
	"github.com/katalvlaran/lorainit/matrix"
	"github.com/katalvlaran/lorainit/weights"
)

// fixture returns a store with two parameters and a delta map for both plus
// one name without a live parameter.
func fixture(t *testing.T) (*weights.Store, calib.GradientMap) {
	t.Helper()
	s := weights.NewStore()
	a, err := matrix.NewDenseFrom(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	b, err := matrix.NewDenseFrom(1, 3, []float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	require.NoError(t, s.Register("a", a))
	require.NoError(t, s.Register("b", b))

	da, err := matrix.NewDenseFrom(2, 2, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	db, err := matrix.NewDenseFrom(1, 3, []float64{1, 0, -1})
	require.NoError(t, err)
	ghost, err := matrix.NewDense(5, 5)
	require.NoError(t, err)

	return s, calib.GradientMap{"a": da, "b": db, "ghost": ghost}
}

// requireRestored asserts bit-exact equality with a snapshot.
func requireRestored(t *testing.T, want map[string]*matrix.Dense, s *weights.Store) {
	t.Helper()
	for name, w := range want {
		got, ok := s.Lookup(name)
		require.True(t, ok)
		if diff := cmp.Diff(w.RawData(), got.RawData()); diff != "" {
			t.Fatalf("%s not restored (-before +after):\n%s", name, diff)
		}
	}
}

func TestWithMutation_NormalExit(t *testing.T) {
	s, deltas := fixture(t)
	before := s.Snapshot()

	err := calib.WithMutation(s, deltas, 0.5, func() error {
		a, _ := s.Lookup("a")
		b, _ := s.Lookup("b")
		assert.Equal(t, []float64{0.5, 1.5, 2.5, 3.5}, a.RawData())
		assert.InDeltaSlice(t, []float64{-0.4, 0.2, 0.8}, b.RawData(), 1e-15)
		return nil
	})
	require.NoError(t, err)
	requireRestored(t, before, s)
}

func TestWithMutation_ErrorExit(t *testing.T) {
	s, deltas := fixture(t)
	before := s.Snapshot()

	err := calib.WithMutation(s, deltas, 3, func() error { return errBoom })
	require.ErrorIs(t, err, errBoom)
	requireRestored(t, before, s)
}

func TestWithMutation_PanicExit(t *testing.T) {
	s, deltas := fixture(t)
	before := s.Snapshot()

	require.PanicsWithValue(t, "mid-evaluation", func() {
		_ = calib.WithMutation(s, deltas, 1, func() error { panic("mid-evaluation") })
	})
	requireRestored(t, before, s)
}

func TestWithMutation_ShapeMismatchWritesNothing(t *testing.T) {
	s, deltas := fixture(t)
	before := s.Snapshot()

	bad, err := matrix.NewDense(3, 1)
	require.NoError(t, err)
	deltas["b"] = bad

	called := false
	err = calib.WithMutation(s, deltas, 1, func() error { called = true; return nil })
	require.ErrorIs(t, err, calib.ErrShapeMismatch)
	require.False(t, called)
	requireRestored(t, before, s)
}

func TestWithMutation_Validation(t *testing.T) {
	s, deltas := fixture(t)

	err := calib.WithMutation(s, deltas, math.NaN(), func() error { return nil })
	require.ErrorIs(t, err, calib.ErrInvalidEta)

	err = calib.WithMutation(nil, deltas, 1, func() error { return nil })
	require.ErrorIs(t, err, calib.ErrNilArgument)

	err = calib.WithMutation(s, deltas, 1, nil)
	require.ErrorIs(t, err, calib.ErrNilArgument)
}
