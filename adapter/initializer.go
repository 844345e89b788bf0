// SPDX-License-Identifier: MIT

// Package adapter: factor initialization.
//
// Initialize turns a Target (plus, in gradient mode, its estimated gradient)
// into fresh Factors. It never touches the target weight; Finalize applies
// the offset afterwards.
//
// Validation order (nothing is allocated for the result until all pass):
//
//	configuration → target scaling and weight → rank → gradient presence/shape/content
package adapter

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/katalvlaran/lorainit/calib"
	"github.com/katalvlaran/lorainit/matrix"
)

// RunOption configures Initializer, Finalize and Reinit.
type RunOption func(*runOptions)

type runOptions struct {
	logger *zap.Logger
}

// WithLogger routes diagnostics (clip warnings, per-target progress) to l.
// nil keeps the no-op logger.
func WithLogger(l *zap.Logger) RunOption {
	return func(o *runOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func gatherRunOptions(opts ...RunOption) runOptions {
	o := runOptions{logger: zap.NewNop()}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}

// Initializer produces Factors for targets under a fixed Config.
type Initializer struct {
	cfg Config
	log *zap.Logger
}

// NewInitializer validates cfg and binds it.
func NewInitializer(cfg Config, opts ...RunOption) (*Initializer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, adapterErrorf(opNewInitiali, err)
	}
	o := gatherRunOptions(opts...)

	return &Initializer{cfg: cfg, log: o.logger}, nil
}

// Config returns the bound configuration.
func (in *Initializer) Config() Config { return in.cfg }

// Initialize computes the factors of t. grads is consulted in gradient mode
// only and may be nil otherwise.
//
// Errors (all wrapped with the target name):
//   - ErrInvalidConfiguration: non-positive or non-finite t.Scaling.
//   - ErrInvalidRank: rank outside (0, min(out,in)), or 2·rank > min(out,in) for LoRA-GA.
//   - ErrMissingGradient, ErrShapeMismatch, ErrNumericalInstability,
//     ErrDegenerateGradient: gradient mode input problems.
//   - matrix errors from a nil or non-finite weight.
func (in *Initializer) Initialize(t Target, grads calib.GradientMap) (*Factors, error) {
	f, err := in.initialize(t, grads)
	if err != nil {
		return nil, adapterErrorf(opInitialize, fmt.Errorf("%s: %w", t.Name, err))
	}
	in.log.Debug("factors initialized",
		zap.String("target", t.Name),
		zap.Stringer("mode", in.cfg.Mode),
		zap.Stringer("scale", in.cfg.Scale),
		zap.Int("rank", t.Rank),
	)

	return f, nil
}

func (in *Initializer) initialize(t Target, grads calib.GradientMap) (*Factors, error) {
	cfg := in.cfg
	if !positive(t.Scaling) {
		return nil, configErrorf("scaling", t.Scaling, "finite value > 0")
	}
	if err := matrix.ValidateFinite(t.Weight); err != nil {
		return nil, err
	}
	if err := checkRank(cfg, t); err != nil {
		return nil, err
	}

	var (
		a, b *matrix.Dense
		err  error
	)
	switch cfg.Mode {
	case ModeSimple:
		a, b, err = initSimple(cfg, t, in.rng(t.Name))
	case ModeSVD:
		a, b, err = initSVD(cfg, t, in.seed(t.Name))
	case ModeGradient:
		var g *matrix.Dense
		if g, err = lookupGradient(t, grads); err != nil {
			return nil, err
		}
		a, b, err = initGradient(cfg, t, g, in.seed(t.Name))
	default:
		err = configErrorf("mode", cfg.Mode, joinNames(modeNames))
	}
	if err != nil {
		return nil, err
	}

	f := &Factors{A: a, B: b, Scaling: t.Scaling}
	if cfg.WeightDecomposition {
		if f.Magnitude, err = magnitude(t.Weight, f); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// checkRank enforces 0 < rank < min(out,in); LoRA-GA reads the second block
// of singular vectors and additionally needs 2·rank ≤ min(out,in).
func checkRank(cfg Config, t Target) error {
	out, inDim := t.Weight.Shape()
	lim := min(out, inDim)
	if t.Rank <= 0 || t.Rank >= lim {
		return fmt.Errorf("rank=%d for %dx%d weight (need 0 < rank < %d): %w",
			t.Rank, out, inDim, lim, ErrInvalidRank)
	}
	if cfg.Mode == ModeGradient && cfg.Direction == DirectionLoRAGA && 2*t.Rank > lim {
		return fmt.Errorf("rank=%d for %dx%d weight (LoRA-GA needs 2*rank <= %d): %w",
			t.Rank, out, inDim, lim, ErrInvalidRank)
	}

	return nil
}

// lookupGradient returns the gradient of t, checking presence, shape,
// finiteness and that it is not identically zero.
func lookupGradient(t Target, grads calib.GradientMap) (*matrix.Dense, error) {
	g, ok := grads[t.Name]
	if !ok || g == nil {
		return nil, ErrMissingGradient
	}
	out, inDim := t.Weight.Shape()
	if err := matrix.ValidateShape(g, out, inDim); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	peak, err := matrix.MaxAbs(g)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(peak) || math.IsInf(peak, 0) {
		return nil, fmt.Errorf("gradient: %w", ErrNumericalInstability)
	}
	if peak == 0 {
		return nil, ErrDegenerateGradient
	}

	return g, nil
}

// magnitude is the row-wise L2 norm of W + s·B@A.
func magnitude(w *matrix.Dense, f *Factors) ([]float64, error) {
	delta, err := f.Delta()
	if err != nil {
		return nil, err
	}
	v, err := matrix.Add(w, delta)
	if err != nil {
		return nil, err
	}

	return matrix.RowNormsL2(v)
}

// seed mixes Config.Seed with the FNV-1a hash of the target name.
func (in *Initializer) seed(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))

	return in.cfg.Seed ^ h.Sum64()
}

func (in *Initializer) rng(name string) *rand.Rand {
	s := in.seed(name)

	return rand.New(rand.NewPCG(in.cfg.Seed, s))
}
