// SPDX-License-Identifier: MIT

// Package adapter: initialization configuration.
//
// A Config is an immutable value: build it with NewConfig(...Option) or
// decode it from YAML with LoadConfig. Both paths end in Validate, so a
// Config obtained without error is always internally consistent.
package adapter

import (
	"fmt"
	"math"
	"strings"

	"github.com/katalvlaran/lorainit/matrix"
)

// ---------- Defaults ----------

const (
	// DefaultGamma is the stability constant γ used by the stable policy.
	DefaultGamma = 1.0

	// DefaultSVDPowerIters is the number of power iterations for weight SVDs.
	DefaultSVDPowerIters = 4

	// DefaultGradientRank is the sketch width requested for gradient SVDs;
	// it is clamped to the smaller gradient dimension.
	DefaultGradientRank = 512

	// DefaultGradientPowerIters is the number of power iterations for gradient SVDs.
	DefaultGradientPowerIters = 16

	// DefaultSeed seeds simple-mode sampling and SVD sketches.
	DefaultSeed uint64 = 0
)

// Config selects how adapter factors are produced and post-processed.
type Config struct {
	Mode InitMode

	// LoraA and LoraB pick the samplers used in simple mode.
	LoraA, LoraB Distribution
	// StdA and StdB are the standard deviations of gaussian samplers.
	StdA, StdB float64

	Scale     ScalePolicy
	Direction Direction
	Gamma     float64

	// Precision is the storage format A, B and the magnitude are rounded to.
	Precision matrix.Precision
	// Clip rescales the offset so that its largest entry never exceeds the
	// largest weight entry.
	Clip bool
	// WeightDecomposition computes a per-row magnitude vector (DoRA) and
	// forces fp16 factor storage.
	WeightDecomposition bool

	Seed               uint64
	SVDPowerIters      int
	GradientRank       int
	GradientPowerIters int
}

// Option mutates a Config under construction.
type Option func(*Options)

// Options carries the Config being built plus bookkeeping for mode-dependent
// defaults.
type Options struct {
	cfg      Config
	scaleSet bool
}

// WithMode selects the initialization family.
func WithMode(m InitMode) Option { return func(o *Options) { o.cfg.Mode = m } }

// WithDistributions sets the simple-mode samplers for A and B.
func WithDistributions(a, b Distribution) Option {
	return func(o *Options) { o.cfg.LoraA, o.cfg.LoraB = a, b }
}

// WithStd sets the gaussian standard deviations for A and B.
func WithStd(a, b float64) Option {
	return func(o *Options) { o.cfg.StdA, o.cfg.StdB = a, b }
}

// WithScale sets the scale policy. Without it the mode default applies:
// default for simple and svd, gd for gradient.
func WithScale(p ScalePolicy) Option {
	return func(o *Options) { o.cfg.Scale, o.scaleSet = p, true }
}

// WithDirection selects the gradient-mode formulation.
func WithDirection(d Direction) Option { return func(o *Options) { o.cfg.Direction = d } }

// WithGamma sets the stability constant γ.
func WithGamma(g float64) Option { return func(o *Options) { o.cfg.Gamma = g } }

// WithPrecision sets the factor storage format.
func WithPrecision(p matrix.Precision) Option { return func(o *Options) { o.cfg.Precision = p } }

// WithClip toggles offset clipping.
func WithClip(on bool) Option { return func(o *Options) { o.cfg.Clip = on } }

// WithWeightDecomposition toggles the DoRA magnitude vector.
func WithWeightDecomposition(on bool) Option {
	return func(o *Options) { o.cfg.WeightDecomposition = on }
}

// WithSeed fixes the sampling seed.
func WithSeed(seed uint64) Option { return func(o *Options) { o.cfg.Seed = seed } }

// WithSVDPowerIters sets the power iterations of weight SVDs (svd mode, weightS).
func WithSVDPowerIters(n int) Option { return func(o *Options) { o.cfg.SVDPowerIters = n } }

// WithGradientSVD sets the sketch width and power iterations of gradient SVDs.
func WithGradientSVD(rank, iters int) Option {
	return func(o *Options) { o.cfg.GradientRank, o.cfg.GradientPowerIters = rank, iters }
}

func defaultConfig() Config {
	return Config{
		Mode:               ModeSimple,
		LoraA:              DistKaiming,
		LoraB:              DistZeros,
		Scale:              ScaleDefault,
		Direction:          DirectionLoRAOne,
		Gamma:              DefaultGamma,
		Precision:          matrix.PrecisionKeep,
		Seed:               DefaultSeed,
		SVDPowerIters:      DefaultSVDPowerIters,
		GradientRank:       DefaultGradientRank,
		GradientPowerIters: DefaultGradientPowerIters,
	}
}

// NewConfig applies opts on top of the defaults (last wins) and validates
// the result.
func NewConfig(opts ...Option) (Config, error) {
	o := Options{cfg: defaultConfig()}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if !o.scaleSet {
		if p, ok := defaultScale[o.cfg.Mode]; ok {
			o.cfg.Scale = p
		}
	}
	if err := o.cfg.Validate(); err != nil {
		return Config{}, adapterErrorf(opNewConfig, err)
	}

	return o.cfg, nil
}

// Validate reports the first inconsistency as ErrInvalidConfiguration.
// Checks run in field order: mode, samplers, scale, direction, gamma,
// precision, SVD budgets.
func (c Config) Validate() error {
	if !c.Mode.valid() {
		return configErrorf("mode", c.Mode, joinNames(modeNames))
	}
	if !c.LoraA.valid() {
		return configErrorf("lora_A", c.LoraA, joinNames(distributionNames))
	}
	if !c.LoraB.valid() {
		return configErrorf("lora_B", c.LoraB, joinNames(distributionNames))
	}
	if c.Mode == ModeSimple {
		if c.LoraA == DistGaussian && !positive(c.StdA) {
			return configErrorf("lora_A_std", c.StdA, "finite value > 0 with gaussian")
		}
		if c.LoraB == DistGaussian && !positive(c.StdB) {
			return configErrorf("lora_B_std", c.StdB, "finite value > 0 with gaussian")
		}
	}
	if !c.Scale.valid() || !scaleAccepted(c.Mode, c.Scale) {
		return configErrorf("scale", c.Scale, fmt.Sprintf("%s in %s mode", scaleList(c.Mode), c.Mode))
	}
	if !c.Direction.valid() {
		return configErrorf("direction", c.Direction, joinNames(directionNames))
	}
	if !positive(c.Gamma) {
		return configErrorf("stable_gamma", c.Gamma, "finite value > 0")
	}
	if c.Precision < matrix.PrecisionKeep || c.Precision > matrix.PrecisionFP16 {
		return configErrorf("dtype", c.Precision, "keep, fp32, bf16, fp16")
	}
	if c.SVDPowerIters < 0 {
		return configErrorf("svd_power_iters", c.SVDPowerIters, "value >= 0")
	}
	if c.GradientRank < 1 {
		return configErrorf("gradient_rank", c.GradientRank, "value >= 1")
	}
	if c.GradientPowerIters < 0 {
		return configErrorf("gradient_power_iters", c.GradientPowerIters, "value >= 0")
	}

	return nil
}

// skipsOffset reports whether Finalize leaves the weight untouched.
// LoRA-One starts from B@A aligned with -G and keeps W as is.
func (c Config) skipsOffset() bool {
	return c.Mode == ModeGradient && c.Direction == DirectionLoRAOne
}

// storagePrecision is the format factors are rounded to.
func (c Config) storagePrecision() matrix.Precision {
	if c.WeightDecomposition {
		return matrix.PrecisionFP16
	}

	return c.Precision
}

func positive(x float64) bool { return x > 0 && !math.IsInf(x, 0) }

func joinNames(names []string) string { return strings.Join(names, ", ") }
