// SPDX-License-Identifier: MIT
// File: enums.go
// Role: closed configuration axes with string parsing.
//
// Every axis is a small int type with a fixed name table. Parse* maps a name
// (case-insensitive) to its value; anything else is ErrInvalidConfiguration
// listing the accepted names. Values outside the table fail Config.Validate.

package adapter

import (
	"fmt"
	"strings"
)

// InitMode selects the initialization family.
type InitMode int

const (
	// ModeSimple samples A and B from named distributions.
	ModeSimple InitMode = iota
	// ModeSVD derives A and B from a truncated SVD of the weight.
	ModeSVD
	// ModeGradient derives A and B from a truncated SVD of the estimated gradient.
	ModeGradient
)

var modeNames = []string{"simple", "svd", "gradient"}

// ScalePolicy rescales raw factors. Validity depends on InitMode.
type ScalePolicy int

const (
	// ScaleDefault: simple → no rescale; svd → split √(S/s) between factors.
	ScaleDefault ScalePolicy = iota
	// ScaleStable multiplies by dimension powers and 1/√γ.
	ScaleStable
	// ScaleUnit keeps raw singular vectors.
	ScaleUnit
	// ScaleNormalized rescales by √(S/ΣS)·√rank.
	ScaleNormalized
	// ScaleGD divides both gradient factors by the adapter scaling.
	ScaleGD
	// ScaleWeightS multiplies gradient factors by mean √(S_W/s) of the weight spectrum.
	ScaleWeightS
)

var scaleNames = []string{"default", "stable", "unit", "normalized", "gd", "weightS"}

// Direction selects the gradient-mode formulation.
type Direction int

const (
	// DirectionLoRAOne uses the top-rank triplets of -G normalized by √S₀.
	DirectionLoRAOne Direction = iota
	// DirectionLoRAGA uses the second rank-block of left singular vectors of G.
	DirectionLoRAGA
)

var directionNames = []string{"LoRA-One", "LoRA-GA"}

// Distribution names a sampler for simple mode.
type Distribution int

const (
	DistZeros Distribution = iota
	DistGaussian
	DistUnit
	DistOrthogonal
	// DistKaiming resolves per factor: uniform (a=√5) for A, normal for B.
	DistKaiming
	DistKaimingUniform
	DistKaimingNormal
	DistFanOutKaiming
	DistXavier
)

var distributionNames = []string{
	"zeros", "gaussian", "unit", "orthogonal", "kaiming",
	"kaiming_uniform", "kaiming_normal", "fan_out_kaiming", "xavier",
}

// enumName returns names[v] or a numeric placeholder.
func enumName(kind string, v int, names []string) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}

	return fmt.Sprintf("%s(%d)", kind, v)
}

// parseEnum looks s up in names (case-insensitive, surrounding space ignored).
func parseEnum(field, s string, names []string) (int, error) {
	t := strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(t, n) {
			return i, nil
		}
	}

	return 0, configErrorf(field, fmt.Sprintf("%q", s), strings.Join(names, ", "))
}

func (m InitMode) String() string     { return enumName("InitMode", int(m), modeNames) }
func (p ScalePolicy) String() string  { return enumName("ScalePolicy", int(p), scaleNames) }
func (d Direction) String() string    { return enumName("Direction", int(d), directionNames) }
func (d Distribution) String() string { return enumName("Distribution", int(d), distributionNames) }

func (m InitMode) valid() bool     { return m >= 0 && int(m) < len(modeNames) }
func (p ScalePolicy) valid() bool  { return p >= 0 && int(p) < len(scaleNames) }
func (d Direction) valid() bool    { return d >= 0 && int(d) < len(directionNames) }
func (d Distribution) valid() bool { return d >= 0 && int(d) < len(distributionNames) }

// ParseInitMode parses "simple", "svd" or "gradient".
func ParseInitMode(s string) (InitMode, error) {
	v, err := parseEnum("mode", s, modeNames)
	return InitMode(v), err
}

// ParseScalePolicy parses a scale policy name.
func ParseScalePolicy(s string) (ScalePolicy, error) {
	v, err := parseEnum("scale", s, scaleNames)
	return ScalePolicy(v), err
}

// ParseDirection parses "LoRA-One" or "LoRA-GA".
func ParseDirection(s string) (Direction, error) {
	v, err := parseEnum("direction", s, directionNames)
	return Direction(v), err
}

// ParseDistribution parses a distribution name. field names the factor
// ("lora_A" or "lora_B") for error messages.
func ParseDistribution(field, s string) (Distribution, error) {
	v, err := parseEnum(field, s, distributionNames)
	return Distribution(v), err
}

// scalesFor lists the scale policies accepted by each mode.
var scalesFor = map[InitMode][]ScalePolicy{
	ModeSimple:   {ScaleDefault, ScaleStable},
	ModeSVD:      {ScaleDefault, ScaleStable, ScaleUnit, ScaleNormalized},
	ModeGradient: {ScaleGD, ScaleUnit, ScaleStable, ScaleWeightS},
}

// defaultScale is the policy used when none is configured.
var defaultScale = map[InitMode]ScalePolicy{
	ModeSimple:   ScaleDefault,
	ModeSVD:      ScaleDefault,
	ModeGradient: ScaleGD,
}

func scaleAccepted(m InitMode, p ScalePolicy) bool {
	for _, s := range scalesFor[m] {
		if s == p {
			return true
		}
	}

	return false
}

func scaleList(m InitMode) string {
	names := make([]string, 0, len(scalesFor[m]))
	for _, s := range scalesFor[m] {
		names = append(names, s.String())
	}

	return strings.Join(names, ", ")
}
