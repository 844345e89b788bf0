// SPDX-License-Identifier: MIT

package adapter

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lorainit/matrix"
)

// FileConfig is the YAML layout of a run: an init section describing how
// factors are produced and a peft section describing the adapters.
//
//	init:
//	  mode: gradient
//	  direction: LoRA-One
//	  scale: stable
//	  stable_gamma: 64
//	  bsz: 2
//	  iters: 8
//	peft:
//	  lora_r: 8
//	  lora_alpha: 16
type FileConfig struct {
	Init InitSection `yaml:"init"`
	Peft PeftSection `yaml:"peft"`
}

// InitSection mirrors Config. Empty strings and absent numbers take the
// NewConfig defaults.
type InitSection struct {
	Mode      string   `yaml:"mode"`
	LoraA     string   `yaml:"lora_A"`
	LoraB     string   `yaml:"lora_B"`
	StdA      float64  `yaml:"lora_A_std"`
	StdB      float64  `yaml:"lora_B_std"`
	Scale     string   `yaml:"scale"`
	Direction string   `yaml:"direction"`
	Gamma     *float64 `yaml:"stable_gamma"`
	DType     string   `yaml:"dtype"`
	Clip      bool     `yaml:"norm_clip"`
	Seed      uint64   `yaml:"seed"`

	SVDPowerIters      *int `yaml:"svd_power_iters"`
	GradientRank       *int `yaml:"gradient_rank"`
	GradientPowerIters *int `yaml:"gradient_power_iters"`

	// BatchSize and Iters size the calibration subset (BatchSize*Iters samples).
	BatchSize int `yaml:"bsz"`
	Iters     int `yaml:"iters"`
}

// PeftSection describes the adapters attached to each target.
type PeftSection struct {
	Rank         int      `yaml:"lora_r"`
	RelativeRank *float64 `yaml:"lora_relative_r"`
	Alpha        float64  `yaml:"lora_alpha"`
	RSLoRA       bool     `yaml:"use_rslora"`
	Dora         bool     `yaml:"dora"`
	// Targets lists last-segment parameter names; empty or ["all"] targets
	// every eligible matrix.
	Targets []string `yaml:"target_modules"`
}

// LoadConfig decodes YAML from r. Unknown keys are rejected, and the init
// section is validated by building its Config.
func LoadConfig(r io.Reader) (*FileConfig, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, adapterErrorf(opLoadConfig, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err))
	}
	if _, err := fc.Config(); err != nil {
		return nil, adapterErrorf(opLoadConfig, err)
	}
	if fc.Peft.Rank < 0 {
		return nil, adapterErrorf(opLoadConfig, configErrorf("lora_r", fc.Peft.Rank, "value >= 0"))
	}
	if fc.Peft.RelativeRank != nil && !positive(*fc.Peft.RelativeRank) {
		return nil, adapterErrorf(opLoadConfig, configErrorf("lora_relative_r", *fc.Peft.RelativeRank, "finite value > 0"))
	}

	return &fc, nil
}

// LoadConfigFile opens path and calls LoadConfig.
func LoadConfigFile(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, adapterErrorf(opLoadConfig, err)
	}
	defer f.Close()

	return LoadConfig(f)
}

// Config converts the init section (plus peft.dora) into a validated Config.
func (fc *FileConfig) Config() (Config, error) {
	in := fc.Init
	opts := []Option{
		WithStd(in.StdA, in.StdB),
		WithClip(in.Clip),
		WithSeed(in.Seed),
		WithWeightDecomposition(fc.Peft.Dora),
	}

	if in.Mode != "" {
		m, err := ParseInitMode(in.Mode)
		if err != nil {
			return Config{}, err
		}
		opts = append(opts, WithMode(m))
	}
	if in.LoraA != "" || in.LoraB != "" {
		a, b := DistKaiming, DistZeros
		var err error
		if in.LoraA != "" {
			if a, err = ParseDistribution("lora_A", in.LoraA); err != nil {
				return Config{}, err
			}
		}
		if in.LoraB != "" {
			if b, err = ParseDistribution("lora_B", in.LoraB); err != nil {
				return Config{}, err
			}
		}
		opts = append(opts, WithDistributions(a, b))
	}
	if in.Scale != "" {
		p, err := ParseScalePolicy(in.Scale)
		if err != nil {
			return Config{}, err
		}
		opts = append(opts, WithScale(p))
	}
	if in.Direction != "" {
		d, err := ParseDirection(in.Direction)
		if err != nil {
			return Config{}, err
		}
		opts = append(opts, WithDirection(d))
	}
	if in.Gamma != nil {
		opts = append(opts, WithGamma(*in.Gamma))
	}
	p, err := matrix.ParsePrecision(in.DType)
	if err != nil {
		return Config{}, configErrorf("dtype", fmt.Sprintf("%q", in.DType), "keep, fp32, bf16, fp16")
	}
	opts = append(opts, WithPrecision(p))
	if in.SVDPowerIters != nil {
		opts = append(opts, WithSVDPowerIters(*in.SVDPowerIters))
	}
	if in.GradientRank != nil || in.GradientPowerIters != nil {
		rank, iters := DefaultGradientRank, DefaultGradientPowerIters
		if in.GradientRank != nil {
			rank = *in.GradientRank
		}
		if in.GradientPowerIters != nil {
			iters = *in.GradientPowerIters
		}
		opts = append(opts, WithGradientSVD(rank, iters))
	}

	return NewConfig(opts...)
}
