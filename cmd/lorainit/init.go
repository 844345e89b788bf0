// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/lorainit/adapter"
	"github.com/katalvlaran/lorainit/calib"
	"github.com/katalvlaran/lorainit/matrix"
	"github.com/katalvlaran/lorainit/weights"
)

// Files written by the init command into --out-dir.
const (
	weightsFile       = "weights.json"
	adapterModelFile  = "adapter_model.json"
	adapterConfigFile = "adapter_config.json"
)

// adapterConfigDoc describes the saved adapters. Alpha carries the sign of
// the exported scaling, so gradient runs that keep W store a negative alpha.
type adapterConfigDoc struct {
	Rank       int      `json:"r"`
	Alpha      float64  `json:"lora_alpha"`
	Scaling    float64  `json:"scaling"`
	RSLoRA     bool     `json:"use_rslora"`
	Dora       bool     `json:"use_dora"`
	Mode       string   `json:"init_mode"`
	Scale      string   `json:"init_scale"`
	Direction  string   `json:"init_direction,omitempty"`
	Targets    []string `json:"target_modules"`
	Calibrated bool     `json:"calibrated"`
}

func newInitCmd(a *app) *cobra.Command {
	var (
		gradsPath string
		outDir    string
		exclude   []string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize adapters and write the adjusted weights",
		Long: `init attaches an adapter to every targeted matrix, initializes its factors
according to the init section of --config, subtracts the initial offset from
the base weights and writes weights, adapter factors and adapter config to
--out-dir. Gradient mode estimates gradients unless --grads is given.`,
		Example: `  lorainit init --config run.yaml --weights model.json --data calib.json --out-dir out/`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return fmt.Errorf("--out-dir: %w", errMissingFlag)
			}
			cfg, err := a.file.Config()
			if err != nil {
				return err
			}
			store, err := a.loadStore()
			if err != nil {
				return err
			}
			peft := a.file.Peft

			targets := adapter.TargetsFromStore(store, peft.Targets, exclude)
			if len(targets) == 0 {
				return fmt.Errorf("no parameter matches target_modules %v", peft.Targets)
			}
			spec := adapter.AdapterSpec{Rank: peft.Rank, Alpha: peft.Alpha, RSLoRA: peft.RSLoRA}
			if peft.RelativeRank != nil {
				if spec.Rank, err = adapter.RelativeRank(store, *peft.RelativeRank); err != nil {
					return err
				}
			}
			if spec.Rank <= 0 {
				return fmt.Errorf("peft.lora_r=%d: %w", spec.Rank, adapter.ErrInvalidRank)
			}
			if spec.Alpha == 0 {
				spec.Alpha = float64(spec.Rank)
			}

			var grads calib.GradientMap
			if cfg.Mode == adapter.ModeGradient {
				var sess *session
				if gradsPath == "" {
					if sess, err = a.openSession(store); err != nil {
						return err
					}
				}
				grads, err = a.gradients(cmd.Context(), sess, gradsPath, calib.WithTrainable(func(name string) bool {
					_, found := slices.BinarySearch(targets, name)
					return found
				}))
				if err != nil {
					return err
				}
			}

			adapters, err := adapter.Reinit(store, targets, spec, cfg, grads, adapter.WithLogger(a.log))
			if err != nil {
				return err
			}

			if err = os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			if err = weights.SaveFile(filepath.Join(outDir, weightsFile), store); err != nil {
				return err
			}
			if err = saveAdapters(filepath.Join(outDir, adapterModelFile), adapters); err != nil {
				return err
			}
			doc := adapterConfigDoc{
				Rank:       spec.Rank,
				Alpha:      spec.Alpha,
				Scaling:    spec.Scaling(),
				RSLoRA:     spec.RSLoRA,
				Dora:       cfg.WeightDecomposition,
				Mode:       cfg.Mode.String(),
				Scale:      cfg.Scale.String(),
				Targets:    targets,
				Calibrated: grads != nil,
			}
			if cfg.Mode == adapter.ModeGradient {
				doc.Direction = cfg.Direction.String()
			}
			if exp := adapters[targets[0]].ExportScaling(cfg); exp < 0 {
				doc.Alpha, doc.Scaling = -doc.Alpha, exp
			}
			if err = writeJSON(filepath.Join(outDir, adapterConfigFile), &doc); err != nil {
				return err
			}
			a.log.Info("adapters written", zap.String("dir", outDir), zap.Int("targets", len(targets)))

			return nil
		},
	}
	cmd.Flags().StringVar(&gradsPath, "grads", "", "gradient file from estimate (gradient mode)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory for weights, adapter factors and adapter config")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "extra name fragments never targeted")

	return cmd
}

// saveAdapters stores every factor as a named matrix: <target>.lora_A,
// <target>.lora_B and, with weight decomposition, <target>.magnitude (1×out).
func saveAdapters(path string, adapters adapter.Adapters) error {
	s := weights.NewStore()
	for _, name := range adapters.Names() {
		f := adapters[name]
		if err := s.Register(name+".lora_A", f.A); err != nil {
			return err
		}
		if err := s.Register(name+".lora_B", f.B); err != nil {
			return err
		}
		if f.Magnitude == nil {
			continue
		}
		mag, err := matrix.NewDenseFrom(1, len(f.Magnitude), f.Magnitude)
		if err != nil {
			return err
		}
		if err = s.Register(name+".magnitude", mag); err != nil {
			return err
		}
	}

	return weights.SaveFile(path, s)
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return json.MarshalWrite(f, v, jsontext.WithIndent("  "))
}
