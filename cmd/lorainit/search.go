// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"math"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/lorainit/calib"
)

type candidateDoc struct {
	Eta  float64 `json:"eta"`
	Loss float64 `json:"loss,format:nonfinite"`
}

type searchDoc struct {
	Best       candidateDoc   `json:"best"`
	Candidates []candidateDoc `json:"candidates"`
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		gradsPath string
		etas      []float64
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find the step size along -grad with the lowest loss",
		Long: `search evaluates weights - eta*grad for every candidate eta over the
calibration subset and prints the losses as JSON. Weights are restored after
every candidate and the weight file is never written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, e := range etas {
				if math.IsNaN(e) || math.IsInf(e, 0) {
					return fmt.Errorf("--eta: %v is not finite", e)
				}
			}
			store, err := a.loadStore()
			if err != nil {
				return err
			}
			sess, err := a.openSession(store)
			if err != nil {
				return err
			}
			grads, err := a.gradients(cmd.Context(), sess, gradsPath)
			if err != nil {
				return err
			}

			opts := []calib.Option{calib.WithLogger(a.log)}
			if len(etas) > 0 {
				opts = append(opts, calib.WithCandidates(etas...))
			}
			res, err := calib.SearchEta(cmd.Context(), sess.model, store, sess.data, sess.batch, grads, opts...)
			if err != nil {
				return err
			}

			doc := searchDoc{Best: candidateDoc(res.Best), Candidates: make([]candidateDoc, len(res.Candidates))}
			for i, c := range res.Candidates {
				doc.Candidates[i] = candidateDoc(c)
			}

			return json.MarshalWrite(cmd.OutOrStdout(), &doc, jsontext.WithIndent("  "))
		},
	}
	cmd.Flags().StringVar(&gradsPath, "grads", "", "gradient file from estimate (default: estimate now)")
	cmd.Flags().Float64SliceVar(&etas, "eta", nil, "candidate step sizes (default: 10 down to 1e-4)")

	return cmd
}
