// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEstimateCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:     "estimate",
		Short:   "Average gradients over the calibration subset",
		Example: `  lorainit estimate --weights model.json --data calib.json --layers l0,l1 --out grads.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out: %w", errMissingFlag)
			}
			store, err := a.loadStore()
			if err != nil {
				return err
			}
			sess, err := a.openSession(store)
			if err != nil {
				return err
			}
			grads, err := a.gradients(cmd.Context(), sess, "")
			if err != nil {
				return err
			}
			if err = saveGradients(out, grads); err != nil {
				return err
			}
			a.log.Info("gradients written", zap.String("path", out), zap.Strings("params", grads.Names()))

			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "gradient file to write")

	return cmd
}
