package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claimscore/claimscore/pkg/claim"
)

func newRunCmd(root *rootOpts) *cobra.Command {
	var inputPath, featuresPath string
	var out outputOpts

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Derive features, then score and label a raw claims table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			opts, err := out.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			log := root.logger(cmd)

			records, err := deriveFeatures(cfg, inputPath, log)
			if err != nil {
				return err
			}
			if featuresPath != "" {
				if err := claim.SaveCSV(featuresPath, records); err != nil {
					return fmt.Errorf("writing feature table: %w", err)
				}
				log.Info().Str("output", featuresPath).Msg("feature table written")
			}

			return labelAndWrite(cmd.OutOrStdout(), cfg, records, opts, log)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Raw claims CSV (required)")
	cmd.Flags().StringVar(&featuresPath, "features-output", "", "Also write the intermediate feature table")
	_ = cmd.MarkFlagRequired("input")
	addOutputFlags(cmd, &out)

	return cmd
}
