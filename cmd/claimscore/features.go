package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/config"
)

func newFeaturesCmd(root *rootOpts) *cobra.Command {
	var inputPath, outputPath string

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Derive behavioral features from a raw claims table",
		Long: `Reads a raw claims CSV and writes it back with every derived feature column
appended. Features are computed relative to the whole table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			log := root.logger(cmd)

			records, err := deriveFeatures(cfg, inputPath, log)
			if err != nil {
				return err
			}
			if err := claim.SaveCSV(outputPath, records); err != nil {
				return fmt.Errorf("writing feature table: %w", err)
			}
			log.Info().Str("output", outputPath).Int("claims", len(records)).Msg("feature table written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Raw claims CSV (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Feature table CSV to write (required)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// deriveFeatures loads a raw claims table and runs the feature engine on it.
func deriveFeatures(cfg *config.Config, inputPath string, log zerolog.Logger) ([]claim.Record, error) {
	claims, err := claim.LoadClaims(inputPath)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("input", inputPath).Int("claims", len(claims)).Msg("claims loaded")

	start := time.Now()
	records, err := cfg.FeatureEngine().Derive(claims)
	if err != nil {
		return nil, fmt.Errorf("deriving features: %w", err)
	}
	log.Info().Int("claims", len(records)).Dur("elapsed", time.Since(start)).Msg("features derived")
	return records, nil
}
