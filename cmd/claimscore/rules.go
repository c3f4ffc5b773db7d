package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/claimscore/claimscore/pkg/scoring"
)

type rulesView struct {
	Rules         []scoring.Descriptor  `json:"rules"`
	Thresholds    scoring.Thresholds    `json:"thresholds"`
	Normalization scoring.Normalization `json:"normalization"`
}

func newRulesCmd(root *rootOpts) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective rule table",
		Long:  `Prints every scoring rule with its tier and points after config overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			engine, err := cfg.ScoringEngine()
			if err != nil {
				return err
			}

			view := rulesView{Thresholds: engine.Thresholds, Normalization: engine.Normalization}
			for _, c := range engine.Contributors() {
				view.Rules = append(view.Rules, c.Describe())
			}

			w := cmd.OutOrStdout()
			if outputFmt == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tTIER\tPOINTS\tRULE")
			for _, d := range view.Rules {
				fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n", d.Key, d.Tier, d.Points, d.Name)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(w, "\nThresholds: HIGH >= %g, MEDIUM >= %g (%s normalization)\n",
				view.Thresholds.High, view.Thresholds.Medium, view.Normalization)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}
