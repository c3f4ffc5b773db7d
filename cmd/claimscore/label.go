package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/config"
	"github.com/claimscore/claimscore/pkg/scoring"
	"github.com/claimscore/claimscore/pkg/surface"
)

// outputOpts are the flags controlling where and how labeled tables and
// the batch report are written.
type outputOpts struct {
	outputPath    string
	format        string
	holdout       int
	holdoutOutput string
	report        string
	topClaims     int
	anonymize     bool
}

func addOutputFlags(cmd *cobra.Command, o *outputOpts) {
	cmd.Flags().StringVarP(&o.outputPath, "output", "o", "", "Labeled table to write (required)")
	cmd.Flags().StringVar(&o.format, "format", "", "Table format: csv or parquet (default from config)")
	cmd.Flags().IntVar(&o.holdout, "holdout", -1, "Hold out the last N claims as an evaluation table (default from config)")
	cmd.Flags().StringVar(&o.holdoutOutput, "holdout-output", "", "Evaluation table to write when --holdout is set")
	cmd.Flags().StringVar(&o.report, "report", "text", "Batch report on stdout: text, markdown, json, or none")
	cmd.Flags().IntVar(&o.topClaims, "top", surface.DefaultTopClaims, "Riskiest claims listed in the report")
	cmd.Flags().BoolVar(&o.anonymize, "anonymize", false, "Replace patient identities with pseudonyms in written tables")
	_ = cmd.MarkFlagRequired("output")
}

// resolve merges flags with the output section of the config. Explicit
// flags win.
func (o outputOpts) resolve(cmd *cobra.Command, cfg *config.Config) (outputOpts, error) {
	o.format = firstNonEmpty(o.format, cfg.Output.Format, "csv")
	if o.format != "csv" && o.format != "parquet" {
		return o, fmt.Errorf("unknown format %q: want csv or parquet", o.format)
	}
	if o.holdout < 0 {
		o.holdout = cfg.Output.Holdout
	}
	if !cmd.Flags().Changed("anonymize") {
		o.anonymize = cfg.Output.Anonymize
	}
	if o.holdout > 0 && o.holdoutOutput == "" {
		return o, errors.New("--holdout requires --holdout-output")
	}
	switch o.report {
	case "text", "markdown", "json", "none":
	default:
		return o, fmt.Errorf("unknown report %q: want text, markdown, json, or none", o.report)
	}
	return o, nil
}

func newLabelCmd(root *rootOpts) *cobra.Command {
	var inputPath string
	var out outputOpts

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Score and label a feature table",
		Long: `Reads a feature table (raw columns plus derived features), scores every claim,
and writes the labeled table. A summary of the batch is printed to stdout.`,
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

			records, err := claim.LoadRecords(inputPath)
			if err != nil {
				return err
			}
			log.Debug().Str("input", inputPath).Int("claims", len(records)).Msg("feature table loaded")

			return labelAndWrite(cmd.OutOrStdout(), cfg, records, opts, log)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Feature table CSV (required)")
	_ = cmd.MarkFlagRequired("input")
	addOutputFlags(cmd, &out)

	return cmd
}

// labelAndWrite scores records, writes the labeled tables, and renders the
// batch report.
func labelAndWrite(stdout io.Writer, cfg *config.Config, records []claim.Record, opts outputOpts, log zerolog.Logger) error {
	engine, err := cfg.ScoringEngine()
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := engine.Score(records)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	log.Info().
		Int("claims", result.Summary.Claims).
		Int("high", result.Summary.ByLabel[claim.LabelHigh]).
		Int("medium", result.Summary.ByLabel[claim.LabelMedium]).
		Dur("elapsed", time.Since(start)).
		Msg("claims scored")

	claim.SortByClaimDate(records)
	if opts.anonymize {
		for i := range records {
			records[i].PatientID = claim.AnonymizeID(records[i].PatientID)
		}
	}

	training, evaluation := claim.Split(records, opts.holdout)
	if err := saveTable(opts.outputPath, opts.format, training); err != nil {
		return err
	}
	log.Info().Str("output", opts.outputPath).Int("claims", len(training)).Msg("labeled table written")
	if opts.holdout > 0 {
		if err := saveTable(opts.holdoutOutput, opts.format, evaluation); err != nil {
			return err
		}
		log.Info().Str("output", opts.holdoutOutput).Int("claims", len(evaluation)).Msg("evaluation table written")
	}

	return renderReport(stdout, opts, result)
}

func saveTable(path, format string, records []claim.Record) error {
	var err error
	switch format {
	case "parquet":
		err = claim.SaveParquet(path, records)
	default:
		err = claim.SaveCSV(path, records)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func renderReport(w io.Writer, opts outputOpts, result *scoring.BatchResult) error {
	var r surface.Renderer
	switch opts.report {
	case "none":
		return nil
	case "json":
		r = &surface.JSONRenderer{SummaryOnly: true}
	case "markdown":
		r = &surface.MarkdownRenderer{TopClaims: opts.topClaims}
	default:
		r = &surface.TerminalRenderer{TopClaims: opts.topClaims}
	}
	if err := r.Render(w, result); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}
