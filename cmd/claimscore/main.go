// Package main provides the claimscore CLI entry point.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/claimscore/claimscore/pkg/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOpts holds the global flags shared by every subcommand.
type rootOpts struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	rootCmd := &cobra.Command{
		Use:   "claimscore",
		Short: "Rule-based fraud risk scoring for healthcare claims",
		Long: `Claimscore derives behavioral features from a batch of insurance claims,
scores every claim against weighted fraud rules, and labels it HIGH, MEDIUM,
or NORMAL with the rules that produced the score.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default: discover .claimscore/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newFeaturesCmd(opts),
		newLabelCmd(opts),
		newRunCmd(opts),
		newRulesCmd(opts),
	)
	return rootCmd
}

// logger returns a console logger writing to the command's stderr.
func (o *rootOpts) logger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadConfig loads the file named by --config, or the discovered project
// config, or the defaults when there is none.
func (o *rootOpts) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		path = config.FindConfigFile(cwd)
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
