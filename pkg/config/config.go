// Package config handles loading and managing claimscore configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/claimscore/claimscore/pkg/scoring"
)

// Threshold presets.
const (
	PresetCanonical = "canonical"
	PresetLegacy    = "legacy"
)

// Config is the top-level configuration for claimscore.
type Config struct {
	Features FeaturesConfig `yaml:"features"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Output   OutputConfig   `yaml:"output"`
}

// FeaturesConfig controls feature derivation.
type FeaturesConfig struct {
	WindowDays     int                `yaml:"window_days" validate:"gte=1,lte=366"`
	Workers        int                `yaml:"workers" validate:"gte=0"`
	RejectionRates map[string]float64 `yaml:"rejection_rates" validate:"dive,gte=0,lte=1"` // provider -> rate
	Simulation     SimulationConfig   `yaml:"simulation"`
}

// SimulationConfig controls the simulated rejection rates used for
// providers with no known rate.
type SimulationConfig struct {
	Seed int64   `yaml:"seed"`
	Min  float64 `yaml:"min" validate:"gte=0,lte=1"`
	Max  float64 `yaml:"max" validate:"gte=0,lte=1,gtfield=Min"`
}

// ScoringConfig controls scoring behavior.
type ScoringConfig struct {
	Weights       map[string]float64 `yaml:"weights" validate:"dive,gte=0"` // rule key -> points
	Thresholds    ThresholdConfig    `yaml:"thresholds"`
	Normalization string             `yaml:"normalization" validate:"oneof=batch absolute"`
	Workers       int                `yaml:"workers" validate:"gte=0"`
}

// ThresholdConfig selects the label thresholds. A preset, when set, takes
// precedence over explicit values.
type ThresholdConfig struct {
	Preset string  `yaml:"preset" validate:"omitempty,oneof=canonical legacy"`
	High   float64 `yaml:"high" validate:"gt=0,lte=100"`
	Medium float64 `yaml:"medium" validate:"gt=0,ltfield=High"`
}

// OutputConfig controls how labeled tables are written.
type OutputConfig struct {
	Format    string `yaml:"format" validate:"oneof=csv parquet"`
	Holdout   int    `yaml:"holdout" validate:"gte=0"`
	Anonymize bool   `yaml:"anonymize"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	th := scoring.DefaultThresholds()
	return &Config{
		Features: FeaturesConfig{
			WindowDays:     30,
			RejectionRates: map[string]float64{},
			Simulation:     SimulationConfig{Seed: 42, Min: 0.02, Max: 0.15},
		},
		Scoring: ScoringConfig{
			Weights:       map[string]float64{},
			Thresholds:    ThresholdConfig{High: th.High, Medium: th.Medium},
			Normalization: string(scoring.NormalizeBatch),
		},
		Output: OutputConfig{
			Format: "csv",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field bounds and that every weight key names a rule.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return formatValidationError(err)
	}

	known := make(map[string]bool)
	for _, k := range scoring.WeightKeys() {
		known[k] = true
	}
	var unknown []string
	for k := range c.Scoring.Weights {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("scoring.weights: unknown rule keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// formatValidationError converts validator errors into one readable error.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		var msg string
		switch fe.Tag() {
		case "gte":
			msg = fmt.Sprintf("must be at least %s", fe.Param())
		case "lte":
			msg = fmt.Sprintf("must be at most %s", fe.Param())
		case "gt":
			msg = fmt.Sprintf("must be greater than %s", fe.Param())
		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", fe.Param())
		case "gtfield":
			msg = fmt.Sprintf("must be greater than %s", fe.Param())
		case "ltfield":
			msg = fmt.Sprintf("must be less than %s", fe.Param())
		default:
			msg = fmt.Sprintf("failed %s validation", fe.Tag())
		}
		msgs = append(msgs, fmt.Sprintf("%s %s", fieldPath(fe.Namespace()), msg))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// FindConfigFile looks for .claimscore/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".claimscore", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
