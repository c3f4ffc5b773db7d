package config

import (
	"fmt"

	"github.com/claimscore/claimscore/pkg/features"
	"github.com/claimscore/claimscore/pkg/scoring"
)

// ThresholdValues resolves the configured label thresholds.
func (s ScoringConfig) ThresholdValues() scoring.Thresholds {
	switch s.Thresholds.Preset {
	case PresetLegacy:
		return scoring.LegacyThresholds()
	case PresetCanonical:
		return scoring.DefaultThresholds()
	default:
		return scoring.Thresholds{High: s.Thresholds.High, Medium: s.Thresholds.Medium}
	}
}

// FeatureEngine builds the feature engine described by the config.
// Configured rates take precedence over simulated ones.
func (c *Config) FeatureEngine() *features.Engine {
	sim := &features.SimulatedRates{
		Seed: c.Features.Simulation.Seed,
		Min:  c.Features.Simulation.Min,
		Max:  c.Features.Simulation.Max,
	}
	var rates features.RejectionRateSource = sim
	if len(c.Features.RejectionRates) > 0 {
		rates = &features.StaticRates{Rates: c.Features.RejectionRates, Fallback: sim}
	}
	return &features.Engine{
		WindowDays: c.Features.WindowDays,
		Rates:      rates,
		Workers:    c.Features.Workers,
	}
}

// ScoringEngine builds the scoring engine described by the config.
func (c *Config) ScoringEngine() (*scoring.Engine, error) {
	w, err := scoring.Defaults().WithOverrides(c.Scoring.Weights)
	if err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	norm, err := scoring.ParseNormalization(c.Scoring.Normalization)
	if err != nil {
		return nil, err
	}

	e := scoring.NewEngine(scoring.DefaultRules(w)...)
	e.Thresholds = c.Scoring.ThresholdValues()
	e.Normalization = norm
	e.Workers = c.Scoring.Workers
	if err := e.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
