package features

import (
	"hash/fnv"
	"math/rand"
)

// RejectionRateSource supplies the provider-level claim rejection rate.
// Implementations must return the same value for a provider every time.
type RejectionRateSource interface {
	Rate(providerID string) float64
}

// StaticRates serves externally sourced rates, deferring to Fallback for
// providers it does not know.
type StaticRates struct {
	Rates    map[string]float64
	Fallback RejectionRateSource
}

func (s *StaticRates) Rate(providerID string) float64 {
	if r, ok := s.Rates[providerID]; ok {
		return r
	}
	if s.Fallback != nil {
		return s.Fallback.Rate(providerID)
	}
	return 0
}

// SimulatedRates draws a rate uniformly from [Min, Max) seeded by the
// provider identity, for datasets that carry no rejection history.
type SimulatedRates struct {
	Seed int64
	Min  float64
	Max  float64
}

// DefaultRates returns the simulated source used when nothing else is
// configured.
func DefaultRates() *SimulatedRates {
	return &SimulatedRates{Seed: 42, Min: 0.02, Max: 0.15}
}

func (s *SimulatedRates) Rate(providerID string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(providerID))
	r := rand.New(rand.NewSource(int64(h.Sum64()) ^ s.Seed))
	return s.Min + r.Float64()*(s.Max-s.Min)
}
