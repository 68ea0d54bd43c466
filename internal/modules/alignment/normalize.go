package alignment

import (
	"github.com/virachai/vision-iq/internal/domain"
)

const (
	// defaultTemperature is the neutral daylight value assumed when a mood
	// carries no Kelvin-like temperature.
	defaultTemperature = 5500.0

	// warmThreshold splits the Kelvin-like scale into the categorical
	// warm/cold classes when a payload only carries the numeric form.
	warmThreshold = 5000.0

	// temperatureBand is the greedy clustering absorption window.
	temperatureBand = 1000.0

	// contextTempSpan scales the continuity bonus distance in SelectBest.
	contextTempSpan = 4000.0
)

// NormalizeScene fills composition defaults and clamps the impact target so
// the scorer can assume a fully-populated record. The input is not mutated.
func NormalizeScene(s domain.Scene) domain.Scene {
	if s.RequiredImpact < 1 {
		s.RequiredImpact = 1
	}
	if s.RequiredImpact > 10 {
		s.RequiredImpact = 10
	}
	s.PreferredComposition = normalizeComposition(s.PreferredComposition)
	return s
}

// NormalizeCandidate applies the same defaults to a candidate snapshot.
// A fully absent mood is left zero so the scorer can tell "missing" apart
// from "neutral"; a partially filled mood gets its temperature and class
// completed here, once, instead of at every read site.
func NormalizeCandidate(c domain.Candidate) domain.Candidate {
	if c.Metadata.ImpactScore < 1 {
		c.Metadata.ImpactScore = 1
	}
	if c.Metadata.ImpactScore > 10 {
		c.Metadata.ImpactScore = 10
	}
	c.Metadata.Composition = normalizeComposition(c.Metadata.Composition)
	c.Metadata.MoodDNA = normalizeMood(c.Metadata.MoodDNA)
	return c
}

func normalizeComposition(c domain.Composition) domain.Composition {
	if c.ShotType == "" {
		c.ShotType = domain.ShotMediumShot
	}
	if c.Angle == "" {
		c.Angle = domain.AngleEye
	}
	if c.NegativeSpace == "" {
		c.NegativeSpace = domain.NegativeSpaceCenter
	}
	return c
}

func normalizeMood(m domain.MoodDNA) domain.MoodDNA {
	if m.IsZero() {
		return m
	}
	if m.Temperature == 0 {
		m.Temperature = defaultTemperature
	}
	if m.TemperatureClass == "" {
		m.TemperatureClass = classifyTemperature(m.Temperature)
	}
	return m
}

func classifyTemperature(temp float64) domain.TemperatureClass {
	if temp >= warmThreshold {
		return domain.TemperatureWarm
	}
	return domain.TemperatureCold
}

// moodTemp is the Kelvin-like value used for clustering distance, with the
// neutral default applied for moods that never got normalized (or are
// entirely absent).
func moodTemp(m domain.MoodDNA) float64 {
	if m.Temperature == 0 {
		return defaultTemperature
	}
	return m.Temperature
}
