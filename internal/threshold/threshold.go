// Package threshold computes the TA acceptance threshold (spec §4.5).
// Threshold computation is pure and never mutates state.
package threshold

import "github.com/alejandrodnm/martin/internal/domain"

// Config bundles the configured base values and STRICT formula inputs.
type Config struct {
	BaseDayMinQuality      float64
	BaseNightMinQuality    float64
	SwitchStreakAt         int
	StartStrictAfterNWins  int
	StrictQualityIncrement float64

	// Rolling is an optional alternative threshold source. When non-nil
	// it replaces the incremental STRICT formula: its quantile is used
	// once it has MinSamples samples, otherwise base times its
	// FallbackMultiplier (spec's recommendation: incremental formula
	// unless rolling_quantile is explicitly enabled).
	Rolling RollingSource
}

// RollingSource is the pluggable rolling-quantile alternative threshold
// mentioned in §4.5. Implementations report whether they have enough
// samples to be trusted.
type RollingSource interface {
	Quantile(mode domain.TimeMode) (value float64, sampleCount int)
	MinSamples() int
	FallbackMultiplier() float64
}

// Mode returns BASE or STRICT for the given trade-level streak.
func Mode(tradeLevelStreak int, cfg Config) domain.PolicyMode {
	if tradeLevelStreak >= cfg.SwitchStreakAt {
		return domain.PolicyModeStrict
	}
	return domain.PolicyModeBase
}

// Threshold computes the acceptance threshold for the given time mode and
// trade-level streak.
func Threshold(mode domain.TimeMode, tradeLevelStreak int, cfg Config) float64 {
	base := cfg.BaseDayMinQuality
	if mode == domain.TimeModeNight {
		base = cfg.BaseNightMinQuality
	}

	if Mode(tradeLevelStreak, cfg) == domain.PolicyModeBase {
		return base
	}

	if cfg.Rolling != nil {
		if q, n := cfg.Rolling.Quantile(mode); n >= cfg.Rolling.MinSamples() {
			return q
		}
		return base * cfg.Rolling.FallbackMultiplier()
	}

	steps := tradeLevelStreak - cfg.StartStrictAfterNWins + 1
	if steps < 0 {
		steps = 0
	}
	return base + float64(steps)*cfg.StrictQualityIncrement
}
