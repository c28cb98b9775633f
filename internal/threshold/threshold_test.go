package threshold_test

import (
	"testing"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/threshold"
	"github.com/stretchr/testify/assert"
)

func baseCfg() threshold.Config {
	return threshold.Config{
		BaseDayMinQuality:      35,
		BaseNightMinQuality:    40,
		SwitchStreakAt:         5,
		StartStrictAfterNWins:  5,
		StrictQualityIncrement: 2,
	}
}

func TestThreshold_BaseModeBelowSwitch(t *testing.T) {
	cfg := baseCfg()
	assert.Equal(t, domain.PolicyModeBase, threshold.Mode(0, cfg))
	assert.Equal(t, 35.0, threshold.Threshold(domain.TimeModeDay, 0, cfg))
	assert.Equal(t, 40.0, threshold.Threshold(domain.TimeModeNight, 0, cfg))
}

func TestThreshold_StrictModeAtSwitch(t *testing.T) {
	cfg := baseCfg()
	assert.Equal(t, domain.PolicyModeStrict, threshold.Mode(5, cfg))
	// steps = 5 - 5 + 1 = 1
	assert.Equal(t, 37.0, threshold.Threshold(domain.TimeModeDay, 5, cfg))
}

func TestThreshold_StrictIncrementsWithStreak(t *testing.T) {
	cfg := baseCfg()
	// streak=7 -> steps = 7-5+1=3 -> 35+3*2=41
	assert.Equal(t, 41.0, threshold.Threshold(domain.TimeModeDay, 7, cfg))
}

type fakeRolling struct {
	quantile   float64
	samples    int
	minSamples int
	fallback   float64
}

func (f fakeRolling) Quantile(domain.TimeMode) (float64, int) { return f.quantile, f.samples }
func (f fakeRolling) MinSamples() int                          { return f.minSamples }
func (f fakeRolling) FallbackMultiplier() float64              { return f.fallback }

func TestThreshold_RollingOverridesWhenEnoughSamples(t *testing.T) {
	cfg := baseCfg()
	cfg.Rolling = fakeRolling{quantile: 60, samples: 100, minSamples: 30, fallback: 1.5}
	assert.Equal(t, 60.0, threshold.Threshold(domain.TimeModeDay, 10, cfg))
}

func TestThreshold_RollingFallsBackWhenTooFewSamples(t *testing.T) {
	cfg := baseCfg()
	cfg.Rolling = fakeRolling{quantile: 60, samples: 2, minSamples: 30, fallback: 1.5}
	assert.Equal(t, 52.5, threshold.Threshold(domain.TimeModeDay, 10, cfg))
}
