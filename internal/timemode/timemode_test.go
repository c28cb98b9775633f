package timemode_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/timemode"
	"github.com/stretchr/testify/assert"
)

func TestClassify_NonWrap(t *testing.T) {
	cfg := timemode.Config{Location: time.UTC, DayStartHour: 8, DayEndHour: 20}

	day := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Unix()
	night := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC).Unix()

	assert.Equal(t, domain.TimeModeDay, timemode.Classify(day, cfg))
	assert.Equal(t, domain.TimeModeNight, timemode.Classify(night, cfg))
}

func TestClassify_Wrap(t *testing.T) {
	// day_start=22, day_end=6 -> DAY is [22,24) U [0,6)
	cfg := timemode.Config{Location: time.UTC, DayStartHour: 22, DayEndHour: 6}

	late := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC).Unix()
	early := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC).Unix()
	midday := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Unix()

	assert.Equal(t, domain.TimeModeDay, timemode.Classify(late, cfg))
	assert.Equal(t, domain.TimeModeDay, timemode.Classify(early, cfg))
	assert.Equal(t, domain.TimeModeNight, timemode.Classify(midday, cfg))
}

func TestApplyNightReset_Soft(t *testing.T) {
	stats := domain.Stats{NightStreak: 5, TradeLevelStreak: 8, PolicyMode: domain.PolicyModeStrict}
	out, reset := timemode.ApplyNightReset(stats, domain.NightSessionSoft, 5)
	assert.True(t, reset)
	assert.Equal(t, 0, out.NightStreak)
	assert.Equal(t, domain.PolicyModeBase, out.PolicyMode)
	assert.Equal(t, 8, out.TradeLevelStreak) // untouched
}

func TestApplyNightReset_Hard(t *testing.T) {
	stats := domain.Stats{NightStreak: 5, TradeLevelStreak: 8, PolicyMode: domain.PolicyModeStrict}
	out, reset := timemode.ApplyNightReset(stats, domain.NightSessionHard, 5)
	assert.True(t, reset)
	assert.Equal(t, 0, out.NightStreak)
	assert.Equal(t, 0, out.TradeLevelStreak)
}

func TestApplyNightReset_Off(t *testing.T) {
	stats := domain.Stats{NightStreak: 9}
	out, reset := timemode.ApplyNightReset(stats, domain.NightSessionOff, 5)
	assert.False(t, reset)
	assert.Equal(t, stats, out)
}

func TestApplyNightReset_BelowCap(t *testing.T) {
	stats := domain.Stats{NightStreak: 2}
	_, reset := timemode.ApplyNightReset(stats, domain.NightSessionSoft, 5)
	assert.False(t, reset)
}
