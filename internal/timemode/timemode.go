// Package timemode derives DAY/NIGHT from a Unix timestamp and a fixed
// local zone (spec §4.7), and applies the night-session streak reset.
package timemode

import (
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
)

// Config is the fixed local-hour window used to classify DAY vs NIGHT.
type Config struct {
	Location     *time.Location
	DayStartHour int // [0,24)
	DayEndHour   int // [0,24], exclusive
}

// Classify returns DAY or NIGHT for the given Unix timestamp.
func Classify(now int64, cfg Config) domain.TimeMode {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	hour := time.Unix(now, 0).In(loc).Hour()

	var isDay bool
	if cfg.DayStartHour < cfg.DayEndHour {
		isDay = hour >= cfg.DayStartHour && hour < cfg.DayEndHour
	} else {
		// wrap over midnight
		isDay = hour >= cfg.DayStartHour || hour < cfg.DayEndHour
	}

	if isDay {
		return domain.TimeModeDay
	}
	return domain.TimeModeNight
}

// ApplyNightReset applies the §4.7 night-session reset to stats when the
// night win streak has reached its cap. It is a pure function; the
// caller persists the result inside the settlement transaction.
func ApplyNightReset(stats domain.Stats, mode domain.NightSessionMode, maxWinStreak int) (domain.Stats, bool) {
	if mode == domain.NightSessionOff {
		return stats, false
	}
	if stats.NightStreak < maxWinStreak {
		return stats, false
	}
	return stats.Reset(mode), true
}
