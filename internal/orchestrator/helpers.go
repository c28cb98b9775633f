package orchestrator

import (
	"time"

	martinconfig "github.com/alejandrodnm/martin/internal/config"
	"github.com/alejandrodnm/martin/internal/policy"
	"github.com/alejandrodnm/martin/internal/threshold"
	"github.com/alejandrodnm/martin/internal/timemode"
)

func timemodeConfig(cfg martinconfig.Effective) timemode.Config {
	return timemode.Config{
		Location:     time.UTC,
		DayStartHour: cfg.DayStartHour,
		DayEndHour:   cfg.DayEndHour,
	}
}

func thresholdConfig(cfg martinconfig.Effective) threshold.Config {
	return threshold.Config{
		BaseDayMinQuality:      cfg.BaseDayMinQuality,
		BaseNightMinQuality:    cfg.BaseNightMinQuality,
		SwitchStreakAt:         cfg.SwitchStreakAt,
		StartStrictAfterNWins:  cfg.StartStrictAfterNWins,
		StrictQualityIncrement: cfg.StrictQualityIncrement,
	}
}

func policyThresholds(cfg martinconfig.Effective) policy.Thresholds {
	return policy.Thresholds{
		SwitchStreakAt:    cfg.SwitchStreakAt,
		NightMaxWinStreak: cfg.NightMaxWinStreak,
		NightSessionMode:  cfg.NightSessionMode,
	}
}
