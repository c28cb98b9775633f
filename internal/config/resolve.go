// Package config resolves the effective, per-cycle configuration the
// orchestrator runs against: the settings table (operator overrides via
// the CLI) takes priority over environment variables, which take
// priority over the YAML file (spec §6). Resolve is a pure function —
// it takes whatever config.Load already produced plus the settings rows
// the ledger returned for this cycle, and never touches the ledger or
// the filesystem itself.
package config

import (
	"strconv"

	"github.com/alejandrodnm/martin/config"
	"github.com/alejandrodnm/martin/internal/domain"
)

// Effective is the fully-resolved configuration surface a single
// orchestrator cycle reads from. It is cheap to recompute every cycle
// since Resolve is pure and settings rows are few.
type Effective struct {
	Assets              []domain.Asset
	PriceCap            float64
	ConfirmDelaySeconds int64
	CapMinTicks         int
	WindowSeconds       int64
	StakeAmount         float64

	DayStartHour           int
	DayEndHour             int
	BaseDayMinQuality      float64
	BaseNightMinQuality    float64
	SwitchStreakAt         int
	StartStrictAfterNWins  int
	StrictQualityIncrement float64
	NightMaxWinStreak      int
	NightAutotradeEnabled  bool
	NightSessionMode       domain.NightSessionMode
	MaxResponseSeconds     int64

	ExecutionMode string

	RollingDays        int
	MaxSamples         int
	MinSamples         int
	StrictFallbackMult float64

	IsPaused  bool
	DayOnly   bool
	NightOnly bool
}

// Keys recognized from the settings table. Unknown keys are
// ignored (forward-compatible with operational tooling that stores other
// state there).
const (
	keyIsPaused     = "is_paused"
	keyDayOnly      = "day_only"
	keyNightOnly    = "night_only"
	keyExecMode     = "execution.mode"
	keyNightAutotrd = "day_night.night_autotrade_enabled"
)

// Resolve folds settings-table overrides onto the loaded file/env config.
func Resolve(base *config.Config, settings []domain.Setting) Effective {
	assets := make([]domain.Asset, 0, len(base.Trading.Assets))
	for _, a := range base.Trading.Assets {
		assets = append(assets, domain.Asset(a))
	}

	eff := Effective{
		Assets:              assets,
		PriceCap:            base.Trading.PriceCap,
		ConfirmDelaySeconds: base.Trading.ConfirmDelaySeconds,
		CapMinTicks:         base.Trading.CapMinTicks,
		WindowSeconds:       base.Trading.WindowSeconds,
		StakeAmount:         base.Trading.StakeAmount,

		DayStartHour:           base.DayNight.DayStartHour,
		DayEndHour:             base.DayNight.DayEndHour,
		BaseDayMinQuality:      base.DayNight.BaseDayMinQuality,
		BaseNightMinQuality:    base.DayNight.BaseNightMinQuality,
		SwitchStreakAt:         base.DayNight.SwitchStreakAt,
		StartStrictAfterNWins:  base.DayNight.StartStrictAfterNWins,
		StrictQualityIncrement: base.DayNight.StrictQualityIncrement,
		NightMaxWinStreak:      base.DayNight.NightMaxWinStreak,
		NightAutotradeEnabled:  base.DayNight.NightAutotradeEnabled,
		NightSessionMode:       domain.NightSessionMode(base.DayNight.NightSessionMode),
		MaxResponseSeconds:     base.DayNight.MaxResponseSeconds,

		ExecutionMode: base.Execution.Mode,

		RollingDays:        base.RollingQuantile.RollingDays,
		MaxSamples:         base.RollingQuantile.MaxSamples,
		MinSamples:         base.RollingQuantile.MinSamples,
		StrictFallbackMult: base.RollingQuantile.StrictFallbackMult,
	}

	for _, s := range settings {
		switch s.Key {
		case keyIsPaused:
			eff.IsPaused = parseBool(s.Value)
		case keyDayOnly:
			eff.DayOnly = parseBool(s.Value)
		case keyNightOnly:
			eff.NightOnly = parseBool(s.Value)
		case keyExecMode:
			if s.Value != "" {
				eff.ExecutionMode = s.Value
			}
		case keyNightAutotrd:
			eff.NightAutotradeEnabled = parseBool(s.Value)
		}
	}

	return eff
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
