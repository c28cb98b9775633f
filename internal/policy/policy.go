// Package policy implements the Stats/Policy Engine (spec §4.9): the
// pure function that updates streaks and policy mode once per SETTLED
// trade. It has no I/O — the ledger calls ApplySettlement inside the
// same transaction that writes the trade's SETTLED row.
package policy

import (
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/timemode"
)

// Thresholds bundles the config values ApplySettlement needs.
type Thresholds struct {
	SwitchStreakAt   int
	NightMaxWinStreak int
	NightSessionMode domain.NightSessionMode
}

// Outcome is the result of ApplySettlement: the updated stats plus
// whether a night-session reset fired.
type Outcome struct {
	Stats      domain.Stats
	NightReset bool
}

// ApplySettlement applies the §4.9 rules for one settled trade.
func ApplySettlement(stats domain.Stats, trade domain.Trade, cfg Thresholds) Outcome {
	takenAndFilled := trade.Decision.TakenAndFilled() && trade.FillStatus.CountsAsFilled()

	stats.TotalTrades++
	if trade.IsWin != nil && *trade.IsWin {
		stats.TotalWins++
	} else {
		stats.TotalLosses++
	}

	if !takenAndFilled {
		// MG-1: not taken-and-filled trades never move streaks.
		return Outcome{Stats: stats}
	}

	win := trade.IsWin != nil && *trade.IsWin
	if !win {
		// MG-11: loss resets everything.
		stats.TradeLevelStreak = 0
		stats.NightStreak = 0
		stats.PolicyMode = domain.PolicyModeBase
		return Outcome{Stats: stats}
	}

	stats.TradeLevelStreak++
	if trade.TimeMode == domain.TimeModeNight {
		stats.NightStreak++
	}
	if stats.TradeLevelStreak >= cfg.SwitchStreakAt {
		stats.PolicyMode = domain.PolicyModeStrict
	} else {
		stats.PolicyMode = domain.PolicyModeBase
	}

	reset := false
	if trade.TimeMode == domain.TimeModeNight {
		stats, reset = timemode.ApplyNightReset(stats, cfg.NightSessionMode, cfg.NightMaxWinStreak)
	}

	return Outcome{Stats: stats, NightReset: reset}
}
