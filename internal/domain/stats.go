package domain

import "time"

// NightSessionMode controls the reset behaviour applied when the night
// win streak reaches its cap (§4.7).
type NightSessionMode string

const (
	NightSessionOff  NightSessionMode = "OFF"
	NightSessionSoft NightSessionMode = "SOFT"
	NightSessionHard NightSessionMode = "HARD"
)

// Stats is the singleton row of global counters and policy state.
type Stats struct {
	ID int64 // always 1

	TradeLevelStreak int
	NightStreak      int
	PolicyMode       PolicyMode

	TotalTrades int
	TotalWins   int
	TotalLosses int

	LastStrictDayThreshold   float64
	LastStrictNightThreshold float64
	LastQuantileUpdateTS     int64

	IsPaused  bool
	DayOnly   bool
	NightOnly bool

	UpdatedAt time.Time
}

// Reset applies the night-session reset behaviour described in §4.7.
// It never mutates in place; callers persist the returned value, either
// inside the ledger transaction that settles the triggering trade or
// through the ledger's UpdateStats.
func (s Stats) Reset(mode NightSessionMode) Stats {
	switch mode {
	case NightSessionSoft:
		s.NightStreak = 0
		s.PolicyMode = PolicyModeBase
	case NightSessionHard:
		s.NightStreak = 0
		s.TradeLevelStreak = 0
		s.PolicyMode = PolicyModeBase
	}
	return s
}
