package ledger

import "errors"

// Sentinel errors returned by the SQLite ledger. Callers should compare
// with errors.Is — the concrete error is always wrapped with context
// about which row triggered it.
var (
	// ErrNotFound is returned when a lookup by id finds no row.
	ErrNotFound = errors.New("ledger: not found")

	// ErrDuplicateTrade is returned by CreateTrade when a non-terminal
	// trade already exists for the window (spec §6 — at most one
	// non-terminal trade per window).
	ErrDuplicateTrade = errors.New("ledger: non-terminal trade already exists for window")

	// ErrDuplicateSignal is returned when a patch tries to attach a
	// second Signal to a window that already has one.
	ErrDuplicateSignal = errors.New("ledger: window already has a signal")

	// ErrOutcomeConflict is returned by SetWindowOutcome when the window
	// already has a different outcome recorded. Outcome is fixed once
	// resolved (spec §3).
	ErrOutcomeConflict = errors.New("ledger: window outcome already set to a different value")

	// ErrMissingSettlement is returned when a transition into SETTLED
	// does not carry IsWin/Pnl in its patch.
	ErrMissingSettlement = errors.New("ledger: settled transition missing is_win/pnl")
)
