package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/policy"
	"github.com/alejandrodnm/martin/internal/statemachine"
	"github.com/shopspring/decimal"
)

// TradePatch carries the optional field updates to apply alongside a
// status transition. Nil fields are left untouched. NewSignal, when
// non-nil, is inserted and linked to the trade in the same transaction
// as the transition (spec §9 — signal_id set only at SIGNALLED, in the
// same ledger transaction that inserts the Signal row).
//
// Thresholds is only consulted when the transition lands on SETTLED: the
// ledger folds policy.ApplySettlement into the same transaction that
// writes the trade's final row, so the stats table never observes a
// SETTLED trade that hasn't yet been counted.
type TradePatch struct {
	NewSignal *domain.Signal

	TimeMode    *domain.TimeMode
	PolicyMode  *domain.PolicyMode
	Decision    *domain.Decision
	TokenID     *string
	OrderID     *string
	FillStatus  *domain.FillStatus
	FillPrice   *decimal.Decimal
	StakeAmount *decimal.Decimal
	Pnl         *decimal.Decimal
	IsWin       *bool

	TradeLevelStreakAtTrade *int
	NightStreakAtTrade      *int
	ApprovalEmittedAt       *time.Time

	Thresholds *policy.Thresholds
}

// Ledger is the single writer for window/trade/signal/capcheck/stats
// rows (spec §3, §5, §6). Transition is the only path that changes a
// trade's status; it atomically validates the transition against the
// state machine, applies patch, and — when the destination is SETTLED —
// folds in the stats/policy update, all inside one transaction.
type Ledger interface {
	UpsertWindow(ctx context.Context, w domain.MarketWindow) (domain.MarketWindow, error)
	Window(ctx context.Context, windowID int64) (domain.MarketWindow, error)
	SetWindowOutcome(ctx context.Context, windowID int64, outcome domain.Outcome) error

	ActiveTradeExists(ctx context.Context, windowID int64) (bool, error)
	CreateTrade(ctx context.Context, windowID int64) (domain.Trade, error)
	NonTerminalTrades(ctx context.Context) ([]domain.Trade, error)
	Trade(ctx context.Context, tradeID int64) (domain.Trade, error)

	Transition(ctx context.Context, tradeID int64, event statemachine.Event, reason domain.CancelReason, patch TradePatch) (domain.Trade, error)

	// Touch applies patch to a non-terminal trade without moving its
	// status — the DAY/READY approval-card bookkeeping (ApprovalEmittedAt,
	// TimeMode) and the ORDER_PLACED placement record (OrderID, TokenID,
	// FillPrice, FillStatus) change mid-state, so this never accepts an
	// event and never folds in the stats update Transition does.
	Touch(ctx context.Context, tradeID int64, patch TradePatch) (domain.Trade, error)

	SignalForWindow(ctx context.Context, windowID int64) (domain.Signal, bool, error)

	CapCheckForTrade(ctx context.Context, tradeID int64) (domain.CapCheck, bool, error)
	SaveCapCheck(ctx context.Context, cc domain.CapCheck) (domain.CapCheck, error)

	Stats(ctx context.Context) (domain.Stats, error)
	UpdateStats(ctx context.Context, fn func(domain.Stats) domain.Stats) (domain.Stats, error)
	Settings(ctx context.Context) ([]domain.Setting, error)

	Close() error
}
