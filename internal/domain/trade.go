package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is a trade's position in the §4.2 state machine.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusSearchingSignal Status = "SEARCHING_SIGNAL"
	StatusSignalled       Status = "SIGNALLED"
	StatusWaitingConfirm  Status = "WAITING_CONFIRM"
	StatusWaitingCap      Status = "WAITING_CAP"
	StatusReady           Status = "READY"
	StatusOrderPlaced     Status = "ORDER_PLACED"
	StatusSettled         Status = "SETTLED"
	StatusCancelled       Status = "CANCELLED"
	StatusError           Status = "ERROR"
)

// IsTerminal reports whether the status accepts no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSettled, StatusCancelled, StatusError:
		return true
	default:
		return false
	}
}

// TimeMode is the DAY/NIGHT session a trade was evaluated under.
type TimeMode string

const (
	TimeModeNone  TimeMode = ""
	TimeModeDay   TimeMode = "DAY"
	TimeModeNight TimeMode = "NIGHT"
)

// PolicyMode is the acceptance-threshold regime (§4.5).
type PolicyMode string

const (
	PolicyModeBase   PolicyMode = "BASE"
	PolicyModeStrict PolicyMode = "STRICT"
)

// Decision is the human/policy approval outcome for a READY trade.
type Decision string

const (
	DecisionPending Decision = "PENDING"
	DecisionOK      Decision = "OK"
	DecisionAutoOK  Decision = "AUTO_OK"
	DecisionSkip    Decision = "SKIP"
	DecisionAutoSkip Decision = "AUTO_SKIP"
)

// TakenAndFilled reports whether this decision class is eligible to move
// streaks (MG — "taken-and-filled").
func (d Decision) TakenAndFilled() bool {
	return d == DecisionOK || d == DecisionAutoOK
}

// CancelReason explains why a trade landed in CANCELLED.
type CancelReason string

const (
	CancelReasonNone           CancelReason = ""
	CancelReasonNoSignal       CancelReason = "NO_SIGNAL"
	CancelReasonExpired        CancelReason = "EXPIRED"
	CancelReasonPaused         CancelReason = "PAUSED"
	CancelReasonLate           CancelReason = "LATE"
	CancelReasonLowQuality     CancelReason = "LOW_QUALITY"
	CancelReasonCapFail        CancelReason = "CAP_FAIL"
	CancelReasonSkip           CancelReason = "SKIP"
	CancelReasonNightDisabled  CancelReason = "NIGHT_DISABLED"
)

// FillStatus is the executor's report on order fill.
type FillStatus string

const (
	FillStatusNone     FillStatus = ""
	FillStatusPending  FillStatus = "PENDING"
	FillStatusFilled   FillStatus = "FILLED"
	FillStatusPartial  FillStatus = "PARTIAL"
	FillStatusRejected FillStatus = "REJECTED"
	FillStatusCancelled FillStatus = "CANCELLED"
)

// CountsAsFilled reports whether this fill status should be treated as
// FILLED for stats purposes. PARTIAL is ambiguous in the source system
// (spec §9 Open Question); MARTIN's recorded decision is to treat it
// as filled.
func (f FillStatus) CountsAsFilled() bool {
	return f == FillStatusFilled || f == FillStatusPartial
}

// Trade is the lifecycle record for at most one trade per window.
type Trade struct {
	ID       int64
	WindowID int64
	SignalID *int64

	Status       Status
	TimeMode     TimeMode
	PolicyMode   PolicyMode
	Decision     Decision
	CancelReason CancelReason

	TokenID    string
	OrderID    string
	FillStatus FillStatus
	FillPrice  decimal.Decimal
	StakeAmount decimal.Decimal
	Pnl         *decimal.Decimal
	IsWin       *bool

	TradeLevelStreakAtTrade int
	NightStreakAtTrade      int

	// ApprovalEmittedAt is when a DAY-mode approval card was last sent;
	// zero means none has been emitted yet.
	ApprovalEmittedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsNonTerminal reports whether this trade can still receive transitions.
func (t Trade) IsNonTerminal() bool {
	return !t.Status.IsTerminal()
}
