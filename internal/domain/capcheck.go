package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CapStatus is the verdict of a CAP evaluation (§4.6).
type CapStatus string

const (
	CapStatusPending CapStatus = "PENDING"
	CapStatusPass    CapStatus = "PASS"
	CapStatusFail    CapStatus = "FAIL"
	CapStatusLate    CapStatus = "LATE"
)

// CapCheck is the one evaluation record per trade tracking the entry-price
// validation over [confirm_ts, end_ts].
type CapCheck struct {
	ID               int64
	TradeID          int64
	TokenID          string
	ConfirmTS        int64
	EndTS            int64
	Status           CapStatus
	ConsecutiveTicks int
	FirstPassTS      *int64
	PriceAtPass      *decimal.Decimal
	CreatedAt        time.Time
}

// PriceTick is one (timestamp, price) sample from the order book history
// used by the CAP evaluator.
type PriceTick struct {
	TS    int64
	Price decimal.Decimal
}
