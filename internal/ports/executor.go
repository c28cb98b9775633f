package ports

import (
	"context"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/shopspring/decimal"
)

// PlaceResult is what the executor reports back from Place.
type PlaceResult struct {
	OrderID    string
	TokenID    string
	FillPrice  decimal.Decimal
	FillStatus domain.FillStatus
}

// SettleResult is what the executor reports back from Settle.
type SettleResult struct {
	IsWin bool
	Pnl   decimal.Decimal
}

// Executor places orders (paper or live) and resolves settlement. Place
// is keyed by trade id: a second call for a trade that already has an
// OrderID must return the existing result without re-submitting
// (spec §4.8 idempotency).
type Executor interface {
	Place(ctx context.Context, trade domain.Trade, signal domain.Signal, window domain.MarketWindow, stake decimal.Decimal) (PlaceResult, error)
	Settle(ctx context.Context, trade domain.Trade, window domain.MarketWindow) (SettleResult, error)
}
