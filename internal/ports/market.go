package ports

import (
	"context"

	"github.com/alejandrodnm/martin/internal/domain"
)

// MarketCatalog discovers currently-open hourly windows.
type MarketCatalog interface {
	// ListOpenWindows returns windows currently open for the given assets.
	ListOpenWindows(ctx context.Context, assets []domain.Asset, now int64) ([]domain.MarketWindow, error)
}

// CandleSource fetches OHLCV candles for the snapshot worker.
type CandleSource interface {
	Candles(ctx context.Context, asset domain.Asset, interval domain.Interval, from, to int64) ([]domain.Candle, error)
}

// BookProvider fetches order-book price history for the CAP evaluator.
type BookProvider interface {
	PriceTicks(ctx context.Context, tokenID string, from, to int64) ([]domain.PriceTick, error)
}

// SettlementSource resolves a window's outcome once it has closed.
type SettlementSource interface {
	ResolvedOutcome(ctx context.Context, window domain.MarketWindow) (domain.Outcome, error)
}
