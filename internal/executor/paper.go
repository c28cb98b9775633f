package executor

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Paper is the no-network Executor: it synthesises a fill at a
// configured simulated price and never talks to the book API (spec
// §4.8). It still honours the place-is-idempotent-on-order-id contract
// so the orchestrator doesn't need to special-case it.
type Paper struct {
	// SimulatedFillPrice is the price every paper fill reports — in
	// practice the configured trading.price_cap, passed in by the caller
	// at construction.
	SimulatedFillPrice decimal.Decimal
}

// NewPaper builds a Paper executor that always fills at simulatedFillPrice.
func NewPaper(simulatedFillPrice decimal.Decimal) *Paper {
	return &Paper{SimulatedFillPrice: simulatedFillPrice}
}

// Place synthesises an order id (a fixed "paper-" prefix plus a random
// UUID) and reports an immediate FILLED.
func (p *Paper) Place(ctx context.Context, trade domain.Trade, signal domain.Signal, window domain.MarketWindow, stake decimal.Decimal) (ports.PlaceResult, error) {
	if trade.OrderID != "" {
		return ports.PlaceResult{
			OrderID:    trade.OrderID,
			TokenID:    trade.TokenID,
			FillPrice:  trade.FillPrice,
			FillStatus: trade.FillStatus,
		}, nil
	}

	tokenID := window.TokenFor(signal.Direction)
	orderID := paperOrderPrefix + uuid.New().String()

	slog.Info("paper order filled",
		"trade_id", trade.ID, "order_id", orderID, "token_id", tokenID,
		"fill_price", p.SimulatedFillPrice, "stake", stake,
	)

	return ports.PlaceResult{
		OrderID:    orderID,
		TokenID:    tokenID,
		FillPrice:  p.SimulatedFillPrice,
		FillStatus: domain.FillStatusFilled,
	}, nil
}

// Settle resolves is_win/pnl from the window's outcome. Paper trades
// settle the same way live trades do — only the fill was simulated.
func (p *Paper) Settle(ctx context.Context, trade domain.Trade, window domain.MarketWindow) (ports.SettleResult, error) {
	return settle(trade, window), nil
}
