package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/martin/internal/adapters/clobauth"
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/shopspring/decimal"
)

// pollInterval and pollTimeout bound how long Place waits for a resting
// order to reach a terminal CLOB status before giving up and reporting
// it PENDING — the orchestrator re-polls on the next cycle.
const (
	pollInterval = 2 * time.Second
	pollTimeout  = 20 * time.Second
)

// Live is the CLOB-backed Executor: it signs and submits a real limit
// order through clobauth and polls it to a terminal fill status
// (spec §4.8).
type Live struct {
	auth *clobauth.AuthClient
}

// NewLive wraps an already-configured clobauth.AuthClient.
func NewLive(auth *clobauth.AuthClient) *Live {
	return &Live{auth: auth}
}

// Place submits a BUY limit order at trade.FillPrice (the configured
// price cap, which the orchestrator records on the trade when it passes
// CAP) and polls for a fill. A second call against a trade that already
// carries an OrderID re-polls that order's status instead of submitting
// a new one.
func (l *Live) Place(ctx context.Context, trade domain.Trade, signal domain.Signal, window domain.MarketWindow, stake decimal.Decimal) (ports.PlaceResult, error) {
	if trade.OrderID != "" {
		return l.pollExisting(ctx, trade)
	}

	tokenID := window.TokenFor(signal.Direction)
	price := trade.FillPrice
	if price.IsZero() {
		return ports.PlaceResult{}, fmt.Errorf("executor: live place: no entry price on trade %d", trade.ID)
	}

	placed, err := l.auth.PlaceBuy(ctx, tokenID, price, stake)
	if err != nil {
		return ports.PlaceResult{}, fmt.Errorf("executor: live place: %w", err)
	}

	status, err := l.pollToTerminal(ctx, placed.OrderID)
	if err != nil {
		return ports.PlaceResult{
			OrderID:    placed.OrderID,
			TokenID:    tokenID,
			FillPrice:  price,
			FillStatus: domain.FillStatusPending,
		}, nil
	}

	return ports.PlaceResult{
		OrderID:    placed.OrderID,
		TokenID:    tokenID,
		FillPrice:  resolvedPrice(status, price),
		FillStatus: mapFillStatus(status.Status),
	}, nil
}

func (l *Live) pollExisting(ctx context.Context, trade domain.Trade) (ports.PlaceResult, error) {
	status, err := l.auth.OrderStatus(ctx, trade.OrderID)
	if err != nil {
		return ports.PlaceResult{
			OrderID:    trade.OrderID,
			TokenID:    trade.TokenID,
			FillPrice:  trade.FillPrice,
			FillStatus: trade.FillStatus,
		}, nil
	}
	return ports.PlaceResult{
		OrderID:    trade.OrderID,
		TokenID:    trade.TokenID,
		FillPrice:  resolvedPrice(status, trade.FillPrice),
		FillStatus: mapFillStatus(status.Status),
	}, nil
}

// pollToTerminal polls order status until it reaches a terminal CLOB
// status or pollTimeout elapses, whichever comes first.
func (l *Live) pollToTerminal(ctx context.Context, orderID string) (clobauth.StatusResult, error) {
	deadline := time.Now().Add(pollTimeout)
	for {
		status, err := l.auth.OrderStatus(ctx, orderID)
		if err != nil {
			return clobauth.StatusResult{}, err
		}
		if isTerminalCLOBStatus(status.Status) {
			return status, nil
		}
		if time.Now().After(deadline) {
			return status, nil
		}
		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return clobauth.StatusResult{}, ctx.Err()
		}
	}
}

// Settle resolves is_win/pnl the same way Paper does: the trade's filled
// token against the window's resolved outcome.
func (l *Live) Settle(ctx context.Context, trade domain.Trade, window domain.MarketWindow) (ports.SettleResult, error) {
	return settle(trade, window), nil
}

func isTerminalCLOBStatus(status string) bool {
	switch status {
	case "matched", "MATCHED", "cancelled", "CANCELLED", "rejected", "REJECTED":
		return true
	default:
		return false
	}
}

func mapFillStatus(status string) domain.FillStatus {
	switch status {
	case "matched", "MATCHED":
		return domain.FillStatusFilled
	case "cancelled", "CANCELLED":
		return domain.FillStatusCancelled
	case "rejected", "REJECTED":
		return domain.FillStatusRejected
	case "live", "LIVE", "delayed", "DELAYED":
		return domain.FillStatusPending
	default:
		if status != "" {
			return domain.FillStatusPartial
		}
		return domain.FillStatusPending
	}
}

func resolvedPrice(status clobauth.StatusResult, fallback decimal.Decimal) decimal.Decimal {
	if status.Price.IsPositive() {
		return status.Price
	}
	return fallback
}
