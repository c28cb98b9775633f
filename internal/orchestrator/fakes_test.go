package orchestrator_test

import (
	"context"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/shopspring/decimal"
)

type fakeCandles struct {
	candles1m []domain.Candle
	candles5m []domain.Candle
	err       error
}

func (f *fakeCandles) Candles(ctx context.Context, asset domain.Asset, interval domain.Interval, from, to int64) ([]domain.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	if interval == domain.Interval5m {
		return f.candles5m, nil
	}
	return f.candles1m, nil
}

type fakeCatalog struct {
	windows []domain.MarketWindow
	err     error
}

func (f *fakeCatalog) ListOpenWindows(ctx context.Context, assets []domain.Asset, now int64) ([]domain.MarketWindow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.windows, nil
}

type fakeTA struct {
	det domain.TADetection
	ok  bool
}

func (f *fakeTA) Evaluate(w domain.MarketWindow, now int64, snap ports.TASnapshot) (domain.TADetection, bool) {
	return f.det, f.ok
}

type fakeBooks struct {
	ticks []domain.PriceTick
	err   error
}

func (f *fakeBooks) PriceTicks(ctx context.Context, tokenID string, from, to int64) ([]domain.PriceTick, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ticks, nil
}

type fakeSettlement struct {
	outcome domain.Outcome
	err     error
}

func (f *fakeSettlement) ResolvedOutcome(ctx context.Context, w domain.MarketWindow) (domain.Outcome, error) {
	if f.err != nil {
		return domain.OutcomeNone, f.err
	}
	return f.outcome, nil
}

type fakeNotifier struct {
	approvals []domain.Trade
	decisions chan ports.UserDecision
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{decisions: make(chan ports.UserDecision, 8)}
}

func (f *fakeNotifier) EmitApproval(ctx context.Context, trade domain.Trade, window domain.MarketWindow, signal domain.Signal) error {
	f.approvals = append(f.approvals, trade)
	return nil
}

func (f *fakeNotifier) SubscribeDecisions(ctx context.Context) (<-chan ports.UserDecision, error) {
	return f.decisions, nil
}

type fakeExecutor struct {
	placeResult ports.PlaceResult
	placeErr    error
	settleIsWin bool
	settlePnl   decimal.Decimal
	settleErr   error
	placedFor   []int64
}

func (f *fakeExecutor) Place(ctx context.Context, trade domain.Trade, signal domain.Signal, window domain.MarketWindow, stake decimal.Decimal) (ports.PlaceResult, error) {
	f.placedFor = append(f.placedFor, trade.ID)
	if f.placeErr != nil {
		return ports.PlaceResult{}, f.placeErr
	}
	return f.placeResult, nil
}

func (f *fakeExecutor) Settle(ctx context.Context, trade domain.Trade, window domain.MarketWindow) (ports.SettleResult, error) {
	if f.settleErr != nil {
		return ports.SettleResult{}, f.settleErr
	}
	return ports.SettleResult{IsWin: f.settleIsWin, Pnl: f.settlePnl}, nil
}
