package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ledger"
	"github.com/alejandrodnm/martin/internal/policy"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/alejandrodnm/martin/internal/statemachine"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *ledger.SQLite {
	t.Helper()
	l, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func makeWindow(slug string, start, end int64) domain.MarketWindow {
	return domain.MarketWindow{
		Asset:       domain.Asset("BTC"),
		Slug:        slug,
		ConditionID: "0xcond",
		UpTokenID:   "up-token",
		DownTokenID: "down-token",
		StartTS:     start,
		EndTS:       end,
	}
}

func TestUpsertWindow_IsIdempotent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w1, err := l.UpsertWindow(ctx, makeWindow("btc-1400", 1000, 4600))
	require.NoError(t, err)
	assert.NotZero(t, w1.ID)

	w2, err := l.UpsertWindow(ctx, makeWindow("btc-1400", 1000, 4600))
	require.NoError(t, err)
	assert.Equal(t, w1.ID, w2.ID)
}

func TestSetWindowOutcome_FixedOnceResolved(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w, err := l.UpsertWindow(ctx, makeWindow("btc-1500", 1000, 4600))
	require.NoError(t, err)

	require.NoError(t, l.SetWindowOutcome(ctx, w.ID, domain.OutcomeUp))
	require.NoError(t, l.SetWindowOutcome(ctx, w.ID, domain.OutcomeUp)) // idempotent

	err = l.SetWindowOutcome(ctx, w.ID, domain.OutcomeDown)
	assert.ErrorIs(t, err, ledger.ErrOutcomeConflict)

	got, err := l.Window(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUp, got.Outcome)
}

func TestCreateTrade_RejectsSecondNonTerminalTrade(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w, err := l.UpsertWindow(ctx, makeWindow("btc-1600", 1000, 4600))
	require.NoError(t, err)

	_, err = l.CreateTrade(ctx, w.ID)
	require.NoError(t, err)

	_, err = l.CreateTrade(ctx, w.ID)
	assert.ErrorIs(t, err, ledger.ErrDuplicateTrade)
}

func TestTransition_HappyPathAttachesSignalAndSettles(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w, err := l.UpsertWindow(ctx, makeWindow("btc-1700", 1000, 4600))
	require.NoError(t, err)
	trade, err := l.CreateTrade(ctx, w.ID)
	require.NoError(t, err)

	trade, err = l.Transition(ctx, trade.ID, statemachine.EventStartSearch, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSearchingSignal, trade.Status)

	sig := domain.Signal{Direction: domain.DirectionUp, SignalTS: 1100, ConfirmTS: 1160, Quality: 0.8, AnchorBarTS: 1080}
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventQualifyingSignal, domain.CancelReasonNone, ports.TradePatch{NewSignal: &sig})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSignalled, trade.Status)
	require.NotNil(t, trade.SignalID)

	gotSig, ok, err := l.SignalForWindow(ctx, w.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.DirectionUp, gotSig.Direction)

	// A second trade on the same window is refused while this one is non-terminal.
	trade2, err := l.CreateTrade(ctx, w.ID)
	assert.ErrorIs(t, err, ledger.ErrDuplicateTrade)
	_ = trade2

	trade, err = l.Transition(ctx, trade.ID, statemachine.EventConfirmReached, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingConfirm, trade.Status)

	trade, err = l.Transition(ctx, trade.ID, statemachine.EventConfirmReached, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingCap, trade.Status)

	trade, err = l.Transition(ctx, trade.ID, statemachine.EventCapPass, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, trade.Status)

	decision := domain.DecisionAutoOK
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventAutoOK, domain.CancelReasonNone, ports.TradePatch{Decision: &decision})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrderPlaced, trade.Status)

	isWin := true
	pnl := decimal.NewFromFloat(1.5)
	fillStatus := domain.FillStatusFilled
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventFilled, domain.CancelReasonNone, ports.TradePatch{
		IsWin: &isWin, Pnl: &pnl, FillStatus: &fillStatus,
		Thresholds: &policy.Thresholds{SwitchStreakAt: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSettled, trade.Status)

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTrades)
	assert.Equal(t, 1, stats.TotalWins)
	assert.Equal(t, 1, stats.TradeLevelStreak)
}

func TestTransition_IllegalEventLeavesTradeUntouched(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w, err := l.UpsertWindow(ctx, makeWindow("btc-1800", 1000, 4600))
	require.NoError(t, err)
	trade, err := l.CreateTrade(ctx, w.ID)
	require.NoError(t, err)

	_, err = l.Transition(ctx, trade.ID, statemachine.EventCapPass, domain.CancelReasonNone, ports.TradePatch{})
	assert.ErrorIs(t, err, statemachine.ErrIllegalTransition)

	got, err := l.Trade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, got.Status)
}

func TestTransition_SettledRequiresIsWinAndPnl(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w, err := l.UpsertWindow(ctx, makeWindow("btc-1900", 1000, 4600))
	require.NoError(t, err)
	trade, err := l.CreateTrade(ctx, w.ID)
	require.NoError(t, err)
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventStartSearch, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)
	sig := domain.Signal{Direction: domain.DirectionUp, SignalTS: 1100, ConfirmTS: 1160, Quality: 0.8}
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventQualifyingSignal, domain.CancelReasonNone, ports.TradePatch{NewSignal: &sig})
	require.NoError(t, err)
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventConfirmReached, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventConfirmReached, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventCapPass, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventAutoOK, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)

	_, err = l.Transition(ctx, trade.ID, statemachine.EventFilled, domain.CancelReasonNone, ports.TradePatch{})
	assert.ErrorIs(t, err, ledger.ErrMissingSettlement)

	got, err := l.Trade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrderPlaced, got.Status, "failed settlement must not mutate the trade")
}

func TestTransition_CancelReleasesWindowForANewTrade(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w, err := l.UpsertWindow(ctx, makeWindow("btc-2000", 1000, 4600))
	require.NoError(t, err)
	trade, err := l.CreateTrade(ctx, w.ID)
	require.NoError(t, err)

	_, err = l.Transition(ctx, trade.ID, statemachine.EventCancel, domain.CancelReasonNoSignal, ports.TradePatch{})
	require.NoError(t, err)

	exists, err := l.ActiveTradeExists(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = l.CreateTrade(ctx, w.ID)
	assert.NoError(t, err)
}

func TestSaveCapCheck_OverwritesPreviousVerdict(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w, err := l.UpsertWindow(ctx, makeWindow("btc-2100", 1000, 4600))
	require.NoError(t, err)
	trade, err := l.CreateTrade(ctx, w.ID)
	require.NoError(t, err)

	_, err = l.SaveCapCheck(ctx, domain.CapCheck{
		TradeID: trade.ID, TokenID: "up-token", ConfirmTS: 1100, EndTS: 4600,
		Status: domain.CapStatusPending, ConsecutiveTicks: 1,
	})
	require.NoError(t, err)

	pass := int64(1200)
	price := decimal.NewFromFloat(0.52)
	saved, err := l.SaveCapCheck(ctx, domain.CapCheck{
		TradeID: trade.ID, TokenID: "up-token", ConfirmTS: 1100, EndTS: 4600,
		Status: domain.CapStatusPass, ConsecutiveTicks: 3, FirstPassTS: &pass, PriceAtPass: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CapStatusPass, saved.Status)

	got, ok, err := l.CapCheckForTrade(ctx, trade.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.ConsecutiveTicks)
	assert.True(t, price.Equal(*got.PriceAtPass))
}

func TestUpdateStats_AppliesFnInsideTransaction(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	before, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, before.NightStreak)

	updated, err := l.UpdateStats(ctx, func(s domain.Stats) domain.Stats {
		s.NightStreak = 5
		s.PolicyMode = domain.PolicyModeStrict
		return s.Reset(domain.NightSessionSoft)
	})
	require.NoError(t, err)
	assert.Zero(t, updated.NightStreak)
	assert.Equal(t, domain.PolicyModeBase, updated.PolicyMode)

	got, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyModeBase, got.PolicyMode)
}

func TestTouch_PatchesWithoutChangingStatus(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	w, err := l.UpsertWindow(ctx, makeWindow("btc-2200", 1000, 4600))
	require.NoError(t, err)
	trade, err := l.CreateTrade(ctx, w.ID)
	require.NoError(t, err)
	trade, err = l.Transition(ctx, trade.ID, statemachine.EventStartSearch, domain.CancelReasonNone, ports.TradePatch{})
	require.NoError(t, err)

	emittedAt := time.Unix(1200, 0).UTC()
	dayMode := domain.TimeModeDay
	touched, err := l.Touch(ctx, trade.ID, ports.TradePatch{ApprovalEmittedAt: &emittedAt, TimeMode: &dayMode})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSearchingSignal, touched.Status)
	assert.Equal(t, domain.TimeModeDay, touched.TimeMode)
	assert.True(t, touched.ApprovalEmittedAt.Equal(emittedAt))

	_, err = l.Transition(ctx, trade.ID, statemachine.EventCancel, domain.CancelReasonNoSignal, ports.TradePatch{})
	require.NoError(t, err)

	_, err = l.Touch(ctx, trade.ID, ports.TradePatch{})
	assert.ErrorIs(t, err, statemachine.ErrIllegalTransition)
}

func TestSettings_RoundTrip(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.PutSetting(ctx, "trading.stake_amount", "25", time.Now().Unix()))
	require.NoError(t, l.PutSetting(ctx, "trading.stake_amount", "50", time.Now().Unix()))

	settings, err := l.Settings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "50", settings[0].Value)
}
