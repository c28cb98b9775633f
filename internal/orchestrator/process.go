package orchestrator

import (
	"context"
	"log/slog"
	"time"

	martinconfig "github.com/alejandrodnm/martin/internal/config"
	"github.com/alejandrodnm/martin/internal/capeval"
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/metrics"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/alejandrodnm/martin/internal/statemachine"
	"github.com/alejandrodnm/martin/internal/threshold"
	"github.com/alejandrodnm/martin/internal/timemode"
	"github.com/shopspring/decimal"
)

// stepSearchingSignal implements §4.4's SEARCHING_SIGNAL bullet: cancel
// once the window has expired, otherwise ask the TA oracle for a
// signal and accept it only once its quality clears the acceptance
// threshold.
func (o *Orchestrator) stepSearchingSignal(ctx context.Context, t domain.Trade, w domain.MarketWindow, cfg martinconfig.Effective) {
	now := o.now()
	if now >= w.EndTS {
		o.cancel(ctx, t.ID, domain.CancelReasonNoSignal, ports.TradePatch{})
		return
	}

	snap, ok := o.deps.Snapshots.Snapshot(w.Asset)
	if !ok {
		return // data absence: stay (§7)
	}

	det, ok := o.deps.TA.Evaluate(w, now, snap)
	if !ok {
		return
	}

	stats, err := o.deps.Ledger.Stats(ctx)
	if err != nil {
		slog.Error("orchestrator: searching_signal: load stats", "trade_id", t.ID, "err", err)
		return
	}
	mode := timemode.Classify(now, timemodeConfig(cfg))
	want := threshold.Threshold(mode, stats.TradeLevelStreak, thresholdConfig(cfg))
	if det.Quality < want {
		slog.Debug("orchestrator: signal below threshold, remaining", "trade_id", t.ID, "quality", det.Quality, "threshold", want)
		return
	}

	sig := domain.Signal{
		Direction: det.Direction,
		SignalTS:  det.SignalTS,
		ConfirmTS: det.SignalTS + cfg.ConfirmDelaySeconds,
		Quality:   det.Quality,
		Breakdown: det.Breakdown,
	}
	patch := ports.TradePatch{NewSignal: &sig}
	if _, err := o.deps.Ledger.Transition(ctx, t.ID, statemachine.EventQualifyingSignal, domain.CancelReasonNone, patch); err != nil {
		slog.Error("orchestrator: searching_signal: accept signal", "trade_id", t.ID, "err", err)
	}
}

// stepSignalled implements the SIGNALLED bullet, including the chained
// collapse into WAITING_CAP in the same cycle when the confirm guard is
// already satisfied (§4.4 cycle-level invariants).
func (o *Orchestrator) stepSignalled(ctx context.Context, t domain.Trade, w domain.MarketWindow, cfg martinconfig.Effective) {
	sig, ok, err := o.deps.Ledger.SignalForWindow(ctx, w.ID)
	if err != nil {
		slog.Error("orchestrator: signalled: load signal", "trade_id", t.ID, "err", err)
		return
	}
	if !ok {
		slog.Error("orchestrator: signalled: no signal attached", "trade_id", t.ID, "window_id", w.ID)
		return
	}

	if sig.ConfirmTS >= w.EndTS {
		o.cancel(ctx, t.ID, domain.CancelReasonLate, ports.TradePatch{})
		return
	}

	now := o.now()

	stats, err := o.deps.Ledger.Stats(ctx)
	if err != nil {
		slog.Error("orchestrator: signalled: load stats", "trade_id", t.ID, "err", err)
		return
	}
	mode := timemode.Classify(now, timemodeConfig(cfg))
	want := threshold.Threshold(mode, stats.TradeLevelStreak, thresholdConfig(cfg))
	if sig.Quality < want {
		o.cancel(ctx, t.ID, domain.CancelReasonLowQuality, ports.TradePatch{})
		return
	}

	if now < sig.ConfirmTS {
		return
	}

	updated, err := o.deps.Ledger.Transition(ctx, t.ID, statemachine.EventConfirmReached, domain.CancelReasonNone, ports.TradePatch{})
	if err != nil {
		slog.Error("orchestrator: signalled: confirm_reached", "trade_id", t.ID, "err", err)
		return
	}

	// Guard already satisfied: collapse straight into WAITING_CAP rather
	// than leaving the trade sitting in WAITING_CONFIRM for a whole tick.
	o.stepWaitingConfirm(ctx, updated, w)
}

// stepWaitingConfirm implements the WAITING_CONFIRM bullet: once the
// confirm deadline has passed, move to WAITING_CAP and make sure a
// CapCheck row exists for the trade.
func (o *Orchestrator) stepWaitingConfirm(ctx context.Context, t domain.Trade, w domain.MarketWindow) {
	sig, ok, err := o.deps.Ledger.SignalForWindow(ctx, w.ID)
	if err != nil {
		slog.Error("orchestrator: waiting_confirm: load signal", "trade_id", t.ID, "err", err)
		return
	}
	if !ok {
		slog.Error("orchestrator: waiting_confirm: no signal attached", "trade_id", t.ID, "window_id", w.ID)
		return
	}

	now := o.now()
	if now < sig.ConfirmTS {
		return
	}

	tokenID := w.TokenFor(sig.Direction)
	if _, err := o.deps.Ledger.Transition(ctx, t.ID, statemachine.EventConfirmReached, domain.CancelReasonNone,
		ports.TradePatch{TokenID: &tokenID},
	); err != nil {
		slog.Error("orchestrator: waiting_confirm: confirm_reached", "trade_id", t.ID, "err", err)
		return
	}

	if _, exists, err := o.deps.Ledger.CapCheckForTrade(ctx, t.ID); err != nil {
		slog.Error("orchestrator: waiting_confirm: load cap check", "trade_id", t.ID, "err", err)
	} else if !exists {
		cc := domain.CapCheck{
			TradeID:   t.ID,
			TokenID:   tokenID,
			ConfirmTS: sig.ConfirmTS,
			EndTS:     w.EndTS,
			Status:    domain.CapStatusPending,
		}
		if _, err := o.deps.Ledger.SaveCapCheck(ctx, cc); err != nil {
			slog.Error("orchestrator: waiting_confirm: create cap check", "trade_id", t.ID, "err", err)
		}
	}
}

// stepWaitingCap implements the WAITING_CAP bullet: fetch price ticks
// over [confirm_ts, min(now,end_ts)] and run the CAP evaluator.
func (o *Orchestrator) stepWaitingCap(ctx context.Context, t domain.Trade, w domain.MarketWindow, cfg martinconfig.Effective) {
	cc, ok, err := o.deps.Ledger.CapCheckForTrade(ctx, t.ID)
	if err != nil {
		slog.Error("orchestrator: waiting_cap: load cap check", "trade_id", t.ID, "err", err)
		return
	}
	if !ok {
		slog.Error("orchestrator: waiting_cap: no cap check row", "trade_id", t.ID)
		return
	}

	now := o.now()
	to := now
	if w.EndTS < to {
		to = w.EndTS
	}

	ticks, err := o.deps.Books.PriceTicks(ctx, t.TokenID, cc.ConfirmTS, to)
	if err != nil {
		slog.Warn("orchestrator: waiting_cap: fetch price ticks", "trade_id", t.ID, "err", err)
		return // transient external: stay for next cycle (§7)
	}

	result := capeval.Evaluate(ticks, capeval.Params{
		ConfirmTS:   cc.ConfirmTS,
		EndTS:       w.EndTS,
		PriceCap:    decimal.NewFromFloat(cfg.PriceCap),
		CapMinTicks: cfg.CapMinTicks,
		Now:         now,
	})

	cc.Status = result.Status
	cc.ConsecutiveTicks = result.ConsecutiveTicks
	cc.FirstPassTS = result.FirstPassTS
	cc.PriceAtPass = result.PriceAtPass
	metrics.CapEvaluations.WithLabelValues(string(result.Status)).Inc()
	if _, err := o.deps.Ledger.SaveCapCheck(ctx, cc); err != nil {
		slog.Error("orchestrator: waiting_cap: save cap check", "trade_id", t.ID, "err", err)
		return
	}

	switch result.Status {
	case domain.CapStatusPass:
		entry := decimal.NewFromFloat(cfg.PriceCap)
		if _, err := o.deps.Ledger.Transition(ctx, t.ID, statemachine.EventCapPass, domain.CancelReasonNone, ports.TradePatch{FillPrice: &entry}); err != nil {
			slog.Error("orchestrator: waiting_cap: cap_pass", "trade_id", t.ID, "err", err)
		}
	case domain.CapStatusFail:
		o.cancel(ctx, t.ID, domain.CancelReasonCapFail, ports.TradePatch{})
	case domain.CapStatusLate:
		o.cancel(ctx, t.ID, domain.CancelReasonLate, ports.TradePatch{})
	case domain.CapStatusPending:
		if now >= w.EndTS {
			o.cancel(ctx, t.ID, domain.CancelReasonCapFail, ports.TradePatch{})
		}
	}
}

// stepReady implements the READY bullet for both DAY and NIGHT sessions.
func (o *Orchestrator) stepReady(ctx context.Context, t domain.Trade, w domain.MarketWindow, cfg martinconfig.Effective) {
	now := o.now()
	mode := timemode.Classify(now, timemodeConfig(cfg))

	sig, ok, err := o.deps.Ledger.SignalForWindow(ctx, w.ID)
	if err != nil {
		slog.Error("orchestrator: ready: load signal", "trade_id", t.ID, "err", err)
		return
	}
	if !ok {
		slog.Error("orchestrator: ready: no signal attached", "trade_id", t.ID, "window_id", w.ID)
		return
	}

	if mode == domain.TimeModeNight {
		o.stepReadyNight(ctx, t, sig, cfg)
		return
	}
	o.stepReadyDay(ctx, t, w, sig, now, cfg)
}

func (o *Orchestrator) stepReadyDay(ctx context.Context, t domain.Trade, w domain.MarketWindow, sig domain.Signal, now int64, cfg martinconfig.Effective) {
	dayMode := domain.TimeModeDay

	if t.ApprovalEmittedAt.IsZero() {
		if err := o.deps.Notifier.EmitApproval(ctx, t, w, sig); err != nil {
			slog.Error("orchestrator: ready/day: emit approval", "trade_id", t.ID, "err", err)
			return
		}
		emittedAt := time.Unix(now, 0).UTC()
		if _, err := o.deps.Ledger.Touch(ctx, t.ID, ports.TradePatch{
			TimeMode:          &dayMode,
			ApprovalEmittedAt: &emittedAt,
		}); err != nil {
			slog.Error("orchestrator: ready/day: record approval emission", "trade_id", t.ID, "err", err)
		}
		return
	}

	elapsed := now - t.ApprovalEmittedAt.Unix()
	if elapsed >= cfg.MaxResponseSeconds {
		decision := domain.DecisionAutoSkip
		o.cancel(ctx, t.ID, domain.CancelReasonExpired, ports.TradePatch{Decision: &decision})
		return
	}

	dec, ok := o.decided.take(t.ID)
	if !ok {
		return
	}

	switch dec.Kind {
	case ports.UserDecisionSkip:
		decision := domain.DecisionSkip
		o.cancel(ctx, t.ID, domain.CancelReasonSkip, ports.TradePatch{Decision: &decision})
	case ports.UserDecisionOK:
		decision := domain.DecisionOK
		tokenID := w.TokenFor(sig.Direction)
		stake := decimal.NewFromFloat(cfg.StakeAmount)
		patch := ports.TradePatch{Decision: &decision, TokenID: &tokenID, StakeAmount: &stake}
		if _, err := o.deps.Ledger.Transition(ctx, t.ID, statemachine.EventUserOK, domain.CancelReasonNone, patch); err != nil {
			slog.Error("orchestrator: ready/day: user_ok", "trade_id", t.ID, "err", err)
		}
	}
}

func (o *Orchestrator) stepReadyNight(ctx context.Context, t domain.Trade, sig domain.Signal, cfg martinconfig.Effective) {
	nightMode := domain.TimeModeNight

	if !cfg.NightAutotradeEnabled {
		o.cancel(ctx, t.ID, domain.CancelReasonNightDisabled, ports.TradePatch{TimeMode: &nightMode})
		return
	}

	stats, err := o.deps.Ledger.Stats(ctx)
	if err != nil {
		slog.Error("orchestrator: ready/night: load stats", "trade_id", t.ID, "err", err)
		return
	}

	if stats.NightStreak >= cfg.NightMaxWinStreak {
		if _, err := o.deps.Ledger.UpdateStats(ctx, func(s domain.Stats) domain.Stats {
			return s.Reset(cfg.NightSessionMode)
		}); err != nil {
			slog.Error("orchestrator: ready/night: apply night reset", "trade_id", t.ID, "err", err)
			return
		}
		o.cancel(ctx, t.ID, domain.CancelReasonNightDisabled, ports.TradePatch{TimeMode: &nightMode})
		return
	}

	decision := domain.DecisionAutoOK
	patch := ports.TradePatch{Decision: &decision, TimeMode: &nightMode}
	if _, err := o.deps.Ledger.Transition(ctx, t.ID, statemachine.EventAutoOK, domain.CancelReasonNone, patch); err != nil {
		slog.Error("orchestrator: ready/night: auto_ok", "trade_id", t.ID, "err", err)
	}
}

// stepOrderPlaced implements the ORDER_PLACED bullet: place the order if
// not already placed, then poll for fill and settlement. Returns true
// when this call landed the trade on SETTLED.
func (o *Orchestrator) stepOrderPlaced(ctx context.Context, t domain.Trade, w domain.MarketWindow, cfg martinconfig.Effective) bool {
	sig, ok, err := o.deps.Ledger.SignalForWindow(ctx, w.ID)
	if err != nil {
		slog.Error("orchestrator: order_placed: load signal", "trade_id", t.ID, "err", err)
		return false
	}
	if !ok {
		slog.Error("orchestrator: order_placed: no signal attached", "trade_id", t.ID, "window_id", w.ID)
		return false
	}

	if t.OrderID == "" || t.FillStatus == domain.FillStatusPending {
		result, err := o.deps.Executor.Place(ctx, t, sig, w, t.StakeAmount)
		if err != nil {
			slog.Warn("orchestrator: order_placed: place", "trade_id", t.ID, "err", err)
			return false // transient external: stay for next cycle (§7)
		}
		updated, err := o.deps.Ledger.Touch(ctx, t.ID, ports.TradePatch{
			TokenID:    &result.TokenID,
			OrderID:    &result.OrderID,
			FillPrice:  &result.FillPrice,
			FillStatus: &result.FillStatus,
		})
		if err != nil {
			slog.Error("orchestrator: order_placed: record placement", "trade_id", t.ID, "err", err)
			return false
		}
		t = updated
	}

	switch {
	case t.FillStatus == domain.FillStatusRejected:
		if _, err := o.deps.Ledger.Transition(ctx, t.ID, statemachine.EventRejected, domain.CancelReasonNone, ports.TradePatch{}); err != nil {
			slog.Error("orchestrator: order_placed: rejected", "trade_id", t.ID, "err", err)
		}
		return false
	case t.FillStatus.CountsAsFilled():
		return o.settleIfResolved(ctx, t, w, cfg)
	default:
		return false // still pending, poll again next cycle
	}
}

func (o *Orchestrator) settleIfResolved(ctx context.Context, t domain.Trade, w domain.MarketWindow, cfg martinconfig.Effective) bool {
	if !w.IsResolved() {
		outcome, err := o.deps.Settlement.ResolvedOutcome(ctx, w)
		if err != nil {
			slog.Warn("orchestrator: order_placed: resolve outcome", "trade_id", t.ID, "err", err)
			return false
		}
		if outcome == domain.OutcomeNone {
			return false // settlement ambiguity: retry next cycle (§7)
		}
		if err := o.deps.Ledger.SetWindowOutcome(ctx, w.ID, outcome); err != nil {
			slog.Error("orchestrator: order_placed: set window outcome", "trade_id", t.ID, "err", err)
			return false
		}
		w.Outcome = outcome
	}

	settled, err := o.deps.Executor.Settle(ctx, t, w)
	if err != nil {
		slog.Warn("orchestrator: order_placed: settle", "trade_id", t.ID, "err", err)
		return false
	}

	isWin := settled.IsWin
	pnl := settled.Pnl
	thresholds := policyThresholds(cfg)
	patch := ports.TradePatch{IsWin: &isWin, Pnl: &pnl, Thresholds: &thresholds}
	if _, err := o.deps.Ledger.Transition(ctx, t.ID, statemachine.EventFilled, domain.CancelReasonNone, patch); err != nil {
		slog.Error("orchestrator: order_placed: filled", "trade_id", t.ID, "err", err)
		return false
	}
	outcomeLabel := "loss"
	if isWin {
		outcomeLabel = "win"
	}
	metrics.TradesSettled.WithLabelValues(outcomeLabel).Inc()
	return true
}

// cancel is a small wrapper around Transition(EventCancel, reason) used
// from every step that rejects a trade.
func (o *Orchestrator) cancel(ctx context.Context, tradeID int64, reason domain.CancelReason, patch ports.TradePatch) {
	if _, err := o.deps.Ledger.Transition(ctx, tradeID, statemachine.EventCancel, reason, patch); err != nil {
		slog.Error("orchestrator: cancel", "trade_id", tradeID, "reason", reason, "err", err)
	}
}
