// Package orchestrator implements the per-cycle driver (spec §4.4): a
// single pass that discovers open windows, advances every non-terminal
// trade by at most one legal transition, and hands settled trades off
// to the Stats/Policy engine. Grounded on the teacher's
// application/scanner/scanner.go Run/runCycle/cycle loop shape fused
// with application/engine/live/engine.go's numbered-stage RunOnce,
// generalized from a single scan-and-rank cycle to the dual
// discovery/per-trade-processing loop described there.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	martinconfig "github.com/alejandrodnm/martin/internal/config"
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/metrics"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/alejandrodnm/martin/internal/snapshot"
)

// Deps bundles every collaborator the orchestrator drives each cycle.
type Deps struct {
	Ledger     ports.Ledger
	Catalog    ports.MarketCatalog
	Snapshots  *snapshot.Worker
	TA         ports.TAOracle
	Books      ports.BookProvider
	Settlement ports.SettlementSource
	Notifier   ports.Notifier
	Executor   ports.Executor
}

// ConfigFunc returns the effective configuration for the current cycle
// (spec §6: settings table > env > file). It is re-evaluated every
// cycle since operational commands may update the settings table
// between ticks.
type ConfigFunc func(ctx context.Context) (martinconfig.Effective, error)

// Orchestrator drives the orchestration loop at period P_TICK (§5).
type Orchestrator struct {
	deps    Deps
	cfgFn   ConfigFunc
	locks   *tradeLocks
	decided *decisionStore
	clock   func() int64
}

// Option configures optional Orchestrator behaviour beyond the required
// collaborators passed to New.
type Option func(*Orchestrator)

// WithClock overrides the wall-clock source. Tests use this to replay
// the literal `now` fixtures spec §8's scenarios are written against,
// instead of depending on real elapsed time.
func WithClock(fn func() int64) Option {
	return func(o *Orchestrator) { o.clock = fn }
}

// New builds an Orchestrator over the given collaborators.
func New(deps Deps, cfgFn ConfigFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:    deps,
		cfgFn:   cfgFn,
		locks:   newTradeLocks(),
		decided: newDecisionStore(),
		clock:   func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// now returns the current wall-clock reading, via the injected clock.
func (o *Orchestrator) now() int64 {
	return o.clock()
}

// Run consumes the notifier's decision stream in the background and
// drives one cycle every period until ctx is cancelled. Shutdown is
// cooperative: the in-flight cycle completes before Run returns (§5).
func (o *Orchestrator) Run(ctx context.Context, period time.Duration) error {
	go o.consumeDecisions(ctx)

	if err := o.RunCycle(ctx); err != nil {
		slog.Error("orchestrator: cycle failed", "err", err)
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("orchestrator stopped")
			return nil
		case <-ticker.C:
			if err := o.RunCycle(ctx); err != nil {
				slog.Error("orchestrator: cycle failed", "err", err)
			}
		}
	}
}

// RecordDecision buffers a user decision for the next time its trade is
// processed under the per-trade advisory lock (§5). The background
// notifier-stream consumer calls this internally; it is also exported
// so a caller with its own decision transport (an HTTP handler, a test
// driver) can feed a decision without going through a channel.
func (o *Orchestrator) RecordDecision(d ports.UserDecision) {
	o.decided.record(d)
}

func (o *Orchestrator) consumeDecisions(ctx context.Context) {
	ch, err := o.deps.Notifier.SubscribeDecisions(ctx)
	if err != nil {
		slog.Error("orchestrator: subscribe decisions", "err", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-ch:
			if !ok {
				return
			}
			o.decided.record(d)
		}
	}
}

// RunCycle executes exactly one cycle: discovery, then per-trade
// processing; settlement and its stats update happen inside the
// ORDER_PLACED step rather than in a separate sweep. A single trade's
// failure never aborts the cycle (§7) — every step below logs and
// continues.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	start := time.Now()
	cfg, err := o.cfgFn(ctx)
	if err != nil {
		return err
	}

	if cfg.IsPaused {
		slog.Debug("orchestrator: paused, skipping discovery")
	} else {
		o.discover(ctx, cfg)
	}

	trades, err := o.deps.Ledger.NonTerminalTrades(ctx)
	if err != nil {
		slog.Error("orchestrator: list non-terminal trades", "err", err)
		return err
	}

	settled := 0
	for _, t := range trades {
		if o.processTrade(ctx, t, cfg) {
			settled++
		}
	}

	elapsed := time.Since(start)
	metrics.CycleDuration.Observe(elapsed.Seconds())
	slog.Info("cycle complete",
		"trades", len(trades), "settled", settled,
		"duration", elapsed.Round(time.Millisecond),
	)
	return nil
}

func (o *Orchestrator) processTrade(ctx context.Context, t domain.Trade, cfg martinconfig.Effective) (settledThisCycle bool) {
	unlock := o.locks.lock(t.ID)
	defer unlock()

	// Re-read under lock: a concurrent decision/settlement event may
	// already have moved this trade since NonTerminalTrades was read.
	current, err := o.deps.Ledger.Trade(ctx, t.ID)
	if err != nil {
		slog.Error("orchestrator: reload trade", "trade_id", t.ID, "err", err)
		return false
	}
	if current.Status.IsTerminal() {
		return false
	}

	window, err := o.deps.Ledger.Window(ctx, current.WindowID)
	if err != nil {
		slog.Error("orchestrator: load window", "trade_id", t.ID, "err", err)
		return false
	}

	switch current.Status {
	case domain.StatusSearchingSignal:
		o.stepSearchingSignal(ctx, current, window, cfg)
	case domain.StatusSignalled:
		o.stepSignalled(ctx, current, window, cfg)
	case domain.StatusWaitingConfirm:
		o.stepWaitingConfirm(ctx, current, window)
	case domain.StatusWaitingCap:
		o.stepWaitingCap(ctx, current, window, cfg)
	case domain.StatusReady:
		o.stepReady(ctx, current, window, cfg)
	case domain.StatusOrderPlaced:
		return o.stepOrderPlaced(ctx, current, window, cfg)
	}
	return false
}
