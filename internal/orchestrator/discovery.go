package orchestrator

import (
	"context"
	"log/slog"

	martinconfig "github.com/alejandrodnm/martin/internal/config"
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/alejandrodnm/martin/internal/statemachine"
)

// discover implements §4.4 step 1: ask the catalog for currently-open
// windows, upsert each (idempotent on slug), and start a trade for any
// window that doesn't already have a non-terminal one. This is the only
// path that creates trades.
func (o *Orchestrator) discover(ctx context.Context, cfg martinconfig.Effective) {
	now := o.now()

	windows, err := o.deps.Catalog.ListOpenWindows(ctx, cfg.Assets, now)
	if err != nil {
		slog.Error("orchestrator: discovery: list open windows", "err", err)
		return
	}

	for _, w := range windows {
		saved, err := o.deps.Ledger.UpsertWindow(ctx, w)
		if err != nil {
			slog.Error("orchestrator: discovery: upsert window", "slug", w.Slug, "err", err)
			continue
		}

		exists, err := o.deps.Ledger.ActiveTradeExists(ctx, saved.ID)
		if err != nil {
			slog.Error("orchestrator: discovery: active trade check", "window_id", saved.ID, "err", err)
			continue
		}
		if exists {
			continue
		}

		trade, err := o.deps.Ledger.CreateTrade(ctx, saved.ID)
		if err != nil {
			slog.Error("orchestrator: discovery: create trade", "window_id", saved.ID, "err", err)
			continue
		}

		if _, err := o.deps.Ledger.Transition(ctx, trade.ID, statemachine.EventStartSearch, domain.CancelReasonNone, ports.TradePatch{}); err != nil {
			slog.Error("orchestrator: discovery: start_search", "trade_id", trade.ID, "err", err)
		}
	}
}
