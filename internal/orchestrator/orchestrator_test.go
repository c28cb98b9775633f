package orchestrator_test

import (
	"context"
	"testing"

	martinconfig "github.com/alejandrodnm/martin/internal/config"
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/executor"
	"github.com/alejandrodnm/martin/internal/ledger"
	"github.com/alejandrodnm/martin/internal/orchestrator"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/alejandrodnm/martin/internal/snapshot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseConfig returns the §8 scenario fixtures shared by S1-S6, with
// DayStartHour/DayEndHour spanning the full day so time-mode derivation
// never interferes with a scenario that isn't testing it.
func baseConfig() martinconfig.Effective {
	return martinconfig.Effective{
		Assets:                 []domain.Asset{"BTC"},
		PriceCap:               0.55,
		ConfirmDelaySeconds:    120,
		CapMinTicks:            3,
		WindowSeconds:          3600,
		StakeAmount:            10,
		DayStartHour:           0,
		DayEndHour:             24,
		BaseDayMinQuality:      35,
		BaseNightMinQuality:    35,
		SwitchStreakAt:         1000, // effectively never STRICT unless a scenario overrides it
		StartStrictAfterNWins:  0,
		StrictQualityIncrement: 5,
		NightMaxWinStreak:      5,
		NightAutotradeEnabled:  true,
		NightSessionMode:       domain.NightSessionSoft,
		MaxResponseSeconds:     300,
		ExecutionMode:          "paper",
	}
}

// harness bundles one scenario's collaborators. clockNow is mutated by
// the test to advance the orchestrator's injected clock between cycles.
type harness struct {
	t        *testing.T
	ledger   *ledger.SQLite
	catalog  *fakeCatalog
	ta       *fakeTA
	books    *fakeBooks
	settle   *fakeSettlement
	notifier *fakeNotifier
	orch     *orchestrator.Orchestrator
	clockNow int64
	cfg      martinconfig.Effective
	tradeID  int64
}

// newHarness wires an Orchestrator over a real in-memory ledger and the
// real paper executor (price_cap as its simulated fill price, matching
// §4.8), fronted by fakes for every other collaborator plus an injected
// clock so each scenario can replay its literal `now` fixtures exactly.
func newHarness(t *testing.T, cfg martinconfig.Effective) *harness {
	t.Helper()
	l, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	h := &harness{
		t:        t,
		ledger:   l,
		catalog:  &fakeCatalog{},
		ta:       &fakeTA{},
		books:    &fakeBooks{},
		settle:   &fakeSettlement{outcome: domain.OutcomeNone},
		notifier: newFakeNotifier(),
		cfg:      cfg,
	}
	h.rebuild(executor.NewPaper(decimal.NewFromFloat(cfg.PriceCap)))
	return h
}

// rebuild (re)creates the orchestrator over the given executor. All other
// collaborators (ledger, catalog, TA, books, settlement, notifier, clock)
// are reused, so a scenario can call this again after adjusting h.cfg.
func (h *harness) rebuild(exec ports.Executor) {
	worker := snapshot.NewWorker(&fakeCandles{}, h.cfg.Assets, 0)
	worker.RefreshNow(context.Background())
	cfgFn := func(ctx context.Context) (martinconfig.Effective, error) { return h.cfg, nil }
	h.orch = orchestrator.New(orchestrator.Deps{
		Ledger:     h.ledger,
		Catalog:    h.catalog,
		Snapshots:  worker,
		TA:         h.ta,
		Books:      h.books,
		Settlement: h.settle,
		Notifier:   h.notifier,
		Executor:   exec,
	}, cfgFn, orchestrator.WithClock(func() int64 { return h.clockNow }))
}

func (h *harness) tick(now int64) {
	h.clockNow = now
	require.NoError(h.t, h.orch.RunCycle(context.Background()))
}

// onlyTrade returns the single trade this scenario's one window drives,
// remembering its id across cycles so it can still be fetched once it
// lands on a terminal status (NonTerminalTrades would no longer list it).
func (h *harness) onlyTrade() domain.Trade {
	h.t.Helper()
	ctx := context.Background()
	if h.tradeID == 0 {
		trades, err := h.ledger.NonTerminalTrades(ctx)
		require.NoError(h.t, err)
		require.Len(h.t, trades, 1)
		h.tradeID = trades[0].ID
	}
	tr, err := h.ledger.Trade(ctx, h.tradeID)
	require.NoError(h.t, err)
	return tr
}

func makeTestWindow(slug string, start, end int64) domain.MarketWindow {
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

// S1 — day flow happy path (spec §8 S1).
func TestScenario_S1_DayFlowHappyPath(t *testing.T) {
	cfg := baseConfig()
	h := newHarness(t, cfg)
	h.catalog.windows = []domain.MarketWindow{makeTestWindow("btc-1000000", 1000000, 1003600)}

	// tick 1: discovery creates NEW->SEARCHING_SIGNAL, TA returns a
	// qualifying signal at signal_ts=1000300, quality 50 >= 35.
	h.ta.det = domain.TADetection{Direction: domain.DirectionUp, SignalTS: 1000300, Quality: 50}
	h.ta.ok = true
	h.tick(1000300)

	tr := h.onlyTrade()
	require.Equal(t, domain.StatusSignalled, tr.Status)
	sig, ok, err := h.ledger.SignalForWindow(context.Background(), tr.WindowID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1000420), sig.ConfirmTS)

	// tick 2: now = confirm_ts, collapses SIGNALLED -> WAITING_CONFIRM ->
	// WAITING_CAP in one cycle (still PENDING, no ticks yet).
	h.tick(1000420)
	tr = h.onlyTrade()
	assert.Equal(t, domain.StatusWaitingCap, tr.Status)

	// tick 3: post-confirm ticks form a 3-run at/under the cap -> PASS -> READY.
	h.books.ticks = []domain.PriceTick{
		{TS: 1000421, Price: decimal.NewFromFloat(0.50)},
		{TS: 1000431, Price: decimal.NewFromFloat(0.54)},
		{TS: 1000441, Price: decimal.NewFromFloat(0.52)},
	}
	h.tick(1000441)
	tr = h.onlyTrade()
	require.Equal(t, domain.StatusReady, tr.Status)

	// tick 4: READY/DAY emits an approval card; no decision recorded yet.
	h.tick(1000450)
	require.Len(t, h.notifier.approvals, 1)

	// User approves; next cycle moves ORDER_PLACED (paper fills instantly).
	h.orch.RecordDecision(ports.UserDecision{TradeID: tr.ID, Kind: ports.UserDecisionOK})
	h.tick(1000460)
	tr = h.onlyTrade()
	require.Equal(t, domain.StatusOrderPlaced, tr.Status)
	assert.Equal(t, domain.DecisionOK, tr.Decision)

	// Settlement: window resolves UP, direction matches -> SETTLED, win.
	h.settle.outcome = domain.OutcomeUp
	h.tick(1003700)

	final := h.onlyTrade()
	require.Equal(t, domain.StatusSettled, final.Status)
	require.NotNil(t, final.IsWin)
	assert.True(t, *final.IsWin)
	require.NotNil(t, final.Pnl)

	stats, err := h.ledger.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TradeLevelStreak)
	assert.Equal(t, 1, stats.TotalWins)
}

// S2 — late confirm: confirm_ts lands at/after end_ts, SIGNALLED cancels LATE.
func TestScenario_S2_LateConfirm(t *testing.T) {
	cfg := baseConfig()
	h := newHarness(t, cfg)
	h.catalog.windows = []domain.MarketWindow{makeTestWindow("btc-late", 1000000, 1003600)}

	h.ta.det = domain.TADetection{Direction: domain.DirectionUp, SignalTS: 1003500, Quality: 50}
	h.ta.ok = true
	h.tick(1003500) // SEARCHING_SIGNAL -> SIGNALLED, confirm_ts=1003620

	tr := h.onlyTrade()
	require.Equal(t, domain.StatusSignalled, tr.Status)

	h.tick(1003550) // next cycle observes confirm_ts(1003620) >= end_ts(1003600)

	tr = h.onlyTrade()
	require.Equal(t, domain.StatusCancelled, tr.Status)
	assert.Equal(t, domain.CancelReasonLate, tr.CancelReason)

	stats, err := h.ledger.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TradeLevelStreak)
	assert.Zero(t, stats.TotalTrades) // never settled, no stats update at all
}

// S3 — CAP fail: pre-confirm dips are ignored (MG-2), the post-confirm
// run never reaches cap_min_ticks, WAITING_CAP cancels CAP_FAIL.
func TestScenario_S3_CapFailIgnoresPreConfirmTicks(t *testing.T) {
	cfg := baseConfig()
	h := newHarness(t, cfg)
	h.catalog.windows = []domain.MarketWindow{makeTestWindow("btc-capfail", 1000000, 1003600)}

	h.ta.det = domain.TADetection{Direction: domain.DirectionUp, SignalTS: 1000300, Quality: 50}
	h.ta.ok = true
	h.tick(1000300) // SEARCHING_SIGNAL -> SIGNALLED (confirm_ts=1000420)

	h.tick(1000420) // -> WAITING_CONFIRM -> WAITING_CAP

	h.books.ticks = []domain.PriceTick{
		{TS: 1000400, Price: decimal.NewFromFloat(0.40)}, // pre-confirm, MUST be ignored
		{TS: 1000410, Price: decimal.NewFromFloat(0.42)}, // pre-confirm, MUST be ignored
		{TS: 1000425, Price: decimal.NewFromFloat(0.60)},
		{TS: 1000500, Price: decimal.NewFromFloat(0.58)},
	}
	h.tick(1003600) // now >= end_ts with no PASS -> FAIL

	tr := h.onlyTrade()
	require.Equal(t, domain.StatusCancelled, tr.Status)
	assert.Equal(t, domain.CancelReasonCapFail, tr.CancelReason)
}

// S4 — SEARCHING_SIGNAL holds through a below-threshold signal and a
// None reading, then accepts the tick-3 qualifying signal (not tick-1's).
func TestScenario_S4_HoldsUntilQualifyingSignal(t *testing.T) {
	cfg := baseConfig()
	h := newHarness(t, cfg)
	h.catalog.windows = []domain.MarketWindow{makeTestWindow("btc-hold", 1000000, 1003600)}

	h.ta.det = domain.TADetection{Direction: domain.DirectionUp, SignalTS: 1000100, Quality: 20}
	h.ta.ok = true
	h.tick(1000100)
	tr := h.onlyTrade()
	assert.Equal(t, domain.StatusSearchingSignal, tr.Status)

	h.ta.ok = false
	h.tick(1000200)
	tr = h.onlyTrade()
	assert.Equal(t, domain.StatusSearchingSignal, tr.Status)

	h.ta.det = domain.TADetection{Direction: domain.DirectionUp, SignalTS: 1000300, Quality: 40}
	h.ta.ok = true
	h.tick(1000300)
	tr = h.onlyTrade()
	require.Equal(t, domain.StatusSignalled, tr.Status)

	sig, ok, err := h.ledger.SignalForWindow(context.Background(), tr.WindowID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1000300), sig.SignalTS)
	assert.Equal(t, 40.0, sig.Quality)
}

// S5 — night auto-OK under SOFT reset: a winning night trade brings
// night_streak to its cap and the reset clears night_streak/policy_mode
// while leaving trade_level_streak untouched.
func TestScenario_S5_NightSoftReset(t *testing.T) {
	cfg := baseConfig()
	cfg.NightMaxWinStreak = 5
	cfg.NightSessionMode = domain.NightSessionSoft
	h := newHarness(t, cfg)

	// Seed stats as if 4 prior night wins already happened, plus an
	// unrelated day win streak that SOFT reset must not touch.
	_, err := h.ledger.UpdateStats(context.Background(), func(s domain.Stats) domain.Stats {
		s.NightStreak = 4
		s.TradeLevelStreak = 7
		s.PolicyMode = domain.PolicyModeStrict
		return s
	})
	require.NoError(t, err)

	// Pin a night hour: DayStartHour=8,DayEndHour=20 means hour 1, where
	// the ticks below fall, is NIGHT.
	h.cfg.DayStartHour = 8
	h.cfg.DayEndHour = 20

	// The ticks below start at now=3700 (1970-01-01T01:01:40Z), inside the
	// night hours and inside a fresh window [3600, 7200+3600].
	h.catalog.windows = []domain.MarketWindow{makeTestWindow("btc-night", 3600, 7200+3600)}
	h.rebuild(executor.NewPaper(decimal.NewFromFloat(cfg.PriceCap)))

	h.ta.det = domain.TADetection{Direction: domain.DirectionUp, SignalTS: 3700, Quality: 50}
	h.ta.ok = true
	h.tick(3700) // SEARCHING_SIGNAL -> SIGNALLED, confirm_ts = 3820

	h.tick(3820) // -> WAITING_CONFIRM -> WAITING_CAP

	h.books.ticks = []domain.PriceTick{
		{TS: 3821, Price: decimal.NewFromFloat(0.50)},
		{TS: 3831, Price: decimal.NewFromFloat(0.50)},
		{TS: 3841, Price: decimal.NewFromFloat(0.50)},
	}
	h.tick(3841) // PASS -> READY

	h.tick(3850) // READY/NIGHT: night_streak(4) < cap(5) -> AUTO_OK -> ORDER_PLACED
	tr := h.onlyTrade()
	require.Equal(t, domain.StatusOrderPlaced, tr.Status)
	assert.Equal(t, domain.DecisionAutoOK, tr.Decision)
	assert.Equal(t, domain.TimeModeNight, tr.TimeMode)

	h.settle.outcome = domain.OutcomeUp
	h.tick(7200 + 3700)

	final := h.onlyTrade()
	require.Equal(t, domain.StatusSettled, final.Status)
	require.NotNil(t, final.IsWin)
	assert.True(t, *final.IsWin)

	stats, err := h.ledger.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NightStreak, "SOFT reset clears night_streak once the cap is reached")
	assert.Equal(t, domain.PolicyModeBase, stats.PolicyMode)
	assert.Equal(t, 8, stats.TradeLevelStreak, "trade_level_streak only increments, SOFT never resets it")
}

// S6 — user timeout auto-skip: no decision arrives before
// MAX_RESPONSE_SECONDS elapses, the next cycle observes the timeout and
// cancels EXPIRED/AUTO_SKIP without touching streaks.
func TestScenario_S6_UserTimeoutAutoSkip(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxResponseSeconds = 300
	h := newHarness(t, cfg)
	h.catalog.windows = []domain.MarketWindow{makeTestWindow("btc-timeout", 1000000, 1003600)}

	h.ta.det = domain.TADetection{Direction: domain.DirectionUp, SignalTS: 1000300, Quality: 50}
	h.ta.ok = true
	h.tick(1000300)
	h.tick(1000420)

	h.books.ticks = []domain.PriceTick{
		{TS: 1000421, Price: decimal.NewFromFloat(0.50)},
		{TS: 1000431, Price: decimal.NewFromFloat(0.50)},
		{TS: 1000441, Price: decimal.NewFromFloat(0.50)},
	}
	h.tick(1000441) // -> READY

	t0 := int64(1000450)
	h.tick(t0) // emits approval card, no decision

	// No decision ever recorded; next cycle observes the timeout.
	h.tick(t0 + cfg.MaxResponseSeconds)

	tr := h.onlyTrade()
	require.Equal(t, domain.StatusCancelled, tr.Status)
	assert.Equal(t, domain.CancelReasonExpired, tr.CancelReason)
	assert.Equal(t, domain.DecisionAutoSkip, tr.Decision)

	stats, err := h.ledger.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TradeLevelStreak)
	assert.Zero(t, stats.TotalTrades, "AUTO_SKIP is not taken-and-filled, never reaches settlement")
}
