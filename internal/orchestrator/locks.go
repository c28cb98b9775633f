package orchestrator

import "sync"

// tradeLocks hands out one mutex per trade id so a cycle's per-trade
// processing and any concurrent decision-stream event are strictly
// serialized against the same trade (spec §5 — "advisory lock keyed by
// trade.id"). Entries are never removed; the lock set only grows, which
// is acceptable for the lifetime of a single process.
type tradeLocks struct {
	mu    sync.Mutex
	perID map[int64]*sync.Mutex
}

func newTradeLocks() *tradeLocks {
	return &tradeLocks{perID: make(map[int64]*sync.Mutex)}
}

func (t *tradeLocks) lock(tradeID int64) (unlock func()) {
	t.mu.Lock()
	m, ok := t.perID[tradeID]
	if !ok {
		m = &sync.Mutex{}
		t.perID[tradeID] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m.Unlock
}
