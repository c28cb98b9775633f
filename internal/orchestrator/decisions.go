package orchestrator

import (
	"sync"

	"github.com/alejandrodnm/martin/internal/ports"
)

// decisionStore buffers user decisions delivered off the notifier's
// decision stream until the trade they target is next processed. The
// READY/DAY step consumes and clears an entry for its own trade id;
// nothing else reads this map.
type decisionStore struct {
	mu  sync.Mutex
	byT map[int64]ports.UserDecision
}

func newDecisionStore() *decisionStore {
	return &decisionStore{byT: make(map[int64]ports.UserDecision)}
}

func (d *decisionStore) record(dec ports.UserDecision) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byT[dec.TradeID] = dec
}

// take returns and clears the buffered decision for tradeID, if any.
func (d *decisionStore) take(tradeID int64) (ports.UserDecision, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dec, ok := d.byT[tradeID]
	if ok {
		delete(d.byT, tradeID)
	}
	return dec, ok
}
