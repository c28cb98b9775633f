// Package snapshot implements the Snapshot Worker (spec §4.1): a
// periodic per-asset candle fetch into an in-memory cache, decoupling
// signal scanning from the fetch latency of the candle source. Grounded
// on the teacher's SQLiteStorage in-memory cache pattern — a
// sync.Mutex-guarded map read by every consumer without copy — but
// backed by a fetch loop instead of write-through persistence.
package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/metrics"
	"github.com/alejandrodnm/martin/internal/ports"
)

// entry is one asset's cached TA context plus its fetch timestamp.
// Worker never exposes a pointer into the map — Snapshot returns a copy
// of the slices' headers, which is enough since candles are
// append-only and each refresh replaces the slice wholesale.
type entry struct {
	snap     ports.TASnapshot
	fetchErr error
}

// Worker keeps one ports.TASnapshot per configured asset fresh. It runs
// independently of the orchestrator loop; Snapshot reads never wait on
// an in-flight fetch (candles are fetched outside the lock, which is
// held only to replace one asset's entry in the map).
type Worker struct {
	candles ports.CandleSource
	assets  []domain.Asset
	warmup  time.Duration

	mu    sync.Mutex
	cache map[domain.Asset]entry
}

// NewWorker builds a Worker over the given candle source, polling the
// configured assets. warmup is how far back each fetch reaches (§4.1's
// W_WARMUP).
func NewWorker(candles ports.CandleSource, assets []domain.Asset, warmup time.Duration) *Worker {
	return &Worker{
		candles: candles,
		assets:  assets,
		warmup:  warmup,
		cache:   make(map[domain.Asset]entry, len(assets)),
	}
}

// RefreshNow runs one fetch pass synchronously. Exported so callers can
// force a warm cache before the first Run tick (e.g. at startup, or in
// tests that need a deterministic snapshot without waiting on a ticker).
func (w *Worker) RefreshNow(ctx context.Context) {
	w.refreshAll(ctx)
}

// Run fetches once immediately, then refreshes every period until ctx is
// cancelled. A single asset's fetch failure is logged and never blocks
// the others or stops the loop (spec §4.1 "per-asset" failure semantics).
func (w *Worker) Run(ctx context.Context, period time.Duration) {
	w.refreshAll(ctx)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot worker stopped")
			return
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

func (w *Worker) refreshAll(ctx context.Context) {
	now := time.Now().Unix()
	from := now - int64(w.warmup.Seconds())

	for _, asset := range w.assets {
		c1m, err1 := w.candles.Candles(ctx, asset, domain.Interval1m, from, now)
		c5m, err5 := w.candles.Candles(ctx, asset, domain.Interval5m, from, now)

		if err1 != nil || err5 != nil {
			slog.Warn("snapshot worker: fetch failed, retaining previous snapshot",
				"asset", asset, "err_1m", err1, "err_5m", err5)
			metrics.SnapshotFetchFailures.WithLabelValues(string(asset)).Inc()
			w.recordFetchErr(asset, firstNonNil(err1, err5))
			continue
		}

		w.store(asset, ports.TASnapshot{
			Candles1m: c1m,
			Candles5m: c5m,
			FetchedAt: now,
		})
	}
}

func (w *Worker) store(asset domain.Asset, snap ports.TASnapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cache[asset] = entry{snap: snap}
}

func (w *Worker) recordFetchErr(asset domain.Asset, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.cache[asset]
	prev.fetchErr = err
	w.cache[asset] = prev
}

// Snapshot returns the current cached TASnapshot for asset and whether
// one has ever been fetched. A stale (but present) snapshot is still
// returned — consumers check FetchedAt themselves.
func (w *Worker) Snapshot(asset domain.Asset) (ports.TASnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.cache[asset]
	if !ok {
		return ports.TASnapshot{}, false
	}
	return e.snap, e.snap.FetchedAt != 0
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
