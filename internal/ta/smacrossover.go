// Package ta provides a reference implementation of the ports.TAOracle
// black box (spec §4.3, §9 "duck-typed TA call"). The orchestrator core
// never inspects this package — spec.md explicitly scopes "the TA
// signal/quality function itself" out of the orchestrator's
// responsibility and treats it as a pure collaborator reachable only
// through ports.TAOracle. This package exists so cmd/martin has a
// concrete, runnable oracle to wire by default; operators are free to
// swap in their own.
//
// Grounded on the pack's RohanRaikwar-algo-sys-v1 indicator/strategy
// style (internal/indicator/sma.go, internal/strategy/sma_crossover.go):
// a fast/slow SMA crossover, optionally RSI-filtered. Unlike that
// repo's incremental ring-buffer strategy (which carries streaming
// state across ticks), Evaluate recomputes the SMAs from scratch on
// every call against the given snapshot — required by spec §4.3's
// purity contract ("repeated calls with equivalent inputs return
// equivalent outputs").
package ta

import (
	"encoding/json"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ports"
)

// SMACrossover detects a golden/death cross between a fast and slow
// simple moving average over 1-minute candles, optionally filtered by
// RSI to avoid buying overbought or selling oversold.
type SMACrossover struct {
	FastPeriod int
	SlowPeriod int

	RSIEnabled bool
	RSIPeriod  int
}

// NewSMACrossover builds a reference TAOracle. fast must be < slow.
func NewSMACrossover(fast, slow int) *SMACrossover {
	return &SMACrossover{FastPeriod: fast, SlowPeriod: slow}
}

// breakdown is JSON-encoded into TADetection.Breakdown. The orchestrator
// treats these bytes as opaque (spec §4.3) — this shape exists only for
// operator diagnostics (logged, never parsed by core code).
type breakdown struct {
	FastSMA   float64 `json:"fast_sma"`
	SlowSMA   float64 `json:"slow_sma"`
	PrevFast  float64 `json:"prev_fast_sma"`
	PrevSlow  float64 `json:"prev_slow_sma"`
	RSI       float64 `json:"rsi,omitempty"`
	CandleTS  int64   `json:"candle_ts"`
	CrossType string  `json:"cross_type"` // golden | death
}

// Evaluate implements ports.TAOracle. It looks only at 1-minute candles
// within [window.StartTS, now] and reports a crossover detected on the
// most recent candle, if any. Returning ok=false means "no signal yet"
// (spec §4.3's tagged union) — never a zero-value TADetection.
func (s *SMACrossover) Evaluate(window domain.MarketWindow, now int64, snap ports.TASnapshot) (ports.TADetection, bool) {
	candles := inWindow(snap.Candles1m, window.StartTS, now)
	if len(candles) < s.SlowPeriod+1 {
		return ports.TADetection{}, false // data absence: not an error (§7)
	}

	fastSMA := sma(candles, s.FastPeriod, len(candles)-1)
	slowSMA := sma(candles, s.SlowPeriod, len(candles)-1)
	prevFast := sma(candles, s.FastPeriod, len(candles)-2)
	prevSlow := sma(candles, s.SlowPeriod, len(candles)-2)

	last := candles[len(candles)-1]

	var dir domain.Direction
	var cross string
	switch {
	case prevFast <= prevSlow && fastSMA > slowSMA:
		dir, cross = domain.DirectionUp, "golden"
	case prevFast >= prevSlow && fastSMA < slowSMA:
		dir, cross = domain.DirectionDown, "death"
	default:
		return ports.TADetection{}, false
	}

	var rsi float64
	if s.RSIEnabled {
		rsi = computeRSI(candles, s.RSIPeriod)
		if (dir == domain.DirectionUp && rsi > 70) || (dir == domain.DirectionDown && rsi < 30) {
			return ports.TADetection{}, false
		}
	}

	spread := fastSMA - slowSMA
	if spread < 0 {
		spread = -spread
	}
	quality := 0.0
	if slowSMA != 0 {
		quality = (spread / slowSMA) * 10000 // basis points of separation
	}

	bd, _ := json.Marshal(breakdown{
		FastSMA: fastSMA, SlowSMA: slowSMA,
		PrevFast: prevFast, PrevSlow: prevSlow,
		RSI: rsi, CandleTS: last.TS, CrossType: cross,
	})

	return ports.TADetection{
		Direction: dir,
		SignalTS:  last.TS,
		Quality:   quality,
		Breakdown: bd,
	}, true
}

func inWindow(candles []domain.Candle, startTS, now int64) []domain.Candle {
	out := make([]domain.Candle, 0, len(candles))
	for _, c := range candles {
		if c.TS >= startTS && c.TS <= now {
			out = append(out, c)
		}
	}
	return out
}

// sma computes the simple moving average of period candles ending at
// index end (inclusive). Returns 0 if there aren't enough candles.
func sma(candles []domain.Candle, period, end int) float64 {
	start := end - period + 1
	if start < 0 || end < 0 || end >= len(candles) {
		return 0
	}
	var sum float64
	for i := start; i <= end; i++ {
		f, _ := candles[i].Close.Float64()
		sum += f
	}
	return sum / float64(period)
}

// computeRSI computes a plain (non-Wilder-smoothed) RSI over the last
// period+1 closes — sufficient for the filter's purpose since Evaluate
// is recomputed from scratch every call rather than carrying smoothed
// state across ticks.
func computeRSI(candles []domain.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 50
	}
	start := len(candles) - period - 1
	var gain, loss float64
	prev, _ := candles[start].Close.Float64()
	for i := start + 1; i < len(candles); i++ {
		cur, _ := candles[i].Close.Float64()
		change := cur - prev
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
		prev = cur
	}
	gain /= float64(period)
	loss /= float64(period)
	if loss == 0 {
		return 100
	}
	rs := gain / loss
	return 100 - (100 / (1 + rs))
}
