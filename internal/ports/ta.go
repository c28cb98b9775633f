package ports

import "github.com/alejandrodnm/martin/internal/domain"

// TASnapshot is the immutable candle snapshot passed to the TA oracle —
// one per asset, refreshed by the snapshot worker (spec §4.1).
type TASnapshot struct {
	Candles1m  []domain.Candle
	Candles5m  []domain.Candle
	FetchedAt  int64
}

// TADetection is what the TA oracle returns when it finds a qualifying
// signal. Quality and Breakdown are opaque to every caller except the
// threshold comparison (spec §4.3).
type TADetection struct {
	Direction domain.Direction
	SignalTS  int64
	Quality   float64
	Breakdown []byte
}

// TAOracle is the duck-typed capability the spec treats as a pure black
// box (§4.3, §9 "Duck-typed TA call"). ok=false means "no signal yet" —
// a tagged union, not a nullable boolean.
type TAOracle interface {
	Evaluate(window domain.MarketWindow, now int64, snap TASnapshot) (det TADetection, ok bool)
}
