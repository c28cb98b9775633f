package ta_test

import (
	"testing"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/alejandrodnm/martin/internal/ta"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candle(ts int64, close float64) domain.Candle {
	return domain.Candle{TS: ts, Close: decimal.NewFromFloat(close)}
}

func window(startTS int64) domain.MarketWindow {
	return domain.MarketWindow{ID: 1, Asset: domain.Asset("BTC"), StartTS: startTS, EndTS: startTS + 3600}
}

// buildSeries returns n one-minute candles starting at startTS, with
// closes following prices in order.
func buildSeries(startTS int64, prices []float64) []domain.Candle {
	out := make([]domain.Candle, len(prices))
	for i, p := range prices {
		out[i] = candle(startTS+int64(i*60), p)
	}
	return out
}

func TestSMACrossover_NotEnoughCandles(t *testing.T) {
	s := ta.NewSMACrossover(2, 5)
	snap := ports.TASnapshot{Candles1m: buildSeries(0, []float64{1, 2, 3})}

	_, ok := s.Evaluate(window(0), 180, snap)
	assert.False(t, ok)
}

func TestSMACrossover_GoldenCrossDetected(t *testing.T) {
	s := ta.NewSMACrossover(2, 4)
	// Flat-then-rising series so the fast SMA crosses above the slow one
	// on the last candle.
	prices := []float64{10, 10, 10, 10, 10, 20}
	snap := ports.TASnapshot{Candles1m: buildSeries(0, prices)}
	now := int64(len(prices)-1) * 60

	det, ok := s.Evaluate(window(0), now, snap)
	require.True(t, ok)
	assert.Equal(t, domain.DirectionUp, det.Direction)
	assert.Equal(t, now, det.SignalTS)
	assert.Greater(t, det.Quality, 0.0)
	assert.NotEmpty(t, det.Breakdown)
}

func TestSMACrossover_DeathCrossDetected(t *testing.T) {
	s := ta.NewSMACrossover(2, 4)
	prices := []float64{10, 10, 10, 10, 10, 1}
	snap := ports.TASnapshot{Candles1m: buildSeries(0, prices)}
	now := int64(len(prices)-1) * 60

	det, ok := s.Evaluate(window(0), now, snap)
	require.True(t, ok)
	assert.Equal(t, domain.DirectionDown, det.Direction)
}

func TestSMACrossover_NoCrossNoSignal(t *testing.T) {
	s := ta.NewSMACrossover(2, 4)
	prices := []float64{10, 10, 10, 10, 10, 10, 10}
	snap := ports.TASnapshot{Candles1m: buildSeries(0, prices)}
	now := int64(len(prices)-1) * 60

	_, ok := s.Evaluate(window(0), now, snap)
	assert.False(t, ok)
}

func TestSMACrossover_CandlesOutsideWindowIgnored(t *testing.T) {
	s := ta.NewSMACrossover(2, 4)
	prices := []float64{10, 10, 10, 10, 10, 20}
	all := buildSeries(-600, prices) // all candles before the window starts
	snap := ports.TASnapshot{Candles1m: all}

	_, ok := s.Evaluate(window(0), 600, snap)
	assert.False(t, ok)
}

func TestSMACrossover_RSIFilterBlocksOverboughtUp(t *testing.T) {
	s := ta.NewSMACrossover(2, 4)
	s.RSIEnabled = true
	s.RSIPeriod = 4

	// Flat-then-spike series: the last candle alone produces a golden
	// cross, but the same spike saturates RSI near 100, well above the
	// overbought cutoff, so the signal should be filtered out.
	prices := []float64{10, 10, 10, 10, 10, 50}
	snap := ports.TASnapshot{Candles1m: buildSeries(0, prices)}
	now := int64(len(prices)-1) * 60

	_, ok := s.Evaluate(window(0), now, snap)
	assert.False(t, ok)
}
