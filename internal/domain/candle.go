package domain

import "github.com/shopspring/decimal"

// Interval is a candle timeframe.
type Interval string

const (
	Interval1m Interval = "1m"
	Interval5m Interval = "5m"
)

// Candle is one OHLCV bar.
type Candle struct {
	TS     int64
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// Setting is a persisted key/value configuration override (§6).
type Setting struct {
	Key       string
	Value     string
	UpdatedAt int64
}
