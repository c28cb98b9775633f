package marketdata

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/shopspring/decimal"
)

const pricesHistoryPath = "/prices-history"

type candleResponse struct {
	History []struct {
		T int64   `json:"t"`
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"history"`
}

// assetIndexToken maps an asset to the Polymarket index token the CLOB
// exposes OHLCV history for (the "up" side of its hourly market family).
// The snapshot worker only needs relative price motion, so any fixed
// representative token for the asset is sufficient.
var assetIndexToken = map[domain.Asset]string{
	domain.Asset("BTC"): "btc-hourly-index",
	domain.Asset("ETH"): "eth-hourly-index",
}

// Candles implements ports.CandleSource. interval maps to the CLOB
// history endpoint's fidelity parameter.
func (c *Client) Candles(ctx context.Context, asset domain.Asset, interval domain.Interval, from, to int64) ([]domain.Candle, error) {
	token, ok := assetIndexToken[asset]
	if !ok {
		token = string(asset)
	}

	fidelity := 1
	if interval == domain.Interval5m {
		fidelity = 5
	}

	url := fmt.Sprintf("%s%s?market=%s&startTs=%d&endTs=%d&fidelity=%d",
		c.clobBase, pricesHistoryPath, token, from, to, fidelity)

	var resp candleResponse
	if err := c.get(ctx, c.clobLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("marketdata.Candles: %w", err)
	}

	candles := make([]domain.Candle, 0, len(resp.History))
	for _, h := range resp.History {
		candles = append(candles, domain.Candle{
			TS:     h.T,
			Open:   decimal.NewFromFloat(h.O),
			High:   decimal.NewFromFloat(h.H),
			Low:    decimal.NewFromFloat(h.L),
			Close:  decimal.NewFromFloat(h.C),
			Volume: decimal.NewFromFloat(h.V),
		})
	}
	return candles, nil
}
