package marketdata

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/shopspring/decimal"
)

type priceHistoryResponse struct {
	History []struct {
		T int64   `json:"t"`
		P float64 `json:"p"`
	} `json:"history"`
}

// PriceTicks implements ports.BookProvider, feeding the CAP evaluator's
// entry-price validation (spec §4.6). Reuses the booksLimiter since
// price history shares the CLOB's per-token rate budget with /books.
func (c *Client) PriceTicks(ctx context.Context, tokenID string, from, to int64) ([]domain.PriceTick, error) {
	url := fmt.Sprintf("%s%s?market=%s&startTs=%d&endTs=%d&fidelity=1",
		c.clobBase, pricesHistoryPath, tokenID, from, to)

	var resp priceHistoryResponse
	if err := c.get(ctx, c.booksLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("marketdata.PriceTicks: %w", err)
	}

	ticks := make([]domain.PriceTick, 0, len(resp.History))
	for _, h := range resp.History {
		ticks = append(ticks, domain.PriceTick{
			TS:    h.T,
			Price: decimal.NewFromFloat(h.P),
		})
	}
	return ticks, nil
}
