package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
)

const eventsPath = "/events"

// gammaEvent is the subset of Gamma's /events response MARTIN needs:
// Polymarket's hourly up/down markets are published as single-market
// events tagged by the underlying asset's slug prefix.
type gammaEvent struct {
	Slug    string        `json:"slug"`
	Markets []gammaMarket `json:"markets"`
}

type gammaMarket struct {
	ConditionID string   `json:"conditionId"`
	Slug        string   `json:"slug"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Closed      bool     `json:"closed"`
	ClobTokenID []string `json:"clobTokenIds"`
}

// ListOpenWindows implements ports.MarketCatalog. It fetches one page
// (limit=10) of Gamma's hourly up/down events per configured asset, with
// no further paging, and keeps only
// markets that are not yet closed and whose end_date is in the future.
func (c *Client) ListOpenWindows(ctx context.Context, assets []domain.Asset, now int64) ([]domain.MarketWindow, error) {
	var windows []domain.MarketWindow

	for _, asset := range assets {
		url := fmt.Sprintf("%s%s?slug=%s&closed=false&limit=10",
			c.gammaBase, eventsPath, hourlySlugPrefix(asset))

		var events []gammaEvent
		if err := c.get(ctx, c.gammaLimiter, url, &events); err != nil {
			return nil, fmt.Errorf("marketdata.ListOpenWindows: asset %s: %w", asset, err)
		}

		for _, ev := range events {
			for _, m := range ev.Markets {
				if m.Closed || len(m.ClobTokenID) != 2 {
					continue
				}
				w, err := toWindow(asset, m)
				if err != nil {
					continue
				}
				if w.EndTS <= now {
					continue
				}
				windows = append(windows, w)
			}
		}
	}

	return windows, nil
}

// hourlySlugPrefix is Polymarket's naming convention for hourly up/down
// markets, e.g. "bitcoin-up-or-down" for BTC.
func hourlySlugPrefix(asset domain.Asset) string {
	switch strings.ToUpper(string(asset)) {
	case "BTC":
		return "bitcoin-up-or-down"
	case "ETH":
		return "ethereum-up-or-down"
	default:
		return strings.ToLower(string(asset)) + "-up-or-down"
	}
}

func toWindow(asset domain.Asset, m gammaMarket) (domain.MarketWindow, error) {
	start, err := time.Parse(time.RFC3339, m.StartDate)
	if err != nil {
		return domain.MarketWindow{}, fmt.Errorf("parse start_date: %w", err)
	}
	end, err := time.Parse(time.RFC3339, m.EndDate)
	if err != nil {
		return domain.MarketWindow{}, fmt.Errorf("parse end_date: %w", err)
	}

	return domain.MarketWindow{
		Asset:       asset,
		Slug:        m.Slug,
		ConditionID: m.ConditionID,
		UpTokenID:   m.ClobTokenID[0],
		DownTokenID: m.ClobTokenID[1],
		StartTS:     start.Unix(),
		EndTS:       end.Unix(),
	}, nil
}
