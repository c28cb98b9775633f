package marketdata

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/martin/internal/domain"
)

type marketResponse struct {
	Closed        bool     `json:"closed"`
	OutcomePrices []string `json:"outcomePrices"`
}

// ResolvedOutcome implements ports.SettlementSource. A window resolves
// UP when the first (up) outcome settled at price 1; it resolves
// OutcomeNone until Gamma reports the market closed, which the
// orchestrator treats as "data absence, stay in current state" rather
// than an error (spec §7).
func (c *Client) ResolvedOutcome(ctx context.Context, window domain.MarketWindow) (domain.Outcome, error) {
	url := fmt.Sprintf("%s/markets?condition_ids=%s", c.gammaBase, window.ConditionID)

	var resp []marketResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return domain.OutcomeNone, fmt.Errorf("marketdata.ResolvedOutcome: %w", err)
	}
	if len(resp) == 0 || !resp[0].Closed || len(resp[0].OutcomePrices) != 2 {
		return domain.OutcomeNone, nil
	}

	if resp[0].OutcomePrices[0] == "1" {
		return domain.OutcomeUp, nil
	}
	return domain.OutcomeDown, nil
}
