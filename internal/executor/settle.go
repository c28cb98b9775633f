// Package executor implements the Paper and Live Executors (spec §4.8):
// the two concrete ports.Executor adapters behind the orchestrator's
// ORDER_PLACED polling and settlement steps.
package executor

import (
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ports"
)

// settle is shared by Paper and Live: both resolve is_win the same way
// (the trade's filled token against the window's resolved outcome) and
// compute pnl off the same share-redemption math. win_payout is the
// number of shares the stake bought at fill_price, since a winning
// binary-outcome share redeems for exactly 1 unit of collateral.
func settle(trade domain.Trade, window domain.MarketWindow) ports.SettleResult {
	direction := domain.DirectionDown
	if trade.TokenID == window.UpTokenID {
		direction = domain.DirectionUp
	}
	isWin := direction.Matches(window.Outcome)

	if !isWin {
		return ports.SettleResult{IsWin: false, Pnl: trade.StakeAmount.Neg()}
	}

	shares := trade.StakeAmount.Div(trade.FillPrice)
	payout := shares.Sub(trade.StakeAmount)
	return ports.SettleResult{IsWin: true, Pnl: payout}
}

// paperOrderPrefix distinguishes paper fills from live CLOB order ids in
// logs and the ledger without needing a separate column.
const paperOrderPrefix = "paper-"
