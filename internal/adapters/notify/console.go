// Package notify implements ports.Notifier as a console adapter —
// approval cards and a status/report table printed to stdout. Grounded
// on the teacher's internal/adapters/notify/console.go: same io.Writer
// field for testability and github.com/olekukonko/tablewriter for
// tabular output, generalized from Polymarket reward opportunities to
// MARTIN's per-trade approval cards.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console is a print-only ports.Notifier. SubscribeDecisions is out of
// scope here (spec §1: the user-decision channel is external to this
// repository) — it returns a channel that is never written to, so a
// Console-only deployment behaves as if every DAY approval times out
// rather than silently auto-approving.
type Console struct {
	out io.Writer
}

// NewConsole builds a notifier that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter builds a notifier against an arbitrary writer, for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// EmitApproval prints a one-line approval card for a READY trade.
func (c *Console) EmitApproval(_ context.Context, trade domain.Trade, window domain.MarketWindow, signal domain.Signal) error {
	fmt.Fprintf(c.out, "[%s] APPROVAL trade=%d %s %s %s quality=%.3f entry<=%s — reply OK/SKIP\n",
		time.Now().Format("15:04:05"),
		trade.ID, window.Asset, window.Slug, signal.Direction, signal.Quality, trade.FillPrice)
	return nil
}

// SubscribeDecisions returns a channel that is never populated; a real
// deployment wires a separate transport (chat bot, web UI) that calls
// into the orchestrator directly rather than through this adapter.
func (c *Console) SubscribeDecisions(ctx context.Context) (<-chan ports.UserDecision, error) {
	ch := make(chan ports.UserDecision)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// PrintStatus renders the current non-terminal trades as a table —
// backs the "status" operational command (spec §6).
func (c *Console) PrintStatus(trades []domain.Trade, windows map[int64]domain.MarketWindow) {
	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Window", "Status", "Mode", "Decision", "Token", "Stake")

	for _, t := range trades {
		w := windows[t.WindowID]
		table.Append(
			fmt.Sprintf("%d", t.ID),
			w.Slug,
			string(t.Status),
			string(t.TimeMode),
			string(t.Decision),
			shortToken(t.TokenID),
			fmt.Sprintf("$%s", t.StakeAmount.StringFixed(2)),
		)
	}
	table.Render()
}

// PrintReport renders the stats/policy singleton — backs the "report"
// operational command.
func (c *Console) PrintReport(stats domain.Stats) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("total trades", fmt.Sprintf("%d", stats.TotalTrades))
	table.Append("wins", fmt.Sprintf("%d", stats.TotalWins))
	table.Append("losses", fmt.Sprintf("%d", stats.TotalLosses))
	table.Append("trade-level streak", fmt.Sprintf("%d", stats.TradeLevelStreak))
	table.Append("night streak", fmt.Sprintf("%d", stats.NightStreak))
	table.Append("policy mode", string(stats.PolicyMode))
	table.Append("paused", fmt.Sprintf("%t", stats.IsPaused))
	table.Render()
}

func shortToken(tokenID string) string {
	if len(tokenID) <= 10 {
		return tokenID
	}
	return tokenID[:6] + "…" + tokenID[len(tokenID)-4:]
}
