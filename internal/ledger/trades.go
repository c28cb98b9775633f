package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/metrics"
	"github.com/alejandrodnm/martin/internal/policy"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/alejandrodnm/martin/internal/statemachine"
)

const tradeCols = `id, window_id, signal_id, status, time_mode, policy_mode, decision, cancel_reason,
	token_id, order_id, fill_status, fill_price, stake_amount, pnl, is_win,
	trade_level_streak_at_trade, night_streak_at_trade, approval_emitted_at, created_at, updated_at`

const nonTerminalStatuses = `'SETTLED', 'CANCELLED', 'ERROR'`

// ActiveTradeExists reports whether windowID already has a non-terminal
// trade (spec §5 — at most one live trade per window).
func (l *SQLite) ActiveTradeExists(ctx context.Context, windowID int64) (bool, error) {
	var exists int
	row := l.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM trades WHERE window_id = ? AND status NOT IN (`+nonTerminalStatuses+`))`,
		windowID,
	)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("ledger.ActiveTradeExists: window %d: %w", windowID, err)
	}
	return exists != 0, nil
}

// CreateTrade starts a new NEW trade for windowID. The partial unique
// index on trades(window_id) backstops the ActiveTradeExists check
// against a concurrent create — a violation surfaces as
// ErrDuplicateTrade rather than a generic constraint error.
func (l *SQLite) CreateTrade(ctx context.Context, windowID int64) (domain.Trade, error) {
	now := time.Now().UTC()
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO trades (window_id, status, policy_mode, decision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		windowID, string(domain.StatusNew), string(domain.PolicyModeBase), string(domain.DecisionPending), now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domain.Trade{}, fmt.Errorf("ledger.CreateTrade: window %d: %w", windowID, ErrDuplicateTrade)
		}
		return domain.Trade{}, fmt.Errorf("ledger.CreateTrade: window %d: %w", windowID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.CreateTrade: last insert id: %w", err)
	}
	return l.Trade(ctx, id)
}

// NonTerminalTrades returns every trade still accepting transitions, in
// the order the orchestrator should process them.
func (l *SQLite) NonTerminalTrades(ctx context.Context) ([]domain.Trade, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+tradeCols+` FROM trades WHERE status NOT IN (`+nonTerminalStatuses+`) ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ledger.NonTerminalTrades: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger.NonTerminalTrades: scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Trade fetches one trade by id.
func (l *SQLite) Trade(ctx context.Context, tradeID int64) (domain.Trade, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+tradeCols+` FROM trades WHERE id = ?`, tradeID)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trade{}, fmt.Errorf("ledger.Trade: id %d: %w", tradeID, ErrNotFound)
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Trade: id %d: %w", tradeID, err)
	}
	return t, nil
}

// Transition is the only path that changes a trade's status. It loads
// the current row, validates (event, reason) against the state machine,
// applies patch, and — when landing on SETTLED — folds the stats update
// in, all inside one transaction so the trade row and the stats row
// never disagree about whether this trade has been counted.
func (l *SQLite) Transition(ctx context.Context, tradeID int64, event statemachine.Event, reason domain.CancelReason, patch ports.TradePatch) (domain.Trade, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Transition: begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+tradeCols+` FROM trades WHERE id = ?`, tradeID)
	current, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: %w", tradeID, ErrNotFound)
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: load: %w", tradeID, err)
	}

	from := current.Status
	next, err := statemachine.Apply(current.Status, event, reason)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: %w", tradeID, err)
	}

	if patch.NewSignal != nil {
		sig := *patch.NewSignal
		sig.WindowID = current.WindowID
		saved, err := insertSignal(ctx, tx, sig)
		if err != nil {
			return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: attach signal: %w", tradeID, err)
		}
		current.SignalID = &saved.ID
	}

	applyPatch(&current, patch)
	current.Status = next
	current.CancelReason = reason
	current.UpdatedAt = time.Now().UTC()

	if next == domain.StatusSettled {
		if current.IsWin == nil || current.Pnl == nil {
			return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: %w", tradeID, ErrMissingSettlement)
		}
		if patch.Thresholds == nil {
			return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: settlement thresholds required: %w", tradeID, ErrMissingSettlement)
		}
		stats, err := getStatsTx(ctx, tx)
		if err != nil {
			return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: load stats: %w", tradeID, err)
		}
		outcome := policy.ApplySettlement(stats, current, *patch.Thresholds)
		if err := saveStatsTx(ctx, tx, outcome.Stats); err != nil {
			return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: %w", tradeID, err)
		}
	}

	if err := updateTradeTx(ctx, tx, current); err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: %w", tradeID, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Transition: trade %d: commit: %w", tradeID, err)
	}
	metrics.Transitions.WithLabelValues(string(from), string(next), string(event)).Inc()
	return current, nil
}

// Touch applies patch to tradeID without moving its status. Unlike
// Transition it never consults the state machine and never folds in a
// stats update — it exists for in-state bookkeeping: the
// approval_emitted_at and time_mode fields the orchestrator records
// while a trade sits in READY waiting on a human decision, and the
// order id, token, fill price and fill status it records while a trade
// sits in ORDER_PLACED.
func (l *SQLite) Touch(ctx context.Context, tradeID int64, patch ports.TradePatch) (domain.Trade, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Touch: begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+tradeCols+` FROM trades WHERE id = ?`, tradeID)
	current, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trade{}, fmt.Errorf("ledger.Touch: trade %d: %w", tradeID, ErrNotFound)
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Touch: trade %d: load: %w", tradeID, err)
	}
	if current.Status.IsTerminal() {
		return domain.Trade{}, fmt.Errorf("ledger.Touch: trade %d: %w", tradeID, statemachine.ErrIllegalTransition)
	}

	applyPatch(&current, patch)
	current.UpdatedAt = time.Now().UTC()

	if err := updateTradeTx(ctx, tx, current); err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Touch: trade %d: %w", tradeID, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Trade{}, fmt.Errorf("ledger.Touch: trade %d: commit: %w", tradeID, err)
	}
	return current, nil
}

func applyPatch(t *domain.Trade, patch ports.TradePatch) {
	if patch.TimeMode != nil {
		t.TimeMode = *patch.TimeMode
	}
	if patch.PolicyMode != nil {
		t.PolicyMode = *patch.PolicyMode
	}
	if patch.Decision != nil {
		t.Decision = *patch.Decision
	}
	if patch.TokenID != nil {
		t.TokenID = *patch.TokenID
	}
	if patch.OrderID != nil {
		t.OrderID = *patch.OrderID
	}
	if patch.FillStatus != nil {
		t.FillStatus = *patch.FillStatus
	}
	if patch.FillPrice != nil {
		t.FillPrice = *patch.FillPrice
	}
	if patch.StakeAmount != nil {
		t.StakeAmount = *patch.StakeAmount
	}
	if patch.Pnl != nil {
		t.Pnl = patch.Pnl
	}
	if patch.IsWin != nil {
		t.IsWin = patch.IsWin
	}
	if patch.TradeLevelStreakAtTrade != nil {
		t.TradeLevelStreakAtTrade = *patch.TradeLevelStreakAtTrade
	}
	if patch.NightStreakAtTrade != nil {
		t.NightStreakAtTrade = *patch.NightStreakAtTrade
	}
	if patch.ApprovalEmittedAt != nil {
		t.ApprovalEmittedAt = *patch.ApprovalEmittedAt
	}
}

func updateTradeTx(ctx context.Context, tx *sql.Tx, t domain.Trade) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE trades SET
			signal_id = ?, status = ?, time_mode = ?, policy_mode = ?, decision = ?, cancel_reason = ?,
			token_id = ?, order_id = ?, fill_status = ?, fill_price = ?, stake_amount = ?, pnl = ?, is_win = ?,
			trade_level_streak_at_trade = ?, night_streak_at_trade = ?, approval_emitted_at = ?, updated_at = ?
		WHERE id = ?`,
		nullInt64Ptr(t.SignalID), string(t.Status), string(t.TimeMode), string(t.PolicyMode), string(t.Decision), string(t.CancelReason),
		t.TokenID, t.OrderID, string(t.FillStatus), decStr(t.FillPrice), decStr(t.StakeAmount), nullDecPtr(t.Pnl), nullBoolPtr(t.IsWin),
		t.TradeLevelStreakAtTrade, t.NightStreakAtTrade, nullTimePtr(&t.ApprovalEmittedAt), t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update trade %d: %w", t.ID, err)
	}
	return nil
}

func scanTrade(row rowScanner) (domain.Trade, error) {
	var (
		t              domain.Trade
		signalID       sql.NullInt64
		status         string
		timeMode       string
		policyMode     string
		decision       string
		cancelReason   string
		fillStatus     string
		fillPrice      string
		stakeAmount    string
		pnl            sql.NullString
		isWin          sql.NullInt64
		approvalAt     sql.NullTime
		created        sql.NullTime
		updated        sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.WindowID, &signalID, &status, &timeMode, &policyMode, &decision, &cancelReason,
		&t.TokenID, &t.OrderID, &fillStatus, &fillPrice, &stakeAmount, &pnl, &isWin,
		&t.TradeLevelStreakAtTrade, &t.NightStreakAtTrade, &approvalAt, &created, &updated,
	); err != nil {
		return domain.Trade{}, err
	}

	t.SignalID = scanInt64Ptr(signalID)
	t.Status = domain.Status(status)
	t.TimeMode = domain.TimeMode(timeMode)
	t.PolicyMode = domain.PolicyMode(policyMode)
	t.Decision = domain.Decision(decision)
	t.CancelReason = domain.CancelReason(cancelReason)
	t.FillStatus = domain.FillStatus(fillStatus)
	t.FillPrice = parseDec(fillPrice)
	t.StakeAmount = parseDec(stakeAmount)
	t.Pnl = scanDecPtr(pnl)
	t.IsWin = scanBoolPtr(isWin)
	if approvalAt.Valid {
		t.ApprovalEmittedAt = approvalAt.Time
	}
	t.CreatedAt = scanTime(created)
	t.UpdatedAt = scanTime(updated)
	return t, nil
}
