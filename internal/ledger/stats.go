package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
)

const statsCols = `trade_level_streak, night_streak, policy_mode, total_trades, total_wins, total_losses,
	last_strict_day_threshold, last_strict_night_threshold, last_quantile_update_ts,
	is_paused, day_only, night_only, updated_at`

// Stats returns the singleton counters/policy row.
func (l *SQLite) Stats(ctx context.Context) (domain.Stats, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+statsCols+` FROM stats WHERE id = 1`)
	return scanStats(row)
}

// UpdateStats applies fn to the current stats row inside a transaction
// and persists the result. Used outside Transition for the one §4.7
// case where a night-session reset must land before a trade is even
// cancelled (the READY/NIGHT "streak already at cap" guard) — every
// other stats mutation rides along with a SETTLED transition instead.
func (l *SQLite) UpdateStats(ctx context.Context, fn func(domain.Stats) domain.Stats) (domain.Stats, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("update stats: begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getStatsTx(ctx, tx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("update stats: load: %w", err)
	}

	next := fn(current)
	if err := saveStatsTx(ctx, tx, next); err != nil {
		return domain.Stats{}, fmt.Errorf("update stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Stats{}, fmt.Errorf("update stats: commit: %w", err)
	}
	return next, nil
}

func getStatsTx(ctx context.Context, tx *sql.Tx) (domain.Stats, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+statsCols+` FROM stats WHERE id = 1`)
	return scanStats(row)
}

func saveStatsTx(ctx context.Context, tx *sql.Tx, s domain.Stats) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE stats SET
			trade_level_streak = ?, night_streak = ?, policy_mode = ?,
			total_trades = ?, total_wins = ?, total_losses = ?,
			last_strict_day_threshold = ?, last_strict_night_threshold = ?, last_quantile_update_ts = ?,
			is_paused = ?, day_only = ?, night_only = ?, updated_at = ?
		WHERE id = 1`,
		s.TradeLevelStreak, s.NightStreak, string(s.PolicyMode),
		s.TotalTrades, s.TotalWins, s.TotalLosses,
		s.LastStrictDayThreshold, s.LastStrictNightThreshold, s.LastQuantileUpdateTS,
		boolToInt(s.IsPaused), boolToInt(s.DayOnly), boolToInt(s.NightOnly), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

func scanStats(row rowScanner) (domain.Stats, error) {
	var (
		s          domain.Stats
		policyMode string
		isPaused   int
		dayOnly    int
		nightOnly  int
		updated    sql.NullTime
	)
	if err := row.Scan(
		&s.TradeLevelStreak, &s.NightStreak, &policyMode,
		&s.TotalTrades, &s.TotalWins, &s.TotalLosses,
		&s.LastStrictDayThreshold, &s.LastStrictNightThreshold, &s.LastQuantileUpdateTS,
		&isPaused, &dayOnly, &nightOnly, &updated,
	); err != nil {
		return domain.Stats{}, fmt.Errorf("scan stats: %w", err)
	}
	s.ID = 1
	s.PolicyMode = domain.PolicyMode(policyMode)
	s.IsPaused = intToBool(isPaused)
	s.DayOnly = intToBool(dayOnly)
	s.NightOnly = intToBool(nightOnly)
	s.UpdatedAt = scanTime(updated)
	return s, nil
}
