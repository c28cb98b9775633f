package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
)

const capCheckCols = `id, trade_id, token_id, confirm_ts, end_ts, status, consecutive_ticks, first_pass_ts, price_at_pass, created_at`

// CapCheckForTrade fetches the trade's cap check, if the CAP evaluator
// has run for it at least once.
func (l *SQLite) CapCheckForTrade(ctx context.Context, tradeID int64) (domain.CapCheck, bool, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+capCheckCols+` FROM cap_checks WHERE trade_id = ?`, tradeID)
	cc, err := scanCapCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CapCheck{}, false, nil
	}
	if err != nil {
		return domain.CapCheck{}, false, fmt.Errorf("ledger.CapCheckForTrade: trade %d: %w", tradeID, err)
	}
	return cc, true, nil
}

// SaveCapCheck upserts the single cap-check row for cc.TradeID. The CAP
// evaluator re-runs every cycle while a trade sits in WAITING_CAP, so
// this overwrites the previous PENDING verdict in place rather than
// accumulating a row per cycle.
func (l *SQLite) SaveCapCheck(ctx context.Context, cc domain.CapCheck) (domain.CapCheck, error) {
	now := time.Now().UTC()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO cap_checks (trade_id, token_id, confirm_ts, end_ts, status, consecutive_ticks, first_pass_ts, price_at_pass, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			token_id          = excluded.token_id,
			confirm_ts        = excluded.confirm_ts,
			end_ts            = excluded.end_ts,
			status            = excluded.status,
			consecutive_ticks = excluded.consecutive_ticks,
			first_pass_ts     = excluded.first_pass_ts,
			price_at_pass     = excluded.price_at_pass`,
		cc.TradeID, cc.TokenID, cc.ConfirmTS, cc.EndTS, string(cc.Status), cc.ConsecutiveTicks,
		nullInt64Ptr(cc.FirstPassTS), nullDecPtr(cc.PriceAtPass), now,
	)
	if err != nil {
		return domain.CapCheck{}, fmt.Errorf("ledger.SaveCapCheck: trade %d: %w", cc.TradeID, err)
	}

	row := l.db.QueryRowContext(ctx, `SELECT `+capCheckCols+` FROM cap_checks WHERE trade_id = ?`, cc.TradeID)
	got, err := scanCapCheck(row)
	if err != nil {
		return domain.CapCheck{}, fmt.Errorf("ledger.SaveCapCheck: reload trade %d: %w", cc.TradeID, err)
	}
	return got, nil
}

func scanCapCheck(row rowScanner) (domain.CapCheck, error) {
	var (
		cc        domain.CapCheck
		status    string
		firstPass sql.NullInt64
		priceAt   sql.NullString
		created   sql.NullTime
	)
	if err := row.Scan(&cc.ID, &cc.TradeID, &cc.TokenID, &cc.ConfirmTS, &cc.EndTS, &status, &cc.ConsecutiveTicks, &firstPass, &priceAt, &created); err != nil {
		return domain.CapCheck{}, err
	}
	cc.Status = domain.CapStatus(status)
	cc.FirstPassTS = scanInt64Ptr(firstPass)
	cc.PriceAtPass = scanDecPtr(priceAt)
	cc.CreatedAt = scanTime(created)
	return cc, nil
}
