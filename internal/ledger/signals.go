package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
)

const signalCols = `id, window_id, direction, signal_ts, confirm_ts, quality, breakdown, anchor_bar_ts`

// SignalForWindow fetches the window's signal, if one has been attached.
func (l *SQLite) SignalForWindow(ctx context.Context, windowID int64) (domain.Signal, bool, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+signalCols+` FROM signals WHERE window_id = ?`, windowID)
	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Signal{}, false, nil
	}
	if err != nil {
		return domain.Signal{}, false, fmt.Errorf("ledger.SignalForWindow: window %d: %w", windowID, err)
	}
	return sig, true, nil
}

// insertSignal attaches a new signal to a window inside tx. It is only
// ever called from Transition, as part of the SIGNALLED transition, so
// the insert and the trade's signal_id update commit atomically.
func insertSignal(ctx context.Context, tx *sql.Tx, sig domain.Signal) (domain.Signal, error) {
	var existing int
	row := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM signals WHERE window_id = ?`, sig.WindowID)
	if err := row.Scan(&existing); err != nil {
		return domain.Signal{}, fmt.Errorf("check existing signal: %w", err)
	}
	if existing > 0 {
		return domain.Signal{}, ErrDuplicateSignal
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO signals (window_id, direction, signal_ts, confirm_ts, quality, breakdown, anchor_bar_ts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.WindowID, string(sig.Direction), sig.SignalTS, sig.ConfirmTS, sig.Quality, sig.Breakdown, sig.AnchorBarTS, time.Now().UTC(),
	)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("insert signal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Signal{}, fmt.Errorf("signal last insert id: %w", err)
	}
	sig.ID = id
	return sig, nil
}

func scanSignal(row rowScanner) (domain.Signal, error) {
	var (
		sig       domain.Signal
		direction string
	)
	if err := row.Scan(&sig.ID, &sig.WindowID, &direction, &sig.SignalTS, &sig.ConfirmTS, &sig.Quality, &sig.Breakdown, &sig.AnchorBarTS); err != nil {
		return domain.Signal{}, err
	}
	sig.Direction = domain.Direction(direction)
	return sig, nil
}
