package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
)

// UpsertWindow inserts the window if its slug is new, or returns the
// existing row unchanged. Window identity is fixed by the venue at
// creation time — start_ts, end_ts and the token ids never change once
// a window has been seen, so UpsertWindow never updates them.
func (l *SQLite) UpsertWindow(ctx context.Context, w domain.MarketWindow) (domain.MarketWindow, error) {
	now := time.Now().UTC()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO market_windows
			(asset, slug, condition_id, up_token_id, down_token_id, start_ts, end_ts, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO NOTHING`,
		string(w.Asset), w.Slug, w.ConditionID, w.UpTokenID, w.DownTokenID, w.StartTS, w.EndTS, string(w.Outcome), now,
	)
	if err != nil {
		return domain.MarketWindow{}, fmt.Errorf("ledger.UpsertWindow: insert %q: %w", w.Slug, err)
	}

	row := l.db.QueryRowContext(ctx, `SELECT `+windowCols+` FROM market_windows WHERE slug = ?`, w.Slug)
	got, err := scanWindow(row)
	if err != nil {
		return domain.MarketWindow{}, fmt.Errorf("ledger.UpsertWindow: reload %q: %w", w.Slug, err)
	}
	return got, nil
}

// Window fetches one window by id.
func (l *SQLite) Window(ctx context.Context, windowID int64) (domain.MarketWindow, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+windowCols+` FROM market_windows WHERE id = ?`, windowID)
	w, err := scanWindow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MarketWindow{}, fmt.Errorf("ledger.Window: id %d: %w", windowID, ErrNotFound)
	}
	if err != nil {
		return domain.MarketWindow{}, fmt.Errorf("ledger.Window: id %d: %w", windowID, err)
	}
	return w, nil
}

// SetWindowOutcome fixes the resolved outcome. Outcome is write-once:
// a second call with the same value is a no-op, a second call with a
// different value is an invariant violation.
func (l *SQLite) SetWindowOutcome(ctx context.Context, windowID int64, outcome domain.Outcome) error {
	w, err := l.Window(ctx, windowID)
	if err != nil {
		return err
	}
	if w.IsResolved() {
		if w.Outcome == outcome {
			return nil
		}
		return fmt.Errorf("ledger.SetWindowOutcome: window %d has %q, got %q: %w", windowID, w.Outcome, outcome, ErrOutcomeConflict)
	}

	_, err = l.db.ExecContext(ctx, `UPDATE market_windows SET outcome = ? WHERE id = ? AND outcome = ''`, string(outcome), windowID)
	if err != nil {
		return fmt.Errorf("ledger.SetWindowOutcome: window %d: %w", windowID, err)
	}
	return nil
}

const windowCols = `id, asset, slug, condition_id, up_token_id, down_token_id, start_ts, end_ts, outcome, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWindow(row rowScanner) (domain.MarketWindow, error) {
	var (
		w       domain.MarketWindow
		asset   string
		outcome string
		created sql.NullTime
	)
	if err := row.Scan(&w.ID, &asset, &w.Slug, &w.ConditionID, &w.UpTokenID, &w.DownTokenID, &w.StartTS, &w.EndTS, &outcome, &created); err != nil {
		return domain.MarketWindow{}, err
	}
	w.Asset = domain.Asset(asset)
	w.Outcome = domain.Outcome(outcome)
	w.CreatedAt = scanTime(created)
	return w, nil
}
