package ledger

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/martin/internal/domain"
)

// Settings returns every persisted override row. Resolution order
// against environment and file config is a pure function left to the
// config package (spec §9) — the ledger only stores and lists.
func (l *SQLite) Settings(ctx context.Context) ([]domain.Setting, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("ledger.Settings: %w", err)
	}
	defer rows.Close()

	var out []domain.Setting
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ledger.Settings: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PutSetting upserts one override row. Not part of ports.Ledger — it is
// an operational surface used by the settings CLI subcommand.
func (l *SQLite) PutSetting(ctx context.Context, key, value string, updatedAt int64) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("ledger.PutSetting: %q: %w", key, err)
	}
	return nil
}
