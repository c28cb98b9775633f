// Package ledger is the single writer for window, signal, trade,
// cap-check, stats and settings rows (spec §5, §6). Every status change
// on a trade goes through Transition, which validates the move against
// the state machine and commits the patch — and, when the destination
// is SETTLED, the stats update — in one transaction.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite implements ports.Ledger on top of modernc.org/sqlite — pure
// Go, no CGo, matching the teacher's storage adapter.
type SQLite struct {
	db *sql.DB
}

// Open creates or reopens the ledger database at path and applies any
// pending migrations. SQLite is single-writer; MaxOpenConns is pinned
// to 1 so every write is serialized by the connection pool rather than
// relying on row locks Transition can't otherwise get from SQLite.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &SQLite{db: db}
	if err := l.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger.Open: migrate: %w", err)
	}
	return l, nil
}

func (l *SQLite) migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id         INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL
		)`); err != nil {
		return fmt.Errorf("bootstrap schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied int
		row := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE id = ?`, m.id)
		if err := row.Scan(&applied); err != nil {
			return fmt.Errorf("check migration %d: %w", m.id, err)
		}
		if applied > 0 {
			continue
		}

		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.id, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.id, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (id, applied_at) VALUES (?, ?)`, m.id, time.Now().UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.id, err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (l *SQLite) Close() error {
	return l.db.Close()
}
