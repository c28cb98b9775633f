package ledger

// schema.go — table layout for the trade ledger (spec §6).
//
// Tables:
//   market_windows — one row per hourly window, immutable once created
//                    except for outcome, which is set exactly once
//   signals        — at most one per window, inserted together with the
//                    SIGNALLED transition
//   trades         — the state machine's own table; a partial unique
//                    index enforces at most one non-terminal trade per
//                    window (spec §5's "single writer" invariant)
//   cap_checks     — at most one per trade, overwritten as the CAP
//                    evaluator re-runs each cycle
//   stats          — a single row (id=1), updated inside the same
//                    transaction that settles a trade, or through
//                    UpdateStats for the READY/NIGHT night-session reset
//   settings       — free-form key/value overrides (spec §9 effective
//                    config resolution)
//   schema_migrations — applied migration ids, for idempotent startup

const schema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    id         INTEGER PRIMARY KEY,
    applied_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS market_windows (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    asset          TEXT    NOT NULL,
    slug           TEXT    NOT NULL UNIQUE,
    condition_id   TEXT    NOT NULL DEFAULT '',
    up_token_id    TEXT    NOT NULL DEFAULT '',
    down_token_id  TEXT    NOT NULL DEFAULT '',
    start_ts       INTEGER NOT NULL,
    end_ts         INTEGER NOT NULL,
    outcome        TEXT    NOT NULL DEFAULT '',
    created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_windows_end_ts ON market_windows(end_ts);
CREATE INDEX IF NOT EXISTS idx_windows_outcome ON market_windows(outcome);

CREATE TABLE IF NOT EXISTS signals (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    window_id      INTEGER NOT NULL UNIQUE REFERENCES market_windows(id),
    direction      TEXT    NOT NULL,
    signal_ts      INTEGER NOT NULL,
    confirm_ts     INTEGER NOT NULL,
    quality        REAL    NOT NULL,
    breakdown      BLOB,
    anchor_bar_ts  INTEGER NOT NULL,
    created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    id                          INTEGER PRIMARY KEY AUTOINCREMENT,
    window_id                   INTEGER NOT NULL REFERENCES market_windows(id),
    signal_id                   INTEGER REFERENCES signals(id),
    status                      TEXT    NOT NULL,
    time_mode                   TEXT    NOT NULL DEFAULT '',
    policy_mode                 TEXT    NOT NULL DEFAULT 'BASE',
    decision                    TEXT    NOT NULL DEFAULT 'PENDING',
    cancel_reason               TEXT    NOT NULL DEFAULT '',
    token_id                    TEXT    NOT NULL DEFAULT '',
    order_id                    TEXT    NOT NULL DEFAULT '',
    fill_status                 TEXT    NOT NULL DEFAULT '',
    fill_price                  TEXT    NOT NULL DEFAULT '0',
    stake_amount                TEXT    NOT NULL DEFAULT '0',
    pnl                         TEXT,
    is_win                      INTEGER,
    trade_level_streak_at_trade INTEGER NOT NULL DEFAULT 0,
    night_streak_at_trade       INTEGER NOT NULL DEFAULT 0,
    approval_emitted_at         DATETIME,
    created_at                  DATETIME NOT NULL,
    updated_at                  DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_window_nonterminal
    ON trades(window_id)
    WHERE status NOT IN ('SETTLED', 'CANCELLED', 'ERROR');

CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);

CREATE TABLE IF NOT EXISTS cap_checks (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    trade_id          INTEGER NOT NULL UNIQUE REFERENCES trades(id),
    token_id          TEXT    NOT NULL,
    confirm_ts        INTEGER NOT NULL,
    end_ts            INTEGER NOT NULL,
    status            TEXT    NOT NULL,
    consecutive_ticks INTEGER NOT NULL DEFAULT 0,
    first_pass_ts     INTEGER,
    price_at_pass     TEXT,
    created_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS stats (
    id                           INTEGER PRIMARY KEY CHECK (id = 1),
    trade_level_streak           INTEGER NOT NULL DEFAULT 0,
    night_streak                 INTEGER NOT NULL DEFAULT 0,
    policy_mode                  TEXT    NOT NULL DEFAULT 'BASE',
    total_trades                 INTEGER NOT NULL DEFAULT 0,
    total_wins                   INTEGER NOT NULL DEFAULT 0,
    total_losses                 INTEGER NOT NULL DEFAULT 0,
    last_strict_day_threshold    REAL    NOT NULL DEFAULT 0,
    last_strict_night_threshold  REAL    NOT NULL DEFAULT 0,
    last_quantile_update_ts      INTEGER NOT NULL DEFAULT 0,
    is_paused                    INTEGER NOT NULL DEFAULT 0,
    day_only                     INTEGER NOT NULL DEFAULT 0,
    night_only                   INTEGER NOT NULL DEFAULT 0,
    updated_at                   DATETIME NOT NULL
);

INSERT OR IGNORE INTO stats (id, updated_at) VALUES (1, CURRENT_TIMESTAMP);

CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`

// migrations are applied in order, each wrapped in its own transaction
// and recorded in schema_migrations so re-running Open is a no-op. The
// base schema above is itself idempotent (CREATE TABLE IF NOT EXISTS);
// migrations exist for changes that DDL-as-a-constant can't express,
// such as backfills or column additions on an existing database.
var migrations = []struct {
	id  int
	sql string
}{
	{id: 1, sql: schema},
}
