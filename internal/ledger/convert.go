package ledger

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullTimePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func scanTime(ns sql.NullTime) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	return ns.Time
}

func nullInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func nullBoolPtr(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

func scanBoolPtr(n sql.NullInt64) *bool {
	if !n.Valid {
		return nil
	}
	b := n.Int64 != 0
	return &b
}

// decStr renders a decimal for storage. SQLite has no native decimal
// type; amounts are kept as their exact string form so round-tripping
// never loses precision to float64.
func decStr(d decimal.Decimal) string {
	return d.String()
}

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullDecPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDecPtr(n sql.NullString) *decimal.Decimal {
	if !n.Valid || n.String == "" {
		return nil
	}
	d := parseDec(n.String)
	return &d
}
