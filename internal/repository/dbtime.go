package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// timeLayout is the on-disk representation of every timestamp.  It sorts
// lexicographically, which the SQLite backend relies on for expiry checks,
// and MySQL accepts it for DATETIME(3) columns.
const timeLayout = "2006-01-02 15:04:05.000"

// timeArg formats t for use as a query parameter.
func timeArg(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// dbTime scans a timestamp from either backend: MySQL with parseTime
// yields time.Time, SQLite yields the stored text.
type dbTime struct{ dst *time.Time }

func scanTime(dst *time.Time) sql.Scanner { return dbTime{dst: dst} }

func (d dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d.dst = v.UTC()
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		*d.dst = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (d dbTime) parse(s string) error {
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*d.dst = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

// queryer is implemented by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inClause returns "?,?,?" for n ids together with the ids as arguments.
func inClause(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
