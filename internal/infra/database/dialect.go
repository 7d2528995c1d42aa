package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// Dialect isolates the encoding differences between postgres and sqlite:
// placeholders, list columns and timestamps.
type Dialect interface {
	Name() string
	Placeholder(n int) string
	ListValue(v []string) any
	NewList() ListScanner
	TimeValue(t time.Time) any
	NewTime() TimeScanner
}

type ListScanner interface {
	sql.Scanner
	Strings() []string
}

type TimeScanner interface {
	sql.Scanner
	Time() time.Time
}

// Postgres stores lists as text[] and timestamps as timestamptz.
var Postgres Dialect = postgresDialect{}

// SQLite stores lists as JSON text and timestamps as unix milliseconds.
var SQLite Dialect = sqliteDialect{}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) ListValue(v []string) any {
	if v == nil {
		v = []string{}
	}
	return pq.Array(v)
}

func (postgresDialect) NewList() ListScanner { return &pgList{} }

func (postgresDialect) TimeValue(t time.Time) any { return t.UTC() }

func (postgresDialect) NewTime() TimeScanner { return &pgTime{} }

type pgList struct {
	pq.StringArray
}

func (l *pgList) Strings() []string {
	if len(l.StringArray) == 0 {
		return nil
	}
	return []string(l.StringArray)
}

type pgTime struct {
	sql.NullTime
}

func (t *pgTime) Time() time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.NullTime.Time.UTC()
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) ListValue(v []string) any {
	return jsonList(v)
}

func (sqliteDialect) NewList() ListScanner { return &jsonList{} }

func (sqliteDialect) TimeValue(t time.Time) any { return toMillis(t) }

func (sqliteDialect) NewTime() TimeScanner { return &millisTime{} }

// jsonList is a string list encoded as a JSON array.
type jsonList []string

func (l jsonList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *jsonList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan list: %w", err)
	}
	*l = out
	return nil
}

func (l *jsonList) Strings() []string {
	if len(*l) == 0 {
		return nil
	}
	return []string(*l)
}

type millisTime struct {
	sql.NullInt64
}

func (t *millisTime) Time() time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return fromMillis(t.Int64)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
