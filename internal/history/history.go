// Package history replays historical bars from a SQL store, one row at a
// time, behind the Source interface internal/feed also implements. All
// four backend drivers are registered via blank import so callers only
// need to name a driver string.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"  // sqlserver
	_ "github.com/go-sql-driver/mysql"    // mysql
	_ "github.com/lib/pq"                 // postgres
	_ "modernc.org/sqlite"                // sqlite, pure Go

	"barlang/internal/errs"
	"barlang/internal/vm"
)

// Source is the minimal interface every bar provider in this module
// implements: history.SQLSource for replay, feed.WSFeed for live
// ingestion.
type Source interface {
	// Next returns the next bar. ok is false (with a nil error) once the
	// stream is exhausted.
	Next(ctx context.Context) (bar vm.Bar, ok bool, err error)
	Close() error
}

// driverNames maps the friendly names this package accepts to the
// database/sql driver name the blank import above registered.
var driverNames = map[string]string{
	"sqlite":    "sqlite",
	"postgres":  "postgres",
	"mysql":     "mysql",
	"sqlserver": "sqlserver",
}

// SQLSource streams query's result rows as bars, one per Next call. The
// query is expected to project columns named T (timestamp, read into
// bar.Timestamp), O, H, L, C, and optionally V (volume); extra columns
// are ignored.
type SQLSource struct {
	db   *sql.DB
	rows *sql.Rows
}

// OpenSQL opens a database/sql connection for driverName (one of
// "sqlite", "postgres", "mysql", "sqlserver") and runs query, returning
// a Source that streams its rows as bars.
func OpenSQL(driverName, dsn, query string) (*SQLSource, error) {
	registered, ok := driverNames[driverName]
	if !ok {
		return nil, errs.New(errs.KindRuntimeError, fmt.Sprintf("history: unknown driver %q", driverName)).
			WithContext(map[string]interface{}{"known_drivers": knownDriverNames()})
	}
	db, err := sql.Open(registered, dsn)
	if err != nil {
		return nil, errs.Wrap(err, "history: opening connection")
	}
	rows, err := db.QueryContext(context.Background(), query)
	if err != nil {
		db.Close()
		return nil, errs.Wrap(err, "history: running replay query")
	}
	return &SQLSource{db: db, rows: rows}, nil
}

func knownDriverNames() []string {
	names := make([]string, 0, len(driverNames))
	for name := range driverNames {
		names = append(names, name)
	}
	return names
}

// Next scans the next row into a bar. Columns are matched by name
// against the rows' own column list so T/O/H/L/C/V can appear in any
// order; a T column sets bar.Timestamp, accepting either a driver-native
// time.Time or a numeric unix-epoch value.
func (s *SQLSource) Next(ctx context.Context) (vm.Bar, bool, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return vm.Bar{}, false, errs.Wrap(err, "history: reading replay row")
		}
		return vm.Bar{}, false, nil
	}

	cols, err := s.rows.Columns()
	if err != nil {
		return vm.Bar{}, false, errs.Wrap(err, "history: reading column names")
	}
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return vm.Bar{}, false, errs.Wrap(err, "history: scanning replay row")
	}

	var bar vm.Bar
	for i, col := range cols {
		switch col {
		case "T", "t", "timestamp", "time":
			bar.Timestamp = toTimestamp(values[i])
			continue
		}
		f, ok := toFloat(values[i])
		if !ok {
			continue
		}
		switch col {
		case "O", "o", "open":
			bar.Open = f
		case "H", "h", "high":
			bar.High = f
		case "L", "l", "low":
			bar.Low = f
		case "C", "c", "close":
			bar.Close = f
		case "V", "v", "volume":
			bar.Volume = f
		}
	}
	return bar, true, nil
}

// Close releases the underlying rows and connection.
func (s *SQLSource) Close() error {
	if err := s.rows.Close(); err != nil {
		s.db.Close()
		return errs.Wrap(err, "history: closing rows")
	}
	return s.db.Close()
}

// toTimestamp reads a T column's driver value as either a native
// time.Time (postgres/mysql/sqlserver drivers typically return one for
// a timestamp column) or a numeric unix-epoch value (sqlite stores
// timestamps as integers/reals unless declared otherwise).
func toTimestamp(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	default:
		if f, ok := toFloat(v); ok {
			return time.Unix(int64(f), 0)
		}
	}
	return time.Time{}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case []byte:
		var f float64
		if _, err := fmt.Sscanf(string(n), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
