// Package db loads a dataset from a SQL table or query through sqlx.
// DSNs starting with postgres:// or postgresql:// use lib/pq; anything else is
// treated as a SQLite file path, optionally prefixed with sqlite://.
package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	dsio "github.com/hed1ad/anomalyconsensus/pkg/io"
)

// DefaultTable is queried when neither a table nor a query is configured.
const DefaultTable = "transactions"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Reader reads every row of one table or query.
type Reader struct {
	dsn    string
	driver string
	table  string
	query  string
	db     *sqlx.DB
}

// Option configures a Reader.
type Option func(*Reader)

// WithTable selects the table to read.
func WithTable(name string) Option {
	return func(r *Reader) {
		r.table = name
	}
}

// WithQuery replaces the table scan with a custom SELECT.
func WithQuery(q string) Option {
	return func(r *Reader) {
		r.query = q
	}
}

// Driver returns the database/sql driver name and connection string for dsn.
func Driver(dsn string) (driver, conn string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://")
	default:
		return "sqlite", dsn
	}
}

// NewReader opens the database behind dsn.
func NewReader(dsn string, opts ...Option) (*Reader, error) {
	r := &Reader{dsn: dsn, table: DefaultTable}
	for _, opt := range opts {
		opt(r)
	}

	if r.query == "" && !identifier.MatchString(r.table) {
		return nil, fmt.Errorf("invalid table name %q", r.table)
	}

	driver, conn := Driver(dsn)
	db, err := sqlx.Open(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	r.driver = driver
	r.db = db
	return r, nil
}

// Source names the table or query and the database, without credentials.
func (r *Reader) Source() string {
	what := "query"
	if r.query == "" {
		what = "table " + r.table
	}
	return fmt.Sprintf("%s (%s %s)", what, r.driver, redact(r.dsn))
}

func (r *Reader) statement() string {
	if r.query != "" {
		return r.query
	}
	parts := strings.Split(r.table, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return "SELECT * FROM " + strings.Join(parts, ".")
}

// Load runs the statement and maps every result column to a dataset column.
// Text and byte values that parse as numbers become float64.
func (r *Reader) Load(ctx context.Context) (*dataset.Dataset, error) {
	if r.db == nil {
		return nil, errors.New("reader is closed")
	}
	if err := r.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, r.statement())
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []dataset.Row
	for rows.Next() {
		raw := make(map[string]any, len(columns))
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(out), err)
		}
		row := make(dataset.Row, len(columns))
		for _, c := range columns {
			row[c] = cell(raw[c])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return dataset.New(columns, out)
}

// Close releases the connection pool.
func (r *Reader) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func cell(v any) any {
	switch x := v.(type) {
	case []byte:
		return dsio.ParseCell(string(x))
	case string:
		return dsio.ParseCell(x)
	default:
		return x
	}
}

// redact hides the password of a URL-style DSN.
func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
