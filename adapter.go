package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// DBHandle is the narrow query surface consumed by the completion engine and
// the meta commands. The handle is borrowed by its consumers: they must never
// close or reconfigure it.
type DBHandle interface {
	// Identity of the live connection. These are cheap, in-memory accessors.
	CurrentDatabase() string
	Host() string
	Port() uint16
	DefaultPort() uint16

	ListDatabases(ctx context.Context) ([]string, error)
	ListSchemas(ctx context.Context) ([]string, error)
	// ListTables enumerates tables and views. An empty schema means all
	// user-visible schemas.
	ListTables(ctx context.Context, schema string) ([]string, error)
	ListFunctions(ctx context.Context, schema string) ([]string, error)
	ListColumns(ctx context.Context, table, schema string) ([]string, error)
	// CountTables counts tables matching the same filter ListTables("") uses.
	CountTables(ctx context.Context) (int64, error)

	Query(ctx context.Context, query string) (*QueryResult, error)
	Close() error
}

// QueryResult is a fully materialized result set with all values rendered as
// strings, ready for table or expanded display.
type QueryResult struct {
	Columns []string
	Rows    [][]string
	// Affected is the row count reported by a non-SELECT statement.
	Affected int64
}

// dialect supplies the backend-specific SQL behind the DBHandle metadata
// surface. Statements that cannot be expressed for a backend return ok=false.
type dialect interface {
	Name() string
	DefaultPort() uint16
	DatabasesQuery() (string, bool)
	SchemasQuery() (string, bool)
	TablesQuery(schema string) (string, []any)
	FunctionsQuery(schema string) (string, []any, bool)
	ColumnsQuery(table, schema string) (string, []any)
	CountTablesQuery() string
}

// sqlHandle implements DBHandle over database/sql for every backend. All
// calls serialize on one coarse lock so metadata queries issued by the
// completion engine never interleave with interactive query execution.
type sqlHandle struct {
	mu       sync.Mutex
	db       *sql.DB
	dialect  dialect
	host     string
	port     uint16
	database string
}

var _ DBHandle = (*sqlHandle)(nil)

// Connect opens a handle for a connection URL. The scheme selects the
// backend: postgres://, mysql://, or sqlite://.
func Connect(ctx context.Context, rawURL string) (DBHandle, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid connection URL: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		return connectPostgres(ctx, u)
	case "mysql":
		return connectMySQL(ctx, u)
	case "sqlite", "sqlite3":
		return connectSQLite(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

func (h *sqlHandle) CurrentDatabase() string { return h.database }
func (h *sqlHandle) Host() string            { return h.host }
func (h *sqlHandle) Port() uint16            { return h.port }
func (h *sqlHandle) DefaultPort() uint16     { return h.dialect.DefaultPort() }

func (h *sqlHandle) ListDatabases(ctx context.Context) ([]string, error) {
	query, ok := h.dialect.DatabasesQuery()
	if !ok {
		return nil, nil
	}
	return h.queryStrings(ctx, query)
}

func (h *sqlHandle) ListSchemas(ctx context.Context) ([]string, error) {
	query, ok := h.dialect.SchemasQuery()
	if !ok {
		return []string{"main"}, nil
	}
	return h.queryStrings(ctx, query)
}

func (h *sqlHandle) ListTables(ctx context.Context, schema string) ([]string, error) {
	query, args := h.dialect.TablesQuery(schema)
	return h.queryStrings(ctx, query, args...)
}

func (h *sqlHandle) ListFunctions(ctx context.Context, schema string) ([]string, error) {
	query, args, ok := h.dialect.FunctionsQuery(schema)
	if !ok {
		return nil, nil
	}
	return h.queryStrings(ctx, query, args...)
}

func (h *sqlHandle) ListColumns(ctx context.Context, table, schema string) ([]string, error) {
	query, args := h.dialect.ColumnsQuery(table, schema)
	return h.queryStrings(ctx, query, args...)
}

func (h *sqlHandle) CountTables(ctx context.Context) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var n int64
	if err := h.db.QueryRowContext(ctx, h.dialect.CountTablesQuery()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tables: %w", err)
	}
	return n, nil
}

func (h *sqlHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.Close()
}

// queryStrings runs a single-column query and collects the values.
func (h *sqlHandle) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// returnsRows reports whether a statement produces a result set, deciding
// between QueryContext and ExecContext. DML with a RETURNING clause still
// produces rows.
func returnsRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return true
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "VALUES", "TABLE", "SHOW", "EXPLAIN", "DESCRIBE", "DESC", "PRAGMA":
		return true
	}
	for _, f := range fields[1:] {
		if strings.EqualFold(f, "RETURNING") {
			return true
		}
	}
	return false
}

// Query executes arbitrary SQL typed by the user and materializes the result.
// Statements that return no rows report their affected-row count instead.
func (h *sqlHandle) Query(ctx context.Context, query string) (*QueryResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !returnsRows(query) {
		res, err := h.db.ExecContext(ctx, query)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			// DDL on some drivers cannot report a count.
			affected = 0
		}
		return &QueryResult{Affected: affected}, nil
	}

	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rendered := make([]string, len(cols))
		for i, v := range raw {
			if v.Valid {
				rendered[i] = v.String
			} else {
				rendered[i] = "NULL"
			}
		}
		result.Rows = append(result.Rows, rendered)
	}
	return result, rows.Err()
}
