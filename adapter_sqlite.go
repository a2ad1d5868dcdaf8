package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteDialect struct{}

func connectSQLite(ctx context.Context, u *url.URL) (DBHandle, error) {
	// sqlite:///path/to/db and sqlite://relative/path are both accepted.
	path := u.Path
	if u.Host != "" {
		path = u.Host + path
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite URL must name a database file")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	return &sqlHandle{
		db:       db,
		dialect:  sqliteDialect{},
		host:     "localhost",
		port:     0,
		database: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}, nil
}

func (sqliteDialect) Name() string        { return "sqlite" }
func (sqliteDialect) DefaultPort() uint16 { return 0 }

// SQLite is file-based: no server, no databases to switch between.
func (sqliteDialect) DatabasesQuery() (string, bool) { return "", false }

// No schemas either; the handle reports the implicit "main" schema.
func (sqliteDialect) SchemasQuery() (string, bool) { return "", false }

func (sqliteDialect) TablesQuery(schema string) (string, []any) {
	// The single main schema holds everything; the schema filter is moot.
	return `SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`, nil
}

func (sqliteDialect) FunctionsQuery(schema string) (string, []any, bool) {
	// SQLite exposes no catalog of functions.
	return "", nil, false
}

func (sqliteDialect) ColumnsQuery(table, schema string) (string, []any) {
	// PRAGMA table_info does not take placeholders; quote the table name.
	quoted := strings.ReplaceAll(table, "'", "''")
	return fmt.Sprintf(`SELECT name FROM pragma_table_info('%s') ORDER BY cid`, quoted), nil
}

func (sqliteDialect) CountTablesQuery() string {
	return `SELECT count(*) FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'`
}
