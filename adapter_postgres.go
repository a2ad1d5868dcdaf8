package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultPostgresPort = 5432

type postgresDialect struct{}

func connectPostgres(ctx context.Context, u *url.URL) (DBHandle, error) {
	db, err := sql.Open("pgx", u.String())
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := defaultPostgresPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("invalid port %q: %w", p, err)
		}
	}

	database := trimLeadingSlash(u.Path)
	if database == "" {
		database = u.User.Username()
	}

	return &sqlHandle{
		db:       db,
		dialect:  postgresDialect{},
		host:     host,
		port:     uint16(port),
		database: database,
	}, nil
}

func (postgresDialect) Name() string        { return "postgres" }
func (postgresDialect) DefaultPort() uint16 { return defaultPostgresPort }

func (postgresDialect) DatabasesQuery() (string, bool) {
	return `SELECT datname FROM pg_database WHERE NOT datistemplate ORDER BY datname`, true
}

func (postgresDialect) SchemasQuery() (string, bool) {
	return `SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT LIKE 'pg\_%' AND schema_name <> 'information_schema'
		ORDER BY schema_name`, true
}

func (postgresDialect) TablesQuery(schema string) (string, []any) {
	if schema == "" {
		return `SELECT table_name FROM information_schema.tables
			WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
			ORDER BY table_name`, nil
	}
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 ORDER BY table_name`, []any{schema}
}

func (postgresDialect) FunctionsQuery(schema string) (string, []any, bool) {
	if schema == "" {
		return `SELECT DISTINCT routine_name FROM information_schema.routines
			WHERE routine_schema NOT IN ('pg_catalog', 'information_schema')
			ORDER BY routine_name`, nil, true
	}
	return `SELECT DISTINCT routine_name FROM information_schema.routines
		WHERE routine_schema = $1 ORDER BY routine_name`, []any{schema}, true
}

func (postgresDialect) ColumnsQuery(table, schema string) (string, []any) {
	if schema == "" {
		return `SELECT column_name FROM information_schema.columns
			WHERE table_name = $1 ORDER BY ordinal_position`, []any{table}
	}
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, []any{schema, table}
}

func (postgresDialect) CountTablesQuery() string {
	return `SELECT count(*) FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')`
}

func trimLeadingSlash(p string) string {
	if len(p) > 0 && p[0] == '/' {
		return p[1:]
	}
	return p
}
