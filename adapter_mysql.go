package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

const defaultMySQLPort = 3306

type mysqlDialect struct{}

func connectMySQL(ctx context.Context, u *url.URL) (DBHandle, error) {
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := defaultMySQLPort
	if p := u.Port(); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", p, err)
		}
	}
	database := trimLeadingSlash(u.Path)

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = database
	cfg.User = u.User.Username()
	if pw, ok := u.User.Password(); ok {
		cfg.Passwd = pw
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	return &sqlHandle{
		db:       db,
		dialect:  mysqlDialect{},
		host:     host,
		port:     uint16(port),
		database: database,
	}, nil
}

func (mysqlDialect) Name() string        { return "mysql" }
func (mysqlDialect) DefaultPort() uint16 { return defaultMySQLPort }

func (mysqlDialect) DatabasesQuery() (string, bool) {
	return `SELECT schema_name FROM information_schema.schemata ORDER BY schema_name`, true
}

func (mysqlDialect) SchemasQuery() (string, bool) {
	// MySQL treats schemas and databases as the same namespace.
	return `SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('mysql', 'sys', 'performance_schema', 'information_schema')
		ORDER BY schema_name`, true
}

func (mysqlDialect) TablesQuery(schema string) (string, []any) {
	if schema == "" {
		return `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() ORDER BY table_name`, nil
	}
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? ORDER BY table_name`, []any{schema}
}

func (mysqlDialect) FunctionsQuery(schema string) (string, []any, bool) {
	if schema == "" {
		return `SELECT DISTINCT routine_name FROM information_schema.routines
			WHERE routine_schema = DATABASE() ORDER BY routine_name`, nil, true
	}
	return `SELECT DISTINCT routine_name FROM information_schema.routines
		WHERE routine_schema = ? ORDER BY routine_name`, []any{schema}, true
}

func (mysqlDialect) ColumnsQuery(table, schema string) (string, []any) {
	if schema == "" {
		return `SELECT column_name FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`, []any{table}
	}
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, []any{schema, table}
}

func (mysqlDialect) CountTablesQuery() string {
	return `SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE()`
}
