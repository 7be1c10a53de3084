// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store provides the relational query client used by the data tools
// and the data-entry API. Queries are composed with Eq/In/Gte/Order/Limit style
// predicates and always return a (data, error) pair.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" database/sql driver
	"go.uber.org/zap"
)

// Dialect identifies the SQL flavour of the underlying database
type Dialect string

const (
	// DialectSQLite is the embedded SQLite dialect
	DialectSQLite Dialect = "sqlite3"
	// DialectPostgres is Postgres through the pgx stdlib driver
	DialectPostgres Dialect = "pgx"
)

// DateLayout is the storage format for DATE columns
const DateLayout = "2006-01-02"

// DB handles queries against the hatchery database
type DB struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// ParseDialect maps a configured driver name to a Dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Open opens a database connection for the given driver and DSN
func Open(driver, dsn string, logger *zap.Logger) (*DB, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every new connection to an in-memory sqlite database is a fresh database
	if dialect == DialectSQLite && isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	}

	return New(db, dialect, logger), nil
}

// OpenMemory opens an in-memory SQLite database with the schema applied
func OpenMemory(ctx context.Context, logger *zap.Logger) (*DB, error) {
	db, err := Open(string(DialectSQLite), ":memory:", logger)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// New wraps an existing *sql.DB
func New(db *sql.DB, dialect Dialect, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{db: db, dialect: dialect, logger: logger}
}

// Dialect returns the SQL dialect in use
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Ping verifies the connection is alive
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// From starts a query against the named table
func (d *DB) From(table string) *Query {
	q := &Query{db: d, table: table}
	if !validIdentifier(table) {
		q.err = fmt.Errorf("invalid table name: %q", table)
	}
	return q
}

// Date formats t for a DATE column
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
