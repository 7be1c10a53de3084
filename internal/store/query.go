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

package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrUnconditionalWrite is returned when an update or delete has no predicates
var ErrUnconditionalWrite = errors.New("update and delete require at least one condition")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

type condition struct {
	column string
	op     string
	value  interface{}
	values []interface{}
}

type ordering struct {
	column    string
	ascending bool
}

// Query is a composable statement against a single table
type Query struct {
	db      *DB
	table   string
	columns []string
	conds   []condition
	orders  []ordering
	limit   int
	err     error
}

// Values converts a typed slice for use with In
func Values[T any](xs []T) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// Select restricts the returned columns; no call selects all columns
func (q *Query) Select(columns ...string) *Query {
	for _, c := range columns {
		q.checkColumn(c)
	}
	q.columns = append(q.columns, columns...)
	return q
}

// Eq adds column = value
func (q *Query) Eq(column string, value interface{}) *Query {
	return q.where(column, "=", value)
}

// Neq adds column <> value
func (q *Query) Neq(column string, value interface{}) *Query {
	return q.where(column, "<>", value)
}

// Gt adds column > value
func (q *Query) Gt(column string, value interface{}) *Query {
	return q.where(column, ">", value)
}

// Gte adds column >= value
func (q *Query) Gte(column string, value interface{}) *Query {
	return q.where(column, ">=", value)
}

// Lt adds column < value
func (q *Query) Lt(column string, value interface{}) *Query {
	return q.where(column, "<", value)
}

// Lte adds column <= value
func (q *Query) Lte(column string, value interface{}) *Query {
	return q.where(column, "<=", value)
}

// Like adds a case-insensitive pattern match
func (q *Query) Like(column, pattern string) *Query {
	op := "LIKE"
	if q.db.dialect == DialectPostgres {
		op = "ILIKE"
	}
	return q.where(column, op, pattern)
}

// In adds column IN (values...). An empty list matches nothing.
func (q *Query) In(column string, values []interface{}) *Query {
	q.checkColumn(column)
	q.conds = append(q.conds, condition{column: column, op: "IN", values: values})
	return q
}

// Order appends an ORDER BY term
func (q *Query) Order(column string, ascending bool) *Query {
	q.checkColumn(column)
	q.orders = append(q.orders, ordering{column: column, ascending: ascending})
	return q
}

// Limit caps the number of returned rows; 0 means no limit
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) where(column, op string, value interface{}) *Query {
	q.checkColumn(column)
	q.conds = append(q.conds, condition{column: column, op: op, value: value})
	return q
}

func (q *Query) checkColumn(column string) {
	if q.err == nil && !validIdentifier(column) {
		q.err = fmt.Errorf("invalid column name: %q", column)
	}
}

// Rows executes the query and returns every matching row
func (q *Query) Rows(ctx context.Context) ([]Row, error) {
	if q.err != nil {
		return nil, q.err
	}

	cols := "*"
	if len(q.columns) > 0 {
		cols = strings.Join(q.columns, ", ")
	}

	var b builder
	b.dialect = q.db.dialect
	b.sql.WriteString("SELECT " + cols + " FROM " + q.table)
	b.writeWhere(q.conds)
	if len(q.orders) > 0 {
		terms := make([]string, len(q.orders))
		for i, o := range q.orders {
			dir := "DESC"
			if o.ascending {
				dir = "ASC"
			}
			terms[i] = o.column + " " + dir
		}
		b.sql.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if q.limit > 0 {
		b.sql.WriteString(fmt.Sprintf(" LIMIT %d", q.limit))
	}

	stmt := b.sql.String()
	q.db.logger.Debug("Executing select", zap.String("table", q.table), zap.String("sql", stmt))

	rows, err := q.db.db.QueryContext(ctx, stmt, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", q.table, err)
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", q.table, err)
		}
		row := make(Row, len(columns))
		for i, c := range columns {
			if raw, ok := values[i].([]byte); ok {
				row[c] = string(raw)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", q.table, err)
	}

	return out, nil
}

// First returns the first matching row, if any
func (q *Query) First(ctx context.Context) (Row, bool, error) {
	rows, err := q.Limit(1).Rows(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Count returns the number of matching rows
func (q *Query) Count(ctx context.Context) (int, error) {
	if q.err != nil {
		return 0, q.err
	}

	var b builder
	b.dialect = q.db.dialect
	b.sql.WriteString("SELECT COUNT(*) FROM " + q.table)
	b.writeWhere(q.conds)

	var n int
	if err := q.db.db.QueryRowContext(ctx, b.sql.String(), b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.table, err)
	}
	return n, nil
}

// Insert adds a row and returns its generated id
func (q *Query) Insert(ctx context.Context, values Row) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("insert into %s: no values", q.table)
	}

	keys := sortedKeys(values)
	var b builder
	b.dialect = q.db.dialect
	placeholders := make([]string, len(keys))
	for i, k := range keys {
		if !validIdentifier(k) {
			return 0, fmt.Errorf("invalid column name: %q", k)
		}
		placeholders[i] = b.bind(values[k])
	}
	b.sql.WriteString(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		q.table, strings.Join(keys, ", "), strings.Join(placeholders, ", ")))

	if q.db.dialect == DialectPostgres {
		b.sql.WriteString(" RETURNING id")
		var id int64
		if err := q.db.db.QueryRowContext(ctx, b.sql.String(), b.args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", q.table, err)
		}
		return id, nil
	}

	res, err := q.db.db.ExecContext(ctx, b.sql.String(), b.args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", q.table, err)
	}
	return res.LastInsertId()
}

// Update sets the given columns on every matching row
func (q *Query) Update(ctx context.Context, values Row) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(q.conds) == 0 {
		return 0, ErrUnconditionalWrite
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("update %s: no values", q.table)
	}

	var b builder
	b.dialect = q.db.dialect
	keys := sortedKeys(values)
	sets := make([]string, len(keys))
	for i, k := range keys {
		if !validIdentifier(k) {
			return 0, fmt.Errorf("invalid column name: %q", k)
		}
		sets[i] = k + " = " + b.bind(values[k])
	}
	b.sql.WriteString("UPDATE " + q.table + " SET " + strings.Join(sets, ", "))
	b.writeWhere(q.conds)

	return q.exec(ctx, &b, "update")
}

// Delete removes every matching row
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(q.conds) == 0 {
		return 0, ErrUnconditionalWrite
	}

	var b builder
	b.dialect = q.db.dialect
	b.sql.WriteString("DELETE FROM " + q.table)
	b.writeWhere(q.conds)

	return q.exec(ctx, &b, "delete from")
}

func (q *Query) exec(ctx context.Context, b *builder, verb string) (int64, error) {
	res, err := q.db.db.ExecContext(ctx, b.sql.String(), b.args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s %s: %w", verb, q.table, err)
	}
	return res.RowsAffected()
}

type builder struct {
	dialect Dialect
	sql     strings.Builder
	args    []interface{}
}

func (b *builder) bind(v interface{}) string {
	b.args = append(b.args, v)
	if b.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

func (b *builder) writeWhere(conds []condition) {
	if len(conds) == 0 {
		return
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		if c.op == "IN" {
			if len(c.values) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			ph := make([]string, len(c.values))
			for i, v := range c.values {
				ph[i] = b.bind(v)
			}
			parts = append(parts, c.column+" IN ("+strings.Join(ph, ", ")+")")
			continue
		}
		parts = append(parts, c.column+" "+c.op+" "+b.bind(c.value))
	}
	b.sql.WriteString(" WHERE " + strings.Join(parts, " AND "))
}

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
