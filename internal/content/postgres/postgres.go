// Package postgres implements content.Store against PostgreSQL via pgx,
// translating the generic (table, filter_map) contract into parameterized
// SQL. Grounded on
// services/product/internal/repository/postgres/product.go's query-builder
// style (ordered conditions, positional placeholders) and
// pkg/database/postgres.go for the pool.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/avishek-m/pricecompare/internal/content"
	"github.com/avishek-m/pricecompare/pkg/database"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

// allowedTables whitelists every table the admin CRUD surface may address
// (spec §6), so a caller can never pass an arbitrary Go string straight
// into a SQL identifier position.
var allowedTables = map[string]bool{
	"offers":            true,
	"slideshow":         true,
	"daily_needs":       true,
	"trending_products": true,
	"daily_needs_items": true,
	"users":             true,
	"admin_sessions":    true,
	"otp_codes":         true,
	"bgimage":           true,
}

// Store is a PostgreSQL-backed content.Store.
type Store struct {
	pool database.DBTX
}

func New(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

func checkTable(table string) error {
	if !allowedTables[table] {
		return apperrors.ContentStore("access", table, fmt.Errorf("unknown table %q", table))
	}
	return nil
}

// sortedKeys returns a filter/row's keys in a stable order so generated SQL
// (and its argument list) is deterministic and easy to reason about.
func sortedKeys(m content.Row) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Select(ctx context.Context, table string, filter content.Row) ([]content.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + table
	var args []any
	if keys := sortedKeys(filter); len(keys) > 0 {
		conditions := make([]string, 0, len(keys))
		for i, k := range keys {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", k, i+1))
			args = append(args, filter[k])
		}
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.ContentStore("select", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []content.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, apperrors.ContentStore("select", table, err)
		}
		row := make(content.Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ContentStore("select", table, err)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, table string, row content.Row) (content.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	keys := sortedKeys(row)
	columns := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		columns[i] = k
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[k]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	pgxRows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.ContentStore("insert", table, err)
	}
	defer pgxRows.Close()

	fields := pgxRows.FieldDescriptions()
	if !pgxRows.Next() {
		return nil, apperrors.ContentStore("insert", table, fmt.Errorf("no row returned"))
	}
	values, err := pgxRows.Values()
	if err != nil {
		return nil, apperrors.ContentStore("insert", table, err)
	}
	out := make(content.Row, len(fields))
	for i, f := range fields {
		out[string(f.Name)] = values[i]
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, table string, match, newValues content.Row) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	if len(newValues) == 0 {
		return 0, apperrors.ContentStore("update", table, fmt.Errorf("no values to update"))
	}

	setKeys := sortedKeys(newValues)
	sets := make([]string, len(setKeys))
	var args []any
	argIndex := 1
	for i, k := range setKeys {
		sets[i] = fmt.Sprintf("%s = $%d", k, argIndex)
		args = append(args, newValues[k])
		argIndex++
	}

	query := "UPDATE " + table + " SET " + strings.Join(sets, ", ")
	if matchKeys := sortedKeys(match); len(matchKeys) > 0 {
		conditions := make([]string, len(matchKeys))
		for i, k := range matchKeys {
			conditions[i] = fmt.Sprintf("%s = $%d", k, argIndex)
			args = append(args, match[k])
			argIndex++
		}
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, apperrors.ContentStore("update", table, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Delete(ctx context.Context, table string, match content.Row) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	query := "DELETE FROM " + table
	var args []any
	if keys := sortedKeys(match); len(keys) > 0 {
		conditions := make([]string, len(keys))
		for i, k := range keys {
			conditions[i] = fmt.Sprintf("%s = $%d", k, i+1)
			args = append(args, match[k])
		}
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, apperrors.ContentStore("delete", table, err)
	}
	return tag.RowsAffected(), nil
}
