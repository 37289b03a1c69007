// Package content defines the minimal table-level CRUD contract the admin
// HTTP surface uses for banners, offers, daily-needs items, and similar
// managed content tables: select/insert/update/delete over (table,
// filter_map), with no joins and no table-specific domain model.
// Grounded on services/product/internal/repository/repository.go's
// interface-then-adapter shape, generalized from one interface per domain
// type to one interface parameterized by table name (spec §4.8).
package content

import (
	"context"
)

// Row is one record, keyed by column name. Values are whatever the
// underlying store's driver can scan/marshal — callers own the mapping to
// and from their own structs.
type Row map[string]any

// Store is the table-level CRUD contract every Content-backed service
// (authsvc, the admin HTTP handlers) is built against. Every operation is
// single-row or filtered-set; there are no joins. Implementations surface
// failures as pkg/errors.ContentStore errors.
type Store interface {
	// Select returns every row in table matching filter (an empty filter
	// matches every row).
	Select(ctx context.Context, table string, filter Row) ([]Row, error)

	// Insert writes a new row into table and returns it back, reflecting
	// any server-assigned defaults (e.g. a generated id or timestamp).
	Insert(ctx context.Context, table string, row Row) (Row, error)

	// Update applies newValues to every row in table matching match, and
	// returns the number of rows affected.
	Update(ctx context.Context, table string, match, newValues Row) (int64, error)

	// Delete removes every row in table matching match, and returns the
	// number of rows affected.
	Delete(ctx context.Context, table string, match Row) (int64, error)
}
