// Package store is the batch access layer over the relational store.
// Every stage talks to tables through the same four keyed operations,
// chunked at a bounded page size and retried on transient failures.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Row is one table row keyed by column name. Stages build upsert
// payloads containing only the columns they computed, so concurrent
// partial upserts to the same logical row compose per-field.
type Row map[string]any

// Store defines the keyed batch operations the pipeline stages need.
type Store interface {
	// FetchIn returns the rows of table whose keyCol is in keys,
	// projected to columns (nil means all columns).
	FetchIn(ctx context.Context, table, keyCol string, keys []string, columns []string) ([]Row, error)

	// FetchWhereAnyNotNull returns the rows of table where at least one
	// of notNullCols is non-null, projected to columns.
	FetchWhereAnyNotNull(ctx context.Context, table string, columns, notNullCols []string) ([]Row, error)

	// Upsert writes rows keyed on conflictCols, updating only the
	// columns present in the payload. All rows in one call must carry
	// the same column set; missing columns are written as NULL.
	Upsert(ctx context.Context, table string, conflictCols []string, rows []Row) error

	// Insert appends rows without conflict handling.
	Insert(ctx context.Context, table string, rows []Row) error

	// DeleteIn removes the rows of table whose keyCol is in keys.
	DeleteIn(ctx context.Context, table, keyCol string, keys []string) error
}

// columnUnion returns the sorted union of column names across rows.
// Sorting keeps generated SQL deterministic, which matters for tests
// and for comparing statements across retries.
func columnUnion(rows []Row) []string {
	set := make(map[string]struct{})
	for _, r := range rows {
		for c := range r {
			set[c] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// sortByConflictKey orders rows by their conflict key values so that
// concurrently running batches acquire row locks in a consistent order.
func sortByConflictKey(rows []Row, conflictCols []string) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return conflictKeyOf(sorted[i], conflictCols) < conflictKeyOf(sorted[j], conflictCols)
	})
	return sorted
}

func conflictKeyOf(r Row, conflictCols []string) string {
	parts := make([]string, len(conflictCols))
	for i, c := range conflictCols {
		if v, ok := r[c]; ok && v != nil {
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	return strings.Join(parts, "\x1f")
}

// stripNullBytes removes NUL bytes from string values, which Postgres
// rejects inside text columns.
func stripNullBytes(v any) any {
	switch s := v.(type) {
	case string:
		return strings.ReplaceAll(s, "\x00", "")
	case []string:
		out := make([]string, len(s))
		for i, e := range s {
			out[i] = strings.ReplaceAll(e, "\x00", "")
		}
		return out
	default:
		return v
	}
}

// chunk splits items into slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = defaultPageSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
