// Package storetest provides an in-memory store.Store for stage tests.
package storetest

import (
	"context"

	"github.com/venturedesk/sourcing-cli/internal/store"
)

// Fake is an in-memory Store backed by per-table row slices. It records
// every write so tests can assert on exact payloads.
type Fake struct {
	Tables  map[string][]store.Row
	Upserts map[string][]store.Row
	Keys    map[string][]string
	Inserts map[string][]store.Row
	Deletes map[string][]string
}

func New() *Fake {
	return &Fake{
		Tables:  make(map[string][]store.Row),
		Upserts: make(map[string][]store.Row),
		Keys:    make(map[string][]string),
		Inserts: make(map[string][]store.Row),
		Deletes: make(map[string][]string),
	}
}

func (f *Fake) FetchIn(_ context.Context, table, keyCol string, keys []string, _ []string) ([]store.Row, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var out []store.Row
	for _, r := range f.Tables[table] {
		if v, ok := r[keyCol].(string); ok && want[v] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) FetchWhereAnyNotNull(_ context.Context, table string, _, notNullCols []string) ([]store.Row, error) {
	var out []store.Row
	for _, r := range f.Tables[table] {
		for _, c := range notNullCols {
			if r[c] != nil {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (f *Fake) Upsert(_ context.Context, table string, conflictCols []string, rows []store.Row) error {
	f.Upserts[table] = append(f.Upserts[table], rows...)
	f.Keys[table] = conflictCols
	return nil
}

func (f *Fake) Insert(_ context.Context, table string, rows []store.Row) error {
	f.Inserts[table] = append(f.Inserts[table], rows...)
	return nil
}

func (f *Fake) DeleteIn(_ context.Context, table, _ string, keys []string) error {
	f.Deletes[table] = append(f.Deletes[table], keys...)
	return nil
}
