package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/venturedesk/sourcing-cli/internal/resilience"
)

const defaultPageSize = 1000

// Querier is the subset of pgxpool.Pool the store uses. pgxmock
// satisfies it, which keeps the store testable without a database.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres implements Store on top of a pgx connection pool.
type Postgres struct {
	pool     Querier
	pageSize int
	retry    resilience.RetryConfig
}

// NewPostgres wraps pool as a Store. pageSize bounds both fetch key
// batches and upsert row batches; zero means the default of 1000.
func NewPostgres(pool Querier, pageSize int) *Postgres {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Postgres{
		pool:     pool,
		pageSize: pageSize,
		retry:    resilience.DefaultRetryConfig(),
	}
}

// WithRetryConfig overrides the retry policy. Tests use it to avoid
// real backoff sleeps.
func (p *Postgres) WithRetryConfig(cfg resilience.RetryConfig) *Postgres {
	p.retry = cfg
	return p
}

// FetchIn implements Store.
func (p *Postgres) FetchIn(ctx context.Context, table, keyCol string, keys []string, columns []string) ([]Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ANY($1)",
		projection(columns),
		sanitizeTable(table),
		pgx.Identifier{keyCol}.Sanitize(),
	)

	var out []Row
	for _, page := range chunk(keys, p.pageSize) {
		rows, err := p.queryRows(ctx, sql, page)
		if err != nil {
			return nil, eris.Wrapf(err, "store: fetch %s by %s", table, keyCol)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// FetchWhereAnyNotNull implements Store.
func (p *Postgres) FetchWhereAnyNotNull(ctx context.Context, table string, columns, notNullCols []string) ([]Row, error) {
	if len(notNullCols) == 0 {
		return nil, eris.New("store: fetch-not-null: no filter columns")
	}

	conds := make([]string, len(notNullCols))
	for i, c := range notNullCols {
		conds[i] = fmt.Sprintf("%s IS NOT NULL", pgx.Identifier{c}.Sanitize())
	}
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s",
		projection(columns),
		sanitizeTable(table),
		strings.Join(conds, " OR "),
	)

	rows, err := p.queryRows(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "store: fetch %s where not null", table)
	}
	return rows, nil
}

// Upsert implements Store. Rows are sorted by the conflict key before
// chunking so concurrent batches take row locks in the same order, and
// each chunk is retried on deadlock.
func (p *Postgres) Upsert(ctx context.Context, table string, conflictCols []string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if len(conflictCols) == 0 {
		return eris.New("store: upsert: no conflict columns")
	}

	cols := columnUnion(rows)
	sorted := sortByConflictKey(rows, conflictCols)

	conflictSet := make(map[string]bool, len(conflictCols))
	for _, c := range conflictCols {
		conflictSet[c] = true
	}
	var setClauses []string
	for _, c := range cols {
		if conflictSet[c] {
			continue
		}
		ident := pgx.Identifier{c}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", ident, ident))
	}
	if len(setClauses) == 0 {
		return eris.Errorf("store: upsert %s: payload has no non-key columns", table)
	}

	for _, page := range chunk(sorted, p.pageSize) {
		sql, args := buildInsert(table, cols, page)
		sql += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", quoteAndJoin(conflictCols), strings.Join(setClauses, ", "))

		err := resilience.Do(ctx, p.retryConfig("upsert "+table), func(ctx context.Context) error {
			_, execErr := p.pool.Exec(ctx, sql, args...)
			return execErr
		})
		if err != nil {
			return eris.Wrapf(err, "store: upsert %s", table)
		}
	}
	return nil
}

// Insert implements Store.
func (p *Postgres) Insert(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	cols := columnUnion(rows)
	for _, page := range chunk(rows, p.pageSize) {
		sql, args := buildInsert(table, cols, page)
		err := resilience.Do(ctx, p.retryConfig("insert "+table), func(ctx context.Context) error {
			_, execErr := p.pool.Exec(ctx, sql, args...)
			return execErr
		})
		if err != nil {
			return eris.Wrapf(err, "store: insert %s", table)
		}
	}
	return nil
}

// DeleteIn implements Store.
func (p *Postgres) DeleteIn(ctx context.Context, table, keyCol string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	sql := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = ANY($1)",
		sanitizeTable(table),
		pgx.Identifier{keyCol}.Sanitize(),
	)
	for _, page := range chunk(keys, p.pageSize) {
		err := resilience.Do(ctx, p.retryConfig("delete "+table), func(ctx context.Context) error {
			_, execErr := p.pool.Exec(ctx, sql, page)
			return execErr
		})
		if err != nil {
			return eris.Wrapf(err, "store: delete %s by %s", table, keyCol)
		}
	}
	return nil
}

func (p *Postgres) retryConfig(operation string) resilience.RetryConfig {
	cfg := p.retry
	cfg.OnRetry = resilience.RetryLogger("postgres", operation)
	return cfg
}

func (p *Postgres) queryRows(ctx context.Context, sql string, args ...any) ([]Row, error) {
	return resilience.DoVal(ctx, p.retryConfig("query"), func(ctx context.Context) ([]Row, error) {
		rows, err := p.pool.Query(ctx, sql, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		fields := rows.FieldDescriptions()
		var out []Row
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return nil, err
			}
			row := make(Row, len(fields))
			for i, fd := range fields {
				row[fd.Name] = values[i]
			}
			out = append(out, row)
		}
		return out, rows.Err()
	})
}

// buildInsert renders a multi-row INSERT for cols over page, returning
// the SQL and flattened positional args.
func buildInsert(table string, cols []string, page []Row) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(page)*len(cols))

	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", sanitizeTable(table), quoteAndJoin(cols))
	for i, row := range page {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, c := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", len(args)+1)
			args = append(args, stripNullBytes(row[c]))
		}
		sb.WriteString(")")
	}
	return sb.String(), args
}

// sanitizeTable handles schema-qualified names like "refdata.global_2000".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func projection(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	return quoteAndJoin(columns)
}
