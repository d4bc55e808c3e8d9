package repoql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/repoql/internal/cache"
	"github.com/leapstack-labs/repoql/pkg/criteria"
	"github.com/leapstack-labs/repoql/pkg/query"
)

// Row is one result row, keyed by column name. []byte values are converted
// to string for readability.
type Row map[string]any

// ErrNotFound is returned by First when the query matches no rows.
var ErrNotFound = errors.New("repoql: no rows found")

// Page is one page of results.
type Page struct {
	Items      []Row
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// All materializes the current criteria state and returns every matching
// row.
func (r *Repository) All(ctx context.Context) ([]Row, error) {
	b, err := r.Query()
	if err != nil {
		return nil, err
	}
	return r.queryRows(ctx, b)
}

// First returns the first matching row, or ErrNotFound.
func (r *Repository) First(ctx context.Context) (Row, error) {
	b, err := r.Query()
	if err != nil {
		return nil, err
	}
	rows, err := r.queryRows(ctx, b.Clone().Take(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// FindByField returns all rows where field equals value, applied on top of
// the current criteria for this call only.
func (r *Repository) FindByField(ctx context.Context, field string, value any) ([]Row, error) {
	r.engine.PushOnce(criteria.WhereEq(field, value), "")
	return r.All(ctx)
}

// Count returns the number of matching rows, ignoring limit and ordering.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	b, err := r.Query()
	if err != nil {
		return 0, err
	}
	return r.queryCount(ctx, b)
}

// Paginate returns page (1-based) with perPage items plus the total match
// count. Criteria are materialized once and shared by the page and count
// queries.
func (r *Repository) Paginate(ctx context.Context, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return nil, fmt.Errorf("repoql: perPage must be positive, got %d", perPage)
	}

	b, err := r.Query()
	if err != nil {
		return nil, err
	}

	total, err := r.queryCount(ctx, b)
	if err != nil {
		return nil, err
	}

	items, err := r.queryRows(ctx, b.Clone().Take(perPage).Skip((page-1)*perPage))
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / perPage
	if int(total)%perPage != 0 {
		totalPages++
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// queryRows renders and executes b, honoring any attached cache directive
// read-through.
func (r *Repository) queryRows(ctx context.Context, b *query.Builder) ([]Row, error) {
	stmt, args, err := b.SQL()
	if err != nil {
		return nil, err
	}

	directive := b.Cache()
	var key string
	if directive != nil {
		key = cache.Key("rows", stmt, args)
		if v, ok := r.cache.Get(key); ok {
			r.log.Debug("cache hit", "repo", r.id, "key", key)
			return v.([]Row), nil
		}
	}

	r.log.Debug("query", "repo", r.id, "sql", stmt, "args", len(args))
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	if directive != nil {
		r.cache.Set(key, out, r.resolveTTL(directive.TTL))
	}
	return out, nil
}

// queryCount renders and executes the COUNT(*) variant of b.
func (r *Repository) queryCount(ctx context.Context, b *query.Builder) (int64, error) {
	stmt, args, err := b.CountSQL()
	if err != nil {
		return 0, err
	}

	directive := b.Cache()
	var key string
	if directive != nil {
		key = cache.Key("count", stmt, args)
		if v, ok := r.cache.Get(key); ok {
			r.log.Debug("cache hit", "repo", r.id, "key", key)
			return v.(int64), nil
		}
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("execute count: %w", err)
	}

	if directive != nil {
		r.cache.Set(key, count, r.resolveTTL(directive.TTL))
	}
	return count, nil
}

// resolveTTL maps a directive's zero TTL to the repository default.
func (r *Repository) resolveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return r.CacheTTL()
	}
	return ttl
}

// scanRows converts sql.Rows into []Row generically, without a schema.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		out = append(out, row)
	}

	return out, rows.Err()
}
