// Package repoql is a criteria-driven data-access layer.
//
// A Repository wraps one database table behind named, composable criteria:
// query-modification rules that are registered as standing entries, applied
// once, or derived from repository settings, then folded in a well-defined
// order onto a fresh query builder before execution. See pkg/criteria for
// the composition rules and pkg/query for the builder.
//
// A Repository instance is single-owner, single-writer: mutating criteria or
// settings while another goroutine executes queries is undefined behavior.
package repoql

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/repoql/internal/cache"
	"github.com/leapstack-labs/repoql/pkg/adapter"
	"github.com/leapstack-labs/repoql/pkg/criteria"
	"github.com/leapstack-labs/repoql/pkg/query"
)

// Repository exposes criteria-composed queries over one table.
type Repository struct {
	id       string
	table    string
	db       *sql.DB
	ad       adapter.Adapter
	engine   *criteria.Engine
	settings criteria.Settings
	scopes   map[string]query.ScopeFunc
	defaults []criteria.Entry

	defaultTTL time.Duration
	cache      *cache.Cache
	log        *slog.Logger
}

// Option configures a Repository at construction.
type Option func(*Repository)

// WithLogger sets the structured logger. Default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) { r.log = logger }
}

// WithDefaultCacheTTL sets the TTL applied to cache directives that carry
// none of their own. Default is criteria.DefaultCacheTTL.
func WithDefaultCacheTTL(ttl time.Duration) Option {
	return func(r *Repository) { r.defaultTTL = ttl }
}

// WithScope registers a named scope on every query builder the repository
// produces.
func WithScope(name string, fn query.ScopeFunc) Option {
	return func(r *Repository) { r.scopes[name] = fn }
}

// WithDefaultCriteria seeds the standing set at construction. Keyed entries
// upsert; unkeyed entries append positionally. Entries using reserved
// settings keys are rejected, since those belong to the settings sync.
func WithDefaultCriteria(entries ...criteria.Entry) Option {
	return func(r *Repository) {
		r.defaults = append(r.defaults, entries...)
	}
}

// New returns a repository over table, executing through db with the given
// adapter.
func New(db *sql.DB, ad adapter.Adapter, table string, opts ...Option) *Repository {
	r := &Repository{
		id:         uuid.New().String(),
		table:      table,
		db:         db,
		ad:         ad,
		scopes:     make(map[string]query.ScopeFunc),
		defaultTTL: criteria.DefaultCacheTTL,
		cache:      cache.New(),
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.engine = criteria.NewEngine(r, r.log)
	for _, e := range r.defaults {
		key := ""
		if e.Keyed {
			key = e.Key
		}
		if err := r.engine.PushStanding(e.Criterion, key); err != nil {
			r.log.Warn("default criterion rejected", "key", e.Key, "error", err)
		}
	}
	r.engine.SyncSettings(r.settings)

	r.log.Debug("repository created", "repo", r.id, "table", table)
	return r
}

// CacheTTL implements criteria.Context: the default TTL for cache directives
// without one of their own.
func (r *Repository) CacheTTL() time.Duration {
	if r.settings.CacheTTL > 0 {
		return r.settings.CacheTTL
	}
	return r.defaultTTL
}

// Table returns the table the repository queries.
func (r *Repository) Table() string { return r.table }

// --- Criteria operations (pass-throughs to the composition engine) ---

// PushCriteria registers a standing criterion. An empty key appends
// positionally; a non-empty key upserts. Reserved settings keys are
// rejected.
func (r *Repository) PushCriteria(c criteria.Criterion, key string) error {
	return r.engine.PushStanding(c, key)
}

// RemoveCriteria deletes the keyed standing criterion.
func (r *Repository) RemoveCriteria(key string) {
	r.engine.RemoveStanding(key)
}

// PushCriteriaOnce registers a criterion consumed by exactly the next query.
func (r *Repository) PushCriteriaOnce(c criteria.Criterion, key string) {
	r.engine.PushOnce(c, key)
}

// RemoveCriteriaOnce suppresses the keyed standing criterion for the next
// query only.
func (r *Repository) RemoveCriteriaOnce(key string) {
	r.engine.RemoveOnce(key)
}

// SkipCriteria toggles criteria-ignoring mode: while on, queries run with no
// criteria applied at all.
func (r *Repository) SkipCriteria(skip bool) {
	r.engine.IgnoreAll(skip)
}

// Criteria returns a copy of the standing criteria set.
func (r *Repository) Criteria() *criteria.Set {
	return r.engine.Standing()
}

// CriteriaOnce returns a copy of the pending one-shot entries.
func (r *Repository) CriteriaOnce() []criteria.Entry {
	return r.engine.Once()
}

// AppliedCriteria returns a copy of the criteria list applied by the most
// recent query build.
func (r *Repository) AppliedCriteria() *criteria.Set {
	return r.engine.Applied()
}

// --- Settings (synced to reserved criteria keys after every mutation) ---

// EnableActiveFilter filters every query to rows where column is true.
func (r *Repository) EnableActiveFilter(column string) {
	r.settings.ActiveEnabled = true
	r.settings.ActiveColumn = column
	r.settings.IncludeInactive = false
	r.engine.SyncSettings(r.settings)
}

// DisableActiveFilter removes active-row filtering.
func (r *Repository) DisableActiveFilter() {
	r.settings.ActiveEnabled = false
	r.engine.SyncSettings(r.settings)
}

// IncludeInactive suppresses the active filter without flipping the
// repository-wide flag.
func (r *Repository) IncludeInactive(include bool) {
	r.settings.IncludeInactive = include
	r.engine.SyncSettings(r.settings)
}

// EnableCache attaches a cache directive to every query. A zero ttl uses
// the repository default.
func (r *Repository) EnableCache(ttl time.Duration) {
	r.settings.CacheEnabled = true
	r.settings.CacheTTL = ttl
	r.engine.SyncSettings(r.settings)
}

// DisableCache stops attaching cache directives. Already-cached results
// stay until they expire; use FlushCache to drop them now.
func (r *Repository) DisableCache() {
	r.settings.CacheEnabled = false
	r.engine.SyncSettings(r.settings)
}

// FlushCache drops all cached query results.
func (r *Repository) FlushCache() {
	r.cache.Purge()
}

// AddScope appends a named scope to the settings-driven scope list.
func (r *Repository) AddScope(name string, params map[string]any) {
	r.settings.Scopes = append(r.settings.Scopes, criteria.ScopePair{Name: name, Params: params})
	r.engine.SyncSettings(r.settings)
}

// ClearScopes removes all settings-driven scopes.
func (r *Repository) ClearScopes() {
	r.settings.Scopes = nil
	r.engine.SyncSettings(r.settings)
}

// RegisterScope makes a named scope available to criteria after
// construction. The engine is invalidated since the base builder changes
// shape.
func (r *Repository) RegisterScope(name string, fn query.ScopeFunc) {
	r.scopes[name] = fn
	r.engine.Invalidate()
}

// baseQuery is the criteria-free builder factory handed to the engine.
func (r *Repository) baseQuery() *query.Builder {
	b := query.New(r.table).WithPlaceholder(r.ad.Placeholder())
	for name, fn := range r.scopes {
		b.RegisterScope(name, fn)
	}
	return b
}

// Query materializes the current criteria state into a builder. Most
// callers want the terminal operations in executor.go instead; this is the
// escape hatch for callers composing their own SQL.
func (r *Repository) Query() (*query.Builder, error) {
	return r.engine.Materialize(r.baseQuery)
}
