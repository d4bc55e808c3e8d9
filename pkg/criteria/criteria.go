// Package criteria implements composable, keyed query-modification rules and
// the engine that merges and applies them.
//
// A Criterion is a self-contained transformation of a query builder. Criteria
// are registered on an Engine either as standing entries (persist until
// removed or overridden) or as one-shot entries (consumed by exactly the next
// materialization). The engine computes the effective ordered list on demand,
// skips rebuilds when nothing changed, and supports suppressing a standing
// entry for a single call without deleting it.
package criteria

import (
	"time"

	"github.com/leapstack-labs/repoql/pkg/query"
)

// DefaultCacheTTL is the hard fallback applied when neither the cache
// criterion nor the owning repository configures a TTL.
const DefaultCacheTTL = 15 * time.Minute

// Context is the owning repository as seen by a criterion during Apply.
// It may be nil when criteria are applied outside a repository.
type Context interface {
	// CacheTTL returns the repository's default cache TTL. Zero means the
	// repository has no opinion and the package fallback applies.
	CacheTTL() time.Duration
}

// Criterion transforms a query builder. Implementations must be pure
// functions of their construction parameters and the builder they receive:
// no I/O, no mutation of anything but the builder. Criteria should be
// plain comparable values so the engine can detect unchanged standing sets;
// a criterion that cannot be compared structurally simply forfeits the
// rebuild-skipping optimization.
type Criterion interface {
	Apply(b *query.Builder, ctx Context) error
}

// Where filters on a single column predicate.
type Where struct {
	Column string
	Op     query.Op
	Value  any
}

// WhereEq returns an equality Where criterion.
func WhereEq(column string, value any) Where {
	return Where{Column: column, Op: query.OpEq, Value: value}
}

func (w Where) Apply(b *query.Builder, _ Context) error {
	op := w.Op
	if op == "" {
		op = query.OpEq
	}
	b.Where(w.Column, op, w.Value)
	return nil
}

// Active filters rows whose flag column is true.
type Active struct {
	Column string
}

func (a Active) Apply(b *query.Builder, _ Context) error {
	b.WhereEq(a.Column, true)
	return nil
}

// ScopePair names a scope and carries its parameter bag.
type ScopePair struct {
	Name   string
	Params map[string]any
}

// Scope applies a list of named scopes to the builder, in order. Applying a
// scope the builder does not know fails with *query.UnknownScopeError.
type Scope struct {
	Pairs []ScopePair
}

func (s Scope) Apply(b *query.Builder, _ Context) error {
	for _, p := range s.Pairs {
		if err := b.ApplyScope(p.Name, p.Params); err != nil {
			return err
		}
	}
	return nil
}

// Cache attaches a cache directive to the builder. A zero TTL resolves to
// the context's default, then to DefaultCacheTTL.
type Cache struct {
	TTL time.Duration
}

func (c Cache) Apply(b *query.Builder, ctx Context) error {
	ttl := c.TTL
	if ttl <= 0 && ctx != nil {
		ttl = ctx.CacheTTL()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	b.CacheFor(ttl)
	return nil
}

// Limit caps the number of rows the query returns.
type Limit struct {
	N int
}

func (l Limit) Apply(b *query.Builder, _ Context) error {
	b.Take(l.N)
	return nil
}

// Func adapts a plain function to the Criterion interface. Func criteria
// never compare equal to a rebuilt copy, so standing Func entries always
// trigger a re-materialization; prefer the value criteria above for standing
// use.
type Func func(b *query.Builder, ctx Context) error

func (f Func) Apply(b *query.Builder, ctx Context) error {
	return f(b, ctx)
}
