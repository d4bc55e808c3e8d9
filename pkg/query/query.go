// Package query provides the mutable SELECT builder that criteria transform.
//
// A Builder accumulates predicates, named-scope applications, limits, ordering,
// and an optional cache directive, then renders a parameterized SQL statement
// for whichever placeholder style the target driver expects. Builders are
// cheap value-like objects; repositories hand out a fresh one per
// materialization via a factory.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Placeholder selects the parameter marker style used when rendering SQL.
type Placeholder int

const (
	// PlaceholderQuestion renders "?" markers (SQLite, DuckDB).
	PlaceholderQuestion Placeholder = iota

	// PlaceholderDollar renders "$1", "$2", ... markers (Postgres).
	PlaceholderDollar
)

// Op is a comparison operator for predicates.
type Op string

const (
	OpEq    Op = "="
	OpNotEq Op = "!="
	OpGt    Op = ">"
	OpGte   Op = ">="
	OpLt    Op = "<"
	OpLte   Op = "<="
	OpLike  Op = "LIKE"
)

// Predicate is a single WHERE condition.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Order is a single ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// CacheDirective asks the execution layer to serve this query from a
// read-through result cache. TTL of zero means "use the repository default".
type CacheDirective struct {
	TTL time.Duration
}

// ScopeFunc implements a named scope: a canned transformation registered on
// the builder by the owning repository. Params carries the caller-supplied
// parameter bag and may be nil.
type ScopeFunc func(b *Builder, params map[string]any) error

// Builder accumulates the parts of a SELECT statement.
//
// The zero value is not usable; construct with New. Builders are not safe for
// concurrent use.
type Builder struct {
	table       string
	columns     []string
	preds       []Predicate
	orders      []Order
	limit       int
	offset      int
	cache       *CacheDirective
	placeholder Placeholder
	scopes      map[string]ScopeFunc
}

// New returns a builder for SELECTs against table.
func New(table string) *Builder {
	return &Builder{table: table}
}

// WithPlaceholder sets the parameter marker style and returns the builder.
func (b *Builder) WithPlaceholder(p Placeholder) *Builder {
	b.placeholder = p
	return b
}

// RegisterScope makes a named scope available to ApplyScope. Registering an
// existing name replaces it.
func (b *Builder) RegisterScope(name string, fn ScopeFunc) *Builder {
	if b.scopes == nil {
		b.scopes = make(map[string]ScopeFunc)
	}
	b.scopes[name] = fn
	return b
}

// Select restricts the projected columns. Default is "*".
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns[:0], columns...)
	return b
}

// Where appends a predicate.
func (b *Builder) Where(column string, op Op, value any) *Builder {
	b.preds = append(b.preds, Predicate{Column: column, Op: op, Value: value})
	return b
}

// WhereEq appends an equality predicate.
func (b *Builder) WhereEq(column string, value any) *Builder {
	return b.Where(column, OpEq, value)
}

// OrderBy appends an ORDER BY term.
func (b *Builder) OrderBy(column string, desc bool) *Builder {
	b.orders = append(b.orders, Order{Column: column, Desc: desc})
	return b
}

// Take caps the number of rows returned. Later Take calls override earlier
// ones; zero or negative clears the cap.
func (b *Builder) Take(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.limit = n
	return b
}

// Skip sets the row offset.
func (b *Builder) Skip(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.offset = n
	return b
}

// CacheFor attaches a cache directive with the given TTL. A zero TTL defers
// to the repository's configured default.
func (b *Builder) CacheFor(ttl time.Duration) *Builder {
	b.cache = &CacheDirective{TTL: ttl}
	return b
}

// Cache returns the attached cache directive, or nil.
func (b *Builder) Cache() *CacheDirective {
	return b.cache
}

// ApplyScope runs the named scope against the builder. It returns an
// UnknownScopeError if the scope was never registered.
func (b *Builder) ApplyScope(name string, params map[string]any) error {
	fn, ok := b.scopes[name]
	if !ok {
		return &UnknownScopeError{Name: name, Available: b.ScopeNames()}
	}
	return fn(b, params)
}

// ScopeNames returns the registered scope names, sorted.
func (b *Builder) ScopeNames() []string {
	names := make([]string, 0, len(b.scopes))
	for name := range b.scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the builder. Predicate, order, and
// column slices are copied; the scope registry is shared, since scopes are
// registered once by the owning repository and never mutated per query.
func (b *Builder) Clone() *Builder {
	c := *b
	c.columns = append([]string(nil), b.columns...)
	c.preds = append([]Predicate(nil), b.preds...)
	c.orders = append([]Order(nil), b.orders...)
	if b.cache != nil {
		d := *b.cache
		c.cache = &d
	}
	return &c
}

// Table returns the target table name.
func (b *Builder) Table() string { return b.table }

// Predicates returns a copy of the accumulated predicates.
func (b *Builder) Predicates() []Predicate {
	out := make([]Predicate, len(b.preds))
	copy(out, b.preds)
	return out
}

// Limit returns the current row cap (0 = uncapped).
func (b *Builder) Limit() int { return b.limit }

// Offset returns the current row offset.
func (b *Builder) Offset() int { return b.offset }

// SQL renders the statement and its ordered argument list.
func (b *Builder) SQL() (string, []any, error) {
	return b.render(false)
}

// CountSQL renders a COUNT(*) variant of the statement, ignoring ordering,
// limit and offset.
func (b *Builder) CountSQL() (string, []any, error) {
	return b.render(true)
}

func (b *Builder) render(count bool) (string, []any, error) {
	if b.table == "" {
		return "", nil, fmt.Errorf("query: no table set")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if count {
		sb.WriteString("COUNT(*)")
	} else if len(b.columns) > 0 {
		sb.WriteString(strings.Join(b.columns, ", "))
	} else {
		sb.WriteString("*")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	args := make([]any, 0, len(b.preds))
	for i, p := range b.preds {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(p.Column)
		sb.WriteString(" ")
		sb.WriteString(string(p.Op))
		sb.WriteString(" ")
		sb.WriteString(b.marker(len(args) + 1))
		args = append(args, p.Value)
	}

	if !count {
		for i, o := range b.orders {
			if i == 0 {
				sb.WriteString(" ORDER BY ")
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(o.Column)
			if o.Desc {
				sb.WriteString(" DESC")
			}
		}
		if b.limit > 0 {
			sb.WriteString(fmt.Sprintf(" LIMIT %d", b.limit))
		}
		if b.offset > 0 {
			sb.WriteString(fmt.Sprintf(" OFFSET %d", b.offset))
		}
	}

	return sb.String(), args, nil
}

func (b *Builder) marker(n int) string {
	if b.placeholder == PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// UnknownScopeError is returned when a named scope is applied to a builder
// that does not support it.
type UnknownScopeError struct {
	Name      string
	Available []string
}

func (e *UnknownScopeError) Error() string {
	return fmt.Sprintf("unknown scope %q (available: %v)", e.Name, e.Available)
}
