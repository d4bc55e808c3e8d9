package criteria

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/repoql/pkg/query"
)

// BuilderFactory returns a fresh, criteria-free query builder.
type BuilderFactory func() *query.Builder

// onceEntry is one slot in the transient set. Suppress marks a tombstone:
// the entry contributes no transformation and instead removes the standing
// entry at Key from the next effective list.
type onceEntry struct {
	key       string
	keyed     bool
	criterion Criterion
	suppress  bool
}

// Engine owns the standing, transient, and last-applied criteria sets and
// decides, per materialization, whether the query builder must be rebuilt.
//
// An Engine belongs to exactly one repository instance and follows a
// single-owner, single-writer discipline: mutating criteria and materializing
// from different goroutines without external synchronization is undefined.
type Engine struct {
	standing  *Set
	transient []onceEntry
	applied   *Set // snapshot of the last effective list actually folded
	ignore    bool
	current   *query.Builder
	ctx       Context
	log       *slog.Logger
}

// NewEngine returns an engine bound to ctx (may be nil). A nil logger
// discards.
func NewEngine(ctx Context, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		standing: NewSet(),
		applied:  NewSet(),
		ctx:      ctx,
		log:      logger,
	}
}

// PushStanding registers a persistent criterion. An empty key appends
// positionally; a non-empty key upserts, overriding any standing criterion
// already stored under it. Reserved settings keys are rejected with
// *InvalidKeyError.
func (e *Engine) PushStanding(c Criterion, key string) error {
	if isReservedKey(key) {
		return &InvalidKeyError{Key: key}
	}
	e.putStanding(c, key)
	return nil
}

// putStanding is the unchecked insert shared with the settings sync, which
// is the only writer allowed to touch reserved keys.
func (e *Engine) putStanding(c Criterion, key string) {
	if key == "" {
		e.standing.Push(c)
		return
	}
	e.standing.Put(key, c)
}

// RemoveStanding deletes the keyed standing criterion. No-op if absent or if
// the key is empty.
func (e *Engine) RemoveStanding(key string) {
	if key == "" {
		return
	}
	e.standing.Remove(key)
}

// PushOnce registers a criterion for the next materialization only. Key
// semantics match PushStanding: empty key stacks positionally after all
// standing entries, a non-empty key overrides the standing entry at that key
// (preserving its position) or appends if no such standing entry exists.
// Reserved settings keys are allowed here: overriding an injected entry for
// one call leaves the standing copy in place for subsequent
// materializations.
func (e *Engine) PushOnce(c Criterion, key string) {
	if key == "" {
		e.transient = append(e.transient, onceEntry{criterion: c})
		return
	}
	e.transient = append(e.transient, onceEntry{key: key, keyed: true, criterion: c})
}

// RemoveOnce suppresses the standing criterion at key for the next
// materialization without deleting it. No-op when no standing entry exists
// under key, since there is nothing to suppress.
func (e *Engine) RemoveOnce(key string) {
	if key == "" || !e.standing.Has(key) {
		return
	}
	e.transient = append(e.transient, onceEntry{key: key, keyed: true, suppress: true})
}

// IgnoreAll toggles criteria-ignoring mode. While enabled, Materialize
// returns a clean builder with no criteria applied. Enabling it discards the
// applied snapshot so that disabling it later forces a full rebuild instead
// of trusting pre-ignore state.
func (e *Engine) IgnoreAll(ignore bool) {
	if ignore && !e.ignore && e.applied.Len() > 0 {
		e.applied = NewSet()
		e.current = nil
	}
	e.ignore = ignore
}

// Ignoring reports whether criteria-ignoring mode is on.
func (e *Engine) Ignoring() bool {
	return e.ignore
}

// Standing returns a copy of the standing set.
func (e *Engine) Standing() *Set {
	return e.standing.Clone()
}

// Once returns a copy of the transient entries in push order. Tombstones are
// reported with a nil Criterion.
func (e *Engine) Once() []Entry {
	out := make([]Entry, 0, len(e.transient))
	for _, t := range e.transient {
		entry := Entry{Key: t.key, Keyed: t.keyed}
		if !t.suppress {
			entry.Criterion = t.criterion
		}
		out = append(out, entry)
	}
	return out
}

// Applied returns a copy of the snapshot of the last effective list folded.
func (e *Engine) Applied() *Set {
	return e.applied.Clone()
}

// effective merges the transient entries onto a duplicate of the standing
// set, per the override, tombstone, and stacking rules.
func (e *Engine) effective() *Set {
	eff := e.standing.Clone()
	for _, t := range e.transient {
		switch {
		case !t.keyed:
			eff.Push(t.criterion)
		case t.suppress || t.criterion == nil:
			eff.Remove(t.key)
		default:
			eff.Put(t.key, t.criterion)
		}
	}
	return eff
}

// Materialize produces the query builder for the current criteria state.
//
// When ignoring is off, the transient set is empty, the standing set is
// structurally unchanged since the last fold, and a built query exists, the
// previous builder is returned as-is with no criterion re-applied.
//
// Otherwise the effective list is folded, left to right, onto a fresh
// builder from base. The transient set is consumed unconditionally: it is
// cleared before folding, so a failing criterion still uses up the one-shot
// entries. On fold failure the applied snapshot is reset, forcing the next
// call to re-materialize rather than assume success.
func (e *Engine) Materialize(base BuilderFactory) (*query.Builder, error) {
	if e.ignore {
		e.log.Debug("materialize: ignoring criteria")
		return base(), nil
	}

	if len(e.transient) == 0 && e.standing.Equal(e.applied) && e.current != nil {
		e.log.Debug("materialize: unchanged, skipping rebuild")
		return e.current, nil
	}

	eff := e.effective()
	e.transient = e.transient[:0]

	b := base()
	for i, entry := range eff.Entries() {
		if err := entry.Criterion.Apply(b, e.ctx); err != nil {
			e.applied = NewSet()
			e.current = nil
			if entry.Keyed {
				return nil, fmt.Errorf("apply criterion %q: %w", entry.Key, err)
			}
			return nil, fmt.Errorf("apply criterion #%d: %w", i, err)
		}
	}

	e.applied = eff
	e.current = b
	e.log.Debug("materialize: rebuilt query", "criteria", eff.Len())
	return b, nil
}

// Invalidate drops the applied snapshot and the cached builder, forcing the
// next Materialize to rebuild. Repositories call this when the base query
// itself changes shape (for example after re-registering scopes).
func (e *Engine) Invalidate() {
	e.applied = NewSet()
	e.current = nil
}
