package criteria

import "time"

// Reserved standing-set keys owned by the settings sync. Callers cannot
// PushStanding under these; they are derived from repository settings.
const (
	KeyActive = "ACTIVE"
	KeyCache  = "CACHE"
	KeyScope  = "SCOPE"
)

func isReservedKey(key string) bool {
	return key == KeyActive || key == KeyCache || key == KeyScope
}

// Settings is the slice of repository configuration that maps onto injected
// criteria. Each flag deterministically controls the presence of one reserved
// standing key.
type Settings struct {
	// ActiveEnabled turns on active-row filtering on ActiveColumn.
	ActiveEnabled bool
	ActiveColumn  string

	// IncludeInactive overrides ActiveEnabled for callers that want
	// soft-hidden rows back without flipping the repository-wide flag.
	IncludeInactive bool

	// CacheEnabled attaches a cache directive to every materialized query.
	// CacheTTL of zero falls back to the engine context, then to
	// DefaultCacheTTL.
	CacheEnabled bool
	CacheTTL     time.Duration

	// Scopes are applied in order on every materialized query.
	Scopes []ScopePair
}

// SyncSettings reconciles the reserved standing keys with s. It is invoked
// once at repository construction and again after every settings mutation,
// before the next materialization. Writes go through the standing set, so
// they participate in ordinary change detection: a sync that changes nothing
// leaves the applied snapshot valid.
//
// The transient set is never touched here.
func (e *Engine) SyncSettings(s Settings) {
	if s.ActiveEnabled && !s.IncludeInactive {
		e.putStanding(Active{Column: s.ActiveColumn}, KeyActive)
	} else {
		e.standing.Remove(KeyActive)
	}

	if s.CacheEnabled {
		e.putStanding(Cache{TTL: s.CacheTTL}, KeyCache)
	} else {
		e.standing.Remove(KeyCache)
	}

	if len(s.Scopes) > 0 {
		pairs := make([]ScopePair, len(s.Scopes))
		copy(pairs, s.Scopes)
		e.putStanding(Scope{Pairs: pairs}, KeyScope)
	} else {
		e.standing.Remove(KeyScope)
	}
}
