package criteria

import "reflect"

// Entry is one slot in a Set: a criterion, optionally bound to an explicit
// string key. Unkeyed entries are purely positional.
type Entry struct {
	Key       string
	Keyed     bool
	Criterion Criterion
}

// Set is an insertion-order-preserving mapping from key to criterion.
//
// The ordering contract is load-bearing: upserting an existing key replaces
// the criterion in place, keeping the original position; new keys and
// positional entries append. Iteration order is always insertion order with
// in-place replacement.
type Set struct {
	entries []Entry
	index   map[string]int
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Push appends an unkeyed, positional entry. Positional entries never
// collide, so repeated pushes of the same criterion stack.
func (s *Set) Push(c Criterion) {
	s.entries = append(s.entries, Entry{Criterion: c})
}

// Put upserts under key. An existing key keeps its position; a new key
// appends after all current entries.
func (s *Set) Put(key string, c Criterion) {
	if i, ok := s.index[key]; ok {
		s.entries[i].Criterion = c
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, Entry{Key: key, Keyed: true, Criterion: c})
}

// Remove deletes the keyed entry if present. Later entries shift up and the
// index is rebuilt. No-op for unknown keys.
func (s *Set) Remove(key string) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, key)
	for k, j := range s.index {
		if j > i {
			s.index[k] = j - 1
		}
	}
}

// Get returns the criterion stored under key.
func (s *Set) Get(key string) (Criterion, bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.entries[i].Criterion, true
}

// Has reports whether key is present.
func (s *Set) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the ordered entries. The criteria themselves are
// shared; they are immutable after construction by contract.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clone returns an independent copy with the same order and keys.
func (s *Set) Clone() *Set {
	c := &Set{
		entries: make([]Entry, len(s.entries)),
		index:   make(map[string]int, len(s.index)),
	}
	copy(c.entries, s.entries)
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// Equal reports structural equality: same length, same keys in the same
// positions, and criteria that compare equal by value. Criteria holding
// function values never compare equal, which degrades gracefully into "always
// rebuild" for callers relying on change detection.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, e := range s.entries {
		o := other.entries[i]
		if e.Key != o.Key || e.Keyed != o.Keyed {
			return false
		}
		if !criterionEqual(e.Criterion, o.Criterion) {
			return false
		}
	}
	return true
}

func criterionEqual(a, b Criterion) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}
