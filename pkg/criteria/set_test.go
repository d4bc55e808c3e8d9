package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/repoql/pkg/query"
)

func setKeys(s *Set) []string {
	entries := s.Entries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func TestSet_PutUpsertsInPlace(t *testing.T) {
	s := NewSet()
	s.Put("one", WhereEq("a", 1))
	s.Put("two", WhereEq("b", 2))
	s.Put("three", WhereEq("c", 3))

	s.Put("two", WhereEq("b", 99))

	assert.Equal(t, []string{"one", "two", "three"}, setKeys(s), "upsert keeps position")

	c, ok := s.Get("two")
	require.True(t, ok)
	assert.Equal(t, WhereEq("b", 99), c)
}

func TestSet_PushStacksPositionals(t *testing.T) {
	s := NewSet()
	s.Push(WhereEq("a", 1))
	s.Push(WhereEq("a", 1))

	assert.Equal(t, 2, s.Len(), "identical positional entries do not collide")
}

func TestSet_RemoveShiftsIndex(t *testing.T) {
	s := NewSet()
	s.Put("one", WhereEq("a", 1))
	s.Put("two", WhereEq("b", 2))
	s.Put("three", WhereEq("c", 3))

	s.Remove("one")
	s.Remove("missing") // no-op

	assert.Equal(t, []string{"two", "three"}, setKeys(s))

	// Index still resolves after the shift.
	c, ok := s.Get("three")
	require.True(t, ok)
	assert.Equal(t, WhereEq("c", 3), c)

	// Upserting after removal still replaces in place.
	s.Put("two", WhereEq("b", 7))
	assert.Equal(t, []string{"two", "three"}, setKeys(s))
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := NewSet()
	s.Put("one", WhereEq("a", 1))

	c := s.Clone()
	c.Put("two", WhereEq("b", 2))
	c.Remove("one")

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Has("one"))
}

func TestSet_Equal(t *testing.T) {
	build := func() *Set {
		s := NewSet()
		s.Put("one", WhereEq("a", 1))
		s.Push(Limit{N: 5})
		return s
	}

	a, b := build(), build()
	assert.True(t, a.Equal(b), "structurally identical sets compare equal")

	b.Put("one", WhereEq("a", 2))
	assert.False(t, a.Equal(b), "different criterion values differ")

	c := build()
	c.Put("extra", WhereEq("x", 1))
	assert.False(t, a.Equal(c), "different lengths differ")

	// Same values under different keys differ.
	d := NewSet()
	d.Put("other", WhereEq("a", 1))
	d.Push(Limit{N: 5})
	assert.False(t, a.Equal(d))
}

func TestSet_Equal_FuncCriteriaForfeitSkip(t *testing.T) {
	mk := func() Func {
		return func(_ *query.Builder, _ Context) error { return nil }
	}

	a := NewSet()
	a.Put("f", mk())
	b := NewSet()
	b.Put("f", mk())

	assert.False(t, a.Equal(b), "function criteria never compare equal, so they always rebuild")
}
