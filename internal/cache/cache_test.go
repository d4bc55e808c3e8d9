package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New()

	c.Set("k", []string{"a"}, time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	now := time.Now()
	c := NewWithClock(func() time.Time { return now })

	c.Set("k", 42, 10*time.Minute)

	_, ok := c.Get("k")
	require.True(t, ok)

	now = now.Add(11 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "entries expire after their TTL")
	assert.Zero(t, c.Len(), "expired entries are collected on access")
}

func TestCache_NonPositiveTTLIgnored(t *testing.T) {
	c := New()
	c.Set("k", 1, 0)
	c.Set("k2", 1, -time.Minute)
	assert.Zero(t, c.Len())
}

func TestCache_Purge(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestKey(t *testing.T) {
	a := Key("rows", "SELECT * FROM posts WHERE a = ?", []any{1})
	b := Key("rows", "SELECT * FROM posts WHERE a = ?", []any{1})
	assert.Equal(t, a, b, "identical inputs produce identical keys")

	assert.NotEqual(t, a, Key("count", "SELECT * FROM posts WHERE a = ?", []any{1}),
		"method participates in the key")
	assert.NotEqual(t, a, Key("rows", "SELECT * FROM posts WHERE a = ?", []any{2}),
		"args participate in the key")
}
