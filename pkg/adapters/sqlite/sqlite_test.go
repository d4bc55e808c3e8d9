package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/repoql/pkg/adapter"
	"github.com/leapstack-labs/repoql/pkg/query"
)

func TestAdapter_DSN(t *testing.T) {
	a := &Adapter{}

	dsn, err := a.DSN(adapter.Target{Database: "app.db"})
	require.NoError(t, err)
	assert.Equal(t, "app.db", dsn)

	dsn, err = a.DSN(adapter.Target{Database: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, ":memory:", dsn)
}

func TestAdapter_DSN_Options(t *testing.T) {
	a := &Adapter{}

	dsn, err := a.DSN(adapter.Target{
		Database: "app.db",
		Options:  map[string]string{"mode": "ro"},
	})
	require.NoError(t, err)
	assert.Equal(t, "app.db?mode=ro", dsn)
}

func TestAdapter_DSN_RequiresPath(t *testing.T) {
	a := &Adapter{}
	_, err := a.DSN(adapter.Target{})
	require.Error(t, err)
}

func TestAdapter_Registered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("sqlite"))
	assert.Equal(t, query.PlaceholderQuestion, (&Adapter{}).Placeholder())
	assert.Equal(t, "sqlite", (&Adapter{}).DriverName())
}
