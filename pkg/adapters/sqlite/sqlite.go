// Package sqlite provides the SQLite adapter, backed by the CGo-free
// modernc.org/sqlite driver.
package sqlite

import (
	"fmt"

	"github.com/leapstack-labs/repoql/pkg/adapter"
	"github.com/leapstack-labs/repoql/pkg/query"

	// sqlite driver registration.
	_ "modernc.org/sqlite"
)

func init() {
	adapter.Register("sqlite", func() adapter.Adapter { return &Adapter{} })
}

// Adapter implements adapter.Adapter for SQLite.
type Adapter struct{}

func (a *Adapter) DriverName() string { return "sqlite" }

// DSN renders a file path DSN. ":memory:" is passed through for in-memory
// databases.
func (a *Adapter) DSN(t adapter.Target) (string, error) {
	if t.Database == "" {
		return "", fmt.Errorf("sqlite: database path is required")
	}
	dsn := t.Database
	sep := "?"
	for k, v := range t.Options {
		dsn += sep + k + "=" + v
		sep = "&"
	}
	return dsn, nil
}

func (a *Adapter) Placeholder() query.Placeholder { return query.PlaceholderQuestion }
