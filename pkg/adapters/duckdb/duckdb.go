// Package duckdb provides the DuckDB adapter.
package duckdb

import (
	"github.com/leapstack-labs/repoql/pkg/adapter"
	"github.com/leapstack-labs/repoql/pkg/query"

	// duckdb driver registration.
	_ "github.com/marcboeker/go-duckdb"
)

func init() {
	adapter.Register("duckdb", func() adapter.Adapter { return &Adapter{} })
}

// Adapter implements adapter.Adapter for DuckDB.
type Adapter struct{}

func (a *Adapter) DriverName() string { return "duckdb" }

// DSN is the database file path; empty means an in-memory database, which
// DuckDB expresses as an empty DSN.
func (a *Adapter) DSN(t adapter.Target) (string, error) {
	return t.Database, nil
}

func (a *Adapter) Placeholder() query.Placeholder { return query.PlaceholderQuestion }
