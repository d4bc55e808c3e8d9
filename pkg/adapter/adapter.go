// Package adapter defines the database adapter contract and its registry.
//
// An adapter binds a repository to one database/sql driver: it names the
// driver, builds the DSN from target configuration, and reports the
// placeholder style the driver's dialect expects. Concrete implementations
// live in pkg/adapters/ subdirectories and register themselves in init().
package adapter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/repoql/pkg/query"
)

// Target holds the connection parameters for a database target.
type Target struct {
	// Type selects the adapter: sqlite, postgres, duckdb.
	Type string `koanf:"type"`

	// Database is the file path (SQLite, DuckDB) or database name (Postgres).
	Database string `koanf:"database"`

	// Network databases.
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Options are appended to the DSN as driver-specific key/value pairs.
	Options map[string]string `koanf:"options"`
}

// Adapter is the per-driver contract.
type Adapter interface {
	// DriverName is the database/sql driver to open.
	DriverName() string

	// DSN renders the connection string for t.
	DSN(t Target) (string, error)

	// Placeholder is the parameter marker style of the driver's dialect.
	Placeholder() query.Placeholder
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Adapter)
)

// Register adds an adapter factory to the registry. Called by adapter
// implementations in their init() functions.
func Register(name string, factory func() Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates an adapter for the target type.
func New(t Target) (Adapter, error) {
	if t.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	registryMu.RLock()
	factory, ok := registry[t.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownAdapterError{Type: t.Type, Available: List()}
	}
	return factory(), nil
}

// List returns all registered adapter names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks whether an adapter type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %v)", e.Type, e.Available)
}
