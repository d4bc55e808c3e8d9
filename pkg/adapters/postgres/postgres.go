// Package postgres provides the Postgres adapter, backed by the pgx stdlib
// driver.
package postgres

import (
	"fmt"
	"net/url"

	"github.com/leapstack-labs/repoql/pkg/adapter"
	"github.com/leapstack-labs/repoql/pkg/query"

	// pgx database/sql driver registration.
	_ "github.com/jackc/pgx/v5/stdlib"
)

func init() {
	adapter.Register("postgres", func() adapter.Adapter { return &Adapter{} })
}

// Adapter implements adapter.Adapter for Postgres.
type Adapter struct{}

func (a *Adapter) DriverName() string { return "pgx" }

// DSN renders a postgres:// URL from the target.
func (a *Adapter) DSN(t adapter.Target) (string, error) {
	if t.Database == "" {
		return "", fmt.Errorf("postgres: database name is required")
	}

	host := t.Host
	if host == "" {
		host = "localhost"
	}
	port := t.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + t.Database,
	}
	if t.User != "" {
		if t.Password != "" {
			u.User = url.UserPassword(t.User, t.Password)
		} else {
			u.User = url.User(t.User)
		}
	}
	q := u.Query()
	for k, v := range t.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (a *Adapter) Placeholder() query.Placeholder { return query.PlaceholderDollar }
