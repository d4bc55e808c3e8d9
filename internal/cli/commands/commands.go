// Package commands implements the repoql CLI commands.
package commands

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	repoql "github.com/leapstack-labs/repoql"
	"github.com/leapstack-labs/repoql/internal/config"
	"github.com/leapstack-labs/repoql/internal/store"
	"github.com/leapstack-labs/repoql/pkg/adapter"
)

var (
	cfg    *config.Config
	logger = slog.New(slog.DiscardHandler)
)

// SetConfig stores the loaded configuration for commands to use. Called by
// the root command's PersistentPreRunE.
func SetConfig(c *config.Config) { cfg = c }

// SetLogger stores the CLI logger.
func SetLogger(l *slog.Logger) { logger = l }

// openDB opens the configured database target.
func openDB() (*sql.DB, adapter.Adapter, error) {
	ad, err := adapter.New(cfg.Target)
	if err != nil {
		return nil, nil, err
	}

	dsn, err := ad.DSN(cfg.Target)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(ad.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, ad, nil
}

// openRepository builds a repository over the configured table with the
// demo scopes registered and settings applied from config.
func openRepository() (*repoql.Repository, *sql.DB, error) {
	db, ad, err := openDB()
	if err != nil {
		return nil, nil, err
	}

	table := cfg.Repository.Table
	if table == "" {
		table = "posts"
	}

	opts := []repoql.Option{
		repoql.WithLogger(logger),
		repoql.WithDefaultCacheTTL(time.Duration(cfg.CacheTTLMinutes) * time.Minute),
	}
	for name, fn := range store.Scopes() {
		opts = append(opts, repoql.WithScope(name, fn))
	}

	repo := repoql.New(db, ad, table, opts...)

	if cfg.Repository.ActiveFilter {
		repo.EnableActiveFilter(cfg.Repository.ActiveColumn)
	}
	if cfg.Repository.Cache {
		repo.EnableCache(0)
	}
	for _, s := range cfg.Repository.Scopes {
		repo.AddScope(s.Name, s.Params)
	}

	return repo, db, nil
}
