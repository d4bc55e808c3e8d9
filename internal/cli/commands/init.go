package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/repoql/internal/config"
	"github.com/leapstack-labs/repoql/internal/store"
)

// starterConfig is marshaled into repoql.yaml by init.
type starterConfig struct {
	Target struct {
		Type     string `yaml:"type"`
		Database string `yaml:"database"`
	} `yaml:"target"`
	Repository struct {
		Table        string `yaml:"table"`
		ActiveFilter bool   `yaml:"active_filter"`
		ActiveColumn string `yaml:"active_column"`
		Cache        bool   `yaml:"cache"`
	} `yaml:"repository"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a starter config and migrate the demo database",
		Long: `Write a starter repoql.yaml (if none exists) and create the demo posts
table in the configured database, with a few seed rows to query against.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if config.GetConfigFileUsed() == "" {
				if err := writeStarterConfig(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Created %s\n", config.ConfigFileName)
			}

			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := store.Migrate(db, cfg.Target.Type); err != nil {
				return err
			}

			version, err := store.Version(db, cfg.Target.Type)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "Database %s migrated to version %d\n", cfg.Target.Database, version)
			return nil
		},
	}
}

func writeStarterConfig() error {
	var sc starterConfig
	sc.Target.Type = cfg.Target.Type
	sc.Target.Database = cfg.Target.Database
	sc.Repository.Table = "posts"
	sc.Repository.ActiveFilter = true
	sc.Repository.ActiveColumn = config.DefaultActiveColumn
	sc.Repository.Cache = false
	sc.CacheTTLMinutes = config.DefaultCacheTTLMinutes

	data, err := yaml.Marshal(&sc)
	if err != nil {
		return fmt.Errorf("failed to marshal starter config: %w", err)
	}
	if err := os.WriteFile(config.ConfigFileName, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.ConfigFileName, err)
	}
	return nil
}
