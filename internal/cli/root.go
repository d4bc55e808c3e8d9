// Package cli provides the command-line interface for repoql.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repoql/internal/cli/commands"
	"github.com/leapstack-labs/repoql/internal/config"

	// Adapter registration.
	_ "github.com/leapstack-labs/repoql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/repoql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/repoql/pkg/adapters/sqlite"
)

// Version information (set at build time).
var (
	Version = "0.1.0"
)

var cfgFile string

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "repoql",
		Short: "repoql - criteria-driven query tool",
		Long: `repoql explores database tables through composable, named criteria.

Standing criteria persist across queries, one-shot criteria apply to the
next query only, and repository settings (active filtering, caching, named
scopes) inject their own criteria automatically.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			commands.SetConfig(cfg)

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			commands.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))

			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (default: repoql.yaml, searched upward)")
	flags.String("target", "", "Adapter type: sqlite, postgres, duckdb")
	flags.String("database", "", "Database file path or name")
	flags.String("table", "", "Table to query")
	flags.StringP("format", "f", "", "Output format: table, json, csv")
	flags.BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
