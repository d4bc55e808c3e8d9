package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	repoql "github.com/leapstack-labs/repoql"
	"github.com/leapstack-labs/repoql/pkg/criteria"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Scopes   []string
	Wheres   []string
	Limit    int
	Inactive bool
	Skip     bool
	Count    bool
	First    bool
	Page     int
	PerPage  int
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the configured table through criteria",
		Long: `Query the configured table, composing criteria from flags on top of the
repository settings in repoql.yaml.

Scope and where flags register one-shot criteria: they apply to this
invocation only. Settings-driven criteria (active filter, cache, configured
scopes) persist for every query.

When invoked without flags on a terminal, enters interactive REPL mode.`,
		Example: `  # All rows, criteria from config only
  repoql query

  # Stack one-shot criteria
  repoql query --scope published --where author=ada --limit 5

  # Page 2, 10 rows per page
  repoql query --page 2 --per-page 10

  # Ignore all criteria for this run
  repoql query --skip-criteria --count`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Scopes, "scope", nil, "Apply a named scope (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Wheres, "where", nil, "Equality filter col=value (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Cap the number of rows returned")
	cmd.Flags().BoolVar(&opts.Inactive, "inactive", false, "Include inactive rows")
	cmd.Flags().BoolVar(&opts.Skip, "skip-criteria", false, "Run with no criteria applied")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "Print the match count only")
	cmd.Flags().BoolVar(&opts.First, "first", false, "Print the first matching row only")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "Page number (1-based, with --per-page)")
	cmd.Flags().IntVar(&opts.PerPage, "per-page", 20, "Rows per page")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions) error {
	repo, db, err := openRepository()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// No action flags on a TTY: interactive mode.
	if !cmd.Flags().Changed("scope") && !cmd.Flags().Changed("where") &&
		!cmd.Flags().Changed("limit") && !cmd.Flags().Changed("count") &&
		!cmd.Flags().Changed("first") && !cmd.Flags().Changed("page") &&
		!cmd.Flags().Changed("skip-criteria") && isTerminal(os.Stdin) {
		return runREPL(cmd, repo)
	}

	if err := pushFlagCriteria(repo, opts); err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.Count:
		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, n)
		return nil
	case opts.First:
		row, err := repo.First(ctx)
		if err != nil {
			return err
		}
		return renderRows(out, []repoql.Row{row}, cfg.Format)
	case opts.Page > 0:
		page, err := repo.Paginate(ctx, opts.Page, opts.PerPage)
		if err != nil {
			return err
		}
		if err := renderRows(out, page.Items, cfg.Format); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "page %d/%d (%d total)\n", page.Page, page.TotalPages, page.Total)
		return nil
	default:
		rows, err := repo.All(ctx)
		if err != nil {
			return err
		}
		return renderRows(out, rows, cfg.Format)
	}
}

// pushFlagCriteria turns flags into one-shot criteria and mode toggles.
func pushFlagCriteria(repo *repoql.Repository, opts *QueryOptions) error {
	repo.SkipCriteria(opts.Skip)
	repo.IncludeInactive(opts.Inactive)

	for _, s := range opts.Scopes {
		repo.PushCriteriaOnce(criteria.Scope{Pairs: []criteria.ScopePair{{Name: s}}}, "")
	}
	for _, w := range opts.Wheres {
		col, val, ok := strings.Cut(w, "=")
		if !ok || col == "" {
			return fmt.Errorf("invalid --where %q, expected col=value", w)
		}
		repo.PushCriteriaOnce(criteria.WhereEq(col, val), "")
	}
	if opts.Limit > 0 {
		repo.PushCriteriaOnce(criteria.Limit{N: opts.Limit}, "")
	}
	return nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
