package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	repoql "github.com/leapstack-labs/repoql"
	"github.com/leapstack-labs/repoql/pkg/criteria"
)

var replCompleter = readline.NewPrefixCompleter(
	readline.PcItem("all"),
	readline.PcItem("first"),
	readline.PcItem("count"),
	readline.PcItem("scope"),
	readline.PcItem("where"),
	readline.PcItem("limit"),
	readline.PcItem("push"),
	readline.PcItem("rm"),
	readline.PcItem("rm-once"),
	readline.PcItem("skip",
		readline.PcItem("on"),
		readline.PcItem("off"),
	),
	readline.PcItem("criteria"),
	readline.PcItem(".help"),
	readline.PcItem(".quit"),
)

func runREPL(cmd *cobra.Command, repo *repoql.Repository) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "repoql> ",
		HistoryFile:     ".repoql_history",
		AutoComplete:    replCompleter,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "repoql REPL (table: %s)\n", repo.Table())
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".quit" || line == ".exit" {
			break
		}
		if line == ".help" {
			printREPLHelp(out)
			continue
		}

		if err := runREPLCommand(cmd, repo, line); err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
		}
	}

	return nil
}

func printREPLHelp(out io.Writer) {
	_, _ = fmt.Fprint(out, `Commands:
  all                      run the query, print every row
  first                    print the first matching row
  count                    print the match count
  scope NAME               apply a named scope to the next query
  where COL=VALUE          filter the next query
  limit N                  cap the next query
  push KEY COL=VALUE       standing filter under KEY (persists)
  rm KEY                   delete the standing criterion at KEY
  rm-once KEY              suppress KEY for the next query only
  skip on|off              toggle ignoring all criteria
  criteria                 list standing criteria
  .quit                    exit
`)
}

func runREPLCommand(cmd *cobra.Command, repo *repoql.Repository, line string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	fields := strings.Fields(line)
	verb, rest := fields[0], fields[1:]

	switch verb {
	case "all":
		rows, err := repo.All(ctx)
		if err != nil {
			return err
		}
		return renderRows(out, rows, cfg.Format)

	case "first":
		row, err := repo.First(ctx)
		if err != nil {
			return err
		}
		return renderRows(out, []repoql.Row{row}, cfg.Format)

	case "count":
		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, n)
		return nil

	case "scope":
		if len(rest) != 1 {
			return fmt.Errorf("usage: scope NAME")
		}
		repo.PushCriteriaOnce(criteria.Scope{Pairs: []criteria.ScopePair{{Name: rest[0]}}}, "")
		return nil

	case "where":
		if len(rest) != 1 {
			return fmt.Errorf("usage: where COL=VALUE")
		}
		col, val, ok := strings.Cut(rest[0], "=")
		if !ok || col == "" {
			return fmt.Errorf("usage: where COL=VALUE")
		}
		repo.PushCriteriaOnce(criteria.WhereEq(col, val), "")
		return nil

	case "limit":
		if len(rest) != 1 {
			return fmt.Errorf("usage: limit N")
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return fmt.Errorf("usage: limit N (positive integer)")
		}
		repo.PushCriteriaOnce(criteria.Limit{N: n}, "")
		return nil

	case "push":
		if len(rest) != 2 {
			return fmt.Errorf("usage: push KEY COL=VALUE")
		}
		col, val, ok := strings.Cut(rest[1], "=")
		if !ok || col == "" {
			return fmt.Errorf("usage: push KEY COL=VALUE")
		}
		return repo.PushCriteria(criteria.WhereEq(col, val), rest[0])

	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("usage: rm KEY")
		}
		repo.RemoveCriteria(rest[0])
		return nil

	case "rm-once":
		if len(rest) != 1 {
			return fmt.Errorf("usage: rm-once KEY")
		}
		repo.RemoveCriteriaOnce(rest[0])
		return nil

	case "skip":
		if len(rest) != 1 || (rest[0] != "on" && rest[0] != "off") {
			return fmt.Errorf("usage: skip on|off")
		}
		repo.SkipCriteria(rest[0] == "on")
		return nil

	case "criteria":
		entries := repo.Criteria().Entries()
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out, "(no standing criteria)")
			return nil
		}
		for i, e := range entries {
			key := fmt.Sprintf("#%d", i)
			if e.Keyed {
				key = e.Key
			}
			_, _ = fmt.Fprintf(out, "  %-10s %T\n", key, e.Criterion)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q (try .help)", verb)
	}
}
