package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/cli/reader"
	"github.com/kolsys/allure-phpunit/cli/render"
)

// listWarningThreshold is the number of items above which we warn about using --limit.
const listWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ListCommand returns the list command with subcommands.
// List returns thin rows; use inspect for full detail.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List entities (suites, tests)",
		Subcommands: []*cli.Command{
			listSuitesCommand(),
			listTestsCommand(),
		},
	}
}

func listSuitesCommand() *cli.Command {
	return &cli.Command{
		Name:   "suites",
		Usage:  "List suite result files",
		Flags:  append(ReadOnlyFlags(), OutputFlag),
		Action: listSuitesAction,
	}
}

func listSuitesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for list commands
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list commands", 1)
	}

	src := reader.Open(c.String("output"))
	rows, err := src.ListSuites()
	if err != nil {
		return cli.Exit(fmt.Sprintf("list suites: %v", err), 1)
	}

	return r.Render(rows)
}

func listTestsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tests",
		Usage: "List recorded test cases across all suites",
		Flags: append(ReadOnlyFlags(),
			OutputFlag,
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status: passed, failed, broken, canceled, pending",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of rows to return (0 = no limit)",
				Value: 0,
			},
		),
		Action: listTestsAction,
	}
}

func listTestsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list commands", 1)
	}

	status := c.String("status")
	if err := validateStatusFilter(status); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	src := reader.Open(c.String("output"))
	rows, err := src.ListTests()
	if err != nil {
		return cli.Exit(fmt.Sprintf("list tests: %v", err), 1)
	}

	if status != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if row.Status == status {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	limit := c.Int("limit")
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	warnLargeListing(len(rows), limit)
	return r.Render(rows)
}

// validateStatusFilter checks --status against the recorded status values.
func validateStatusFilter(status string) error {
	switch allure.Status(status) {
	case "", allure.StatusPassed, allure.StatusFailed, allure.StatusBroken,
		allure.StatusCanceled, allure.StatusPending:
		return nil
	default:
		return fmt.Errorf("invalid --status: %s\nValid options: passed, failed, broken, canceled, pending", status)
	}
}

// warnLargeListing warns if output is large and --limit was not specified
// (TTY only to avoid noise in pipelines).
func warnLargeListing(rows, limit int) {
	if rows > listWarningThreshold && limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", rows)
	}
}
