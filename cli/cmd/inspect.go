package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kolsys/allure-phpunit/cli/reader"
	"github.com/kolsys/allure-phpunit/cli/render"
)

// InspectCommand returns the inspect command with subcommands.
// Inspect returns a deep view of a single entity; list returns thin rows.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a single entity (suite, test, run)",
		Subcommands: []*cli.Command{
			inspectSuiteCommand(),
			inspectTestCommand(),
			inspectRunCommand(),
		},
	}
}

func inspectSuiteCommand() *cli.Command {
	return &cli.Command{
		Name:      "suite",
		Usage:     "Inspect a suite by result file UUID",
		ArgsUsage: "<suite-uuid>",
		Flags:     append(TUIReadOnlyFlags(), OutputFlag),
		Action:    inspectSuiteAction,
	}
}

func inspectSuiteAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("suite-uuid required", 1)
	}
	suiteUUID := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	src := reader.Open(c.String("output"))
	detail, err := src.InspectSuite(suiteUUID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect suite: %v", err), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_suite", detail)
	}

	return r.Render(detail)
}

func inspectTestCommand() *cli.Command {
	return &cli.Command{
		Name:      "test",
		Usage:     "Inspect a test case by suite UUID and case name",
		ArgsUsage: "<suite-uuid> <test-name>",
		Flags:     append(TUIReadOnlyFlags(), OutputFlag),
		Action:    inspectTestAction,
	}
}

func inspectTestAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("suite-uuid and test-name required", 1)
	}
	suiteUUID := c.Args().Get(0)
	testName := c.Args().Get(1)

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	src := reader.Open(c.String("output"))
	detail, err := src.InspectTest(suiteUUID, testName)
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect test: %v", err), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_test", detail)
	}

	return r.Render(detail)
}

func inspectRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Inspect a run report file written by 'run --report'",
		ArgsUsage: "<report.json>",
		Flags:     TUIReadOnlyFlags(),
		Action:    inspectRunAction,
	}
}

func inspectRunAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("report path required", 1)
	}
	path := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	view, err := reader.LoadRunReport(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect run: %v", err), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_run", view)
	}

	return r.Render(view)
}
