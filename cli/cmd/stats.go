package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kolsys/allure-phpunit/cli/reader"
	"github.com/kolsys/allure-phpunit/cli/render"
)

// StatsCommand returns the stats command.
// Stats returns aggregated, derived facts about a results directory.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show aggregated statistics for a results directory",
		Flags:  append(TUIReadOnlyFlags(), OutputFlag),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	src := reader.Open(c.String("output"))
	resp, err := src.Stats()
	if err != nil {
		return cli.Exit(fmt.Sprintf("stats: %v", err), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_run", resp)
	}

	return r.Render(resp)
}
