package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/cli/render"
)

// VersionResponse is the response for the version command.
// Reports the adapter version and the bootstrap protocol version it speaks.
type VersionResponse struct {
	Version  string `json:"version"`
	Protocol string `json:"protocol"`
	Commit   string `json:"commit"`
}

// VersionCommand returns the version command.
// It must not touch the results directory or spawn PHP.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		// TUI not supported for version command
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", 1)
		}

		resp := VersionResponse{
			Version:  allure.Version,
			Protocol: allure.ProtocolVersion,
			Commit:   commit,
		}

		return r.Render(resp)
	}
}
