package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kolsys/allure-phpunit/bootstrap"
	"github.com/kolsys/allure-phpunit/cli/render"
	"github.com/kolsys/allure-phpunit/ipc"
	"github.com/kolsys/allure-phpunit/phpunit"
)

// DebugCommand returns the debug command with subcommands.
// Debug commands are opt-in diagnostic tools. They are read-only by
// default; any mutation must be explicitly requested.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (frames, bootstrap)",
		Subcommands: []*cli.Command{
			debugFramesCommand(),
			debugBootstrapCommand(),
		},
	}
}

func debugFramesCommand() *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "Decode a captured frame stream file",
		ArgsUsage: "<capture-file>",
		Flags: append(ReadOnlyFlags(),
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Include payload details",
			},
		),
		Action: debugFramesAction,
	}
}

// FrameSummary is one decoded frame in a capture listing.
type FrameSummary struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	Seq    int64  `json:"seq,omitempty"`
	Bytes  int    `json:"bytes"`
	Detail string `json:"detail,omitempty"`
}

func debugFramesAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("capture file required", 1)
	}
	path := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for debug commands
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open capture: %v", err), 1)
	}
	defer f.Close()

	rows := decodeCapturedFrames(f, c.Bool("verbose"))
	return r.Render(rows)
}

// decodeCapturedFrames walks a captured stream and summarizes each frame.
// Truncated or corrupt captures are the expected input here (crash dumps),
// so a mid-stream framing error terminates the walk with an error row
// rather than failing the command.
func decodeCapturedFrames(src io.Reader, verbose bool) []FrameSummary {
	decoder := ipc.NewFrameDecoder(src)
	rows := []FrameSummary{}

	for i := 0; ; i++ {
		payload, err := decoder.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			rows = append(rows, FrameSummary{
				Index:  i,
				Kind:   "error",
				Detail: err.Error(),
			})
			break
		}

		row := FrameSummary{Index: i, Bytes: len(payload)}
		record, err := ipc.DecodeFrame(payload)
		if err != nil {
			row.Kind = "undecodable"
			row.Detail = err.Error()
			rows = append(rows, row)
			continue
		}

		switch rec := record.(type) {
		case *phpunit.HelloFrame:
			row.Kind = phpunit.HelloType
			row.Detail = fmt.Sprintf("protocol=%s runner=%s/%s run_id=%s",
				rec.ProtocolVersion, rec.Runner, rec.RunnerVersion, rec.RunID)
		case *phpunit.GoodbyeFrame:
			row.Kind = phpunit.GoodbyeType
			row.Detail = fmt.Sprintf("tests=%d failures=%d errors=%d",
				rec.Summary.Tests, rec.Summary.Failures, rec.Summary.Errors)
		case *phpunit.AttachmentChunkFrame:
			row.Kind = "attachment_chunk"
			row.Seq = rec.Seq
			if verbose {
				row.Detail = fmt.Sprintf("attachment_id=%s is_last=%t data_bytes=%d",
					rec.AttachmentID, rec.IsLast, len(rec.Data))
			}
		case *phpunit.Notification:
			row.Kind = string(rec.Type)
			row.Seq = rec.Seq
			if verbose {
				row.Detail = notificationDetail(rec)
			}
		default:
			row.Kind = "unknown"
		}
		rows = append(rows, row)
	}

	return rows
}

func notificationDetail(n *phpunit.Notification) string {
	switch {
	case n.Suite != nil:
		return fmt.Sprintf("suite=%s", n.Suite.Name)
	case n.Test != nil:
		return fmt.Sprintf("test=%s::%s", n.Test.Class, n.Test.Name)
	case n.Attachment != nil:
		return fmt.Sprintf("attachment=%s title=%q", n.Attachment.AttachmentID, n.Attachment.Title)
	default:
		return ""
	}
}

func debugBootstrapCommand() *cli.Command {
	return &cli.Command{
		Name:  "bootstrap",
		Usage: "Show embedded PHP bootstrap information",
		Flags: append(ReadOnlyFlags(),
			&cli.BoolFlag{
				Name:  "extract",
				Usage: "Extract the bootstrap to disk and report its path",
			},
		),
		Action: debugBootstrapAction,
	}
}

// BootstrapInfo describes the embedded PHP bootstrap listener.
type BootstrapInfo struct {
	Embedded      bool   `json:"embedded"`
	Version       string `json:"version"`
	SizeBytes     int    `json:"size_bytes"`
	Checksum      string `json:"checksum"`
	ExtractedPath string `json:"extracted_path,omitempty"`
}

func debugBootstrapAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for debug commands
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}

	info := BootstrapInfo{
		Embedded:  bootstrap.IsEmbedded(),
		Version:   bootstrap.EmbeddedVersion(),
		SizeBytes: bootstrap.EmbeddedSize(),
		Checksum:  bootstrap.EmbeddedChecksum(),
	}

	// Extraction writes to the filesystem, so it stays behind a flag.
	if c.Bool("extract") {
		path, err := bootstrap.ExtractedPath()
		if err != nil {
			return cli.Exit(fmt.Sprintf("extract bootstrap: %v", err), 1)
		}
		info.ExtractedPath = path
	}

	return r.Render(info)
}
