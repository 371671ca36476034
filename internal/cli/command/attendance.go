package command

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mzhnv/rollcall-go/internal/cli/connection"
	"github.com/mzhnv/rollcall-go/internal/cli/output"
)

// attendanceRecord mirrors the server's attendance record. The session
// name and raw token are hidden from tables; listing is always scoped
// to one session and the token only matters for audits.
type attendanceRecord struct {
	ParticipantID string `json:"participant_id"`
	SubmittedAt   int64  `json:"submitted_at" table:"time"`
	ID            string `json:"id" table:"wide"`
	TokenTS       int64  `json:"token_ts" table:"wide,time"`
	SessionName   string `json:"session_name" table:"-"`
	Token         string `json:"token" table:"-"`
}

// AttendanceCommand returns the attendance subcommand group.
func AttendanceCommand() *cli.Command {
	return &cli.Command{
		Name:    "attendance",
		Aliases: []string{"att"},
		Usage:   "Inspect and export attendance records",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List attendance records for a session",
				ArgsUsage: "SESSION",
				Action:    attendanceList,
			},
			{
				Name:      "export",
				Usage:     "Export attendance records as CSV",
				ArgsUsage: "SESSION",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Write to FILE instead of stdout",
					},
				},
				Action: attendanceExport,
			},
		},
	}
}

func attendanceList(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("session name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/sessions/"+url.PathEscape(name)+"/attendance")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Items []attendanceRecord `json:"items"`
		Total int                `json:"total"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	if err := formatter.Format(os.Stdout, result.Items); err != nil {
		return err
	}
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
	default:
		fmt.Printf("\nTotal: %d records\n", result.Total)
	}
	return nil
}

func attendanceExport(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("session name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	path := "/sessions/" + url.PathEscape(name) + "/attendance/export"

	file := c.String("file")
	if file == "" {
		_, err := client.Download(ctx, path, os.Stdout)
		return err
	}

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	spinner := output.NewSpinner(os.Stderr, "Exporting attendance...")
	spinner.Start()

	n, err := client.Download(ctx, path, f)
	if err != nil {
		spinner.Fail(fmt.Sprintf("Export failed: %v", err))
		f.Close()
		os.Remove(file)
		return err
	}
	if err := f.Close(); err != nil {
		spinner.Fail(fmt.Sprintf("Export failed: %v", err))
		return fmt.Errorf("write file: %w", err)
	}

	spinner.Success(fmt.Sprintf("Exported %d bytes to %s", n, file))
	return nil
}
