// Package command provides CLI command definitions for rollcall-cli.
package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mzhnv/rollcall-go/internal/cli/connection"
	"github.com/mzhnv/rollcall-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "rollcall-cli",
		Usage:   "RollCall attendance management tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SessionCommand(),
			AttendanceCommand(),
			SystemCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			mgr := connection.NewManager()
			if err := mgr.Load(); err != nil {
				PrintError("cli config ignored: %v", err)
			}
			c.App.Metadata["profiles"] = mgr
			return nil
		},
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "RollCall server address (e.g., 127.0.0.1:5080)",
			EnvVars: []string{"ROLLCALL_SERVER"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Connection profile from the CLI config file",
			EnvVars: []string{"ROLLCALL_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log each request to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server  string
	Profile string

	Output string // table, json, yaml
	Wide   bool

	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:  c.String("server"),
		Profile: c.String("profile"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// profileManager retrieves the profile manager stored by the Before
// hook.
func profileManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata["profiles"].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// EnsureConnected resolves the target server and returns an HTTP
// client for it. An explicit --server (flag or environment) wins over
// the profile; otherwise the name from --profile, the config file's
// current profile, and the default server are tried in that order.
func EnsureConnected(c *cli.Context) (*connection.Client, error) {
	flags := ParseGlobalFlags(c)

	server := flags.Server
	if server == "" {
		if mgr := profileManager(c); mgr != nil {
			resolved, err := mgr.Resolve(flags.Profile)
			if err != nil {
				return nil, err
			}
			server = resolved
		}
	}
	if server == "" {
		server = "127.0.0.1:5080"
	}

	return connection.NewClient(server, connection.WithVerbose(flags.Verbose)), nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
