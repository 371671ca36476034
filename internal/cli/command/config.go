package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/mzhnv/rollcall-go/internal/cli/config"
	"github.com/mzhnv/rollcall-go/internal/cli/connection"
	"github.com/mzhnv/rollcall-go/internal/cli/output"
	"github.com/mzhnv/rollcall-go/internal/infra/confloader"
	serverconfig "github.com/mzhnv/rollcall-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Client and server configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the server's running configuration (secrets masked)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "local",
						Usage: "Show the local CLI configuration instead",
					},
				},
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a server configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
			{
				Name:      "use",
				Usage:     "Select the default connection profile",
				ArgsUsage: "PROFILE",
				Action:    configUse,
			},
			{
				Name:      "set-profile",
				Usage:     "Create or update a connection profile",
				ArgsUsage: "PROFILE SERVER",
				Action:    configSetProfile,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	if c.Bool("local") {
		return configShowLocal(c)
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/config")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result map[string]any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, result)
}

func configShowLocal(c *cli.Context) error {
	mgr := profileManager(c)
	if mgr == nil {
		mgr = connection.NewManager()
		if err := mgr.Load(); err != nil {
			return err
		}
	}

	fmt.Printf("Config file: %s\n\n", mgr.Path())

	formatter := &output.YAMLFormatter{}
	return formatter.Format(os.Stdout, mgr.Config())
}

// configValidate checks a server config file without contacting a
// server: file syntax, unmarshal, and the same Verify the server runs
// at startup. Environment overrides are deliberately not merged so the
// file is judged on its own.
func configValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("configuration file path required")
	}

	cfg := serverconfig.Default()

	loader := confloader.NewLoader()
	if err := loader.LoadFile(path); err != nil {
		fmt.Printf("✗ %s: %v\n", path, err)
		return fmt.Errorf("validation failed")
	}
	if err := loader.Unmarshal(cfg); err != nil {
		fmt.Printf("✗ %s: %v\n", path, err)
		return fmt.Errorf("validation failed")
	}
	if err := serverconfig.Verify(cfg); err != nil {
		fmt.Printf("✗ %s: %v\n", path, err)
		return fmt.Errorf("validation failed")
	}

	fmt.Printf("✓ %s is valid.\n", path)
	return nil
}

func configUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile name required")
	}

	mgr := profileManager(c)
	if mgr == nil {
		return fmt.Errorf("profile manager not initialized")
	}

	if err := mgr.Use(name); err != nil {
		return err
	}

	profile, _ := mgr.Profile(name)
	fmt.Printf("✓ Now using profile %q (%s).\n", name, profile.Server)
	return nil
}

func configSetProfile(c *cli.Context) error {
	name := c.Args().Get(0)
	server := c.Args().Get(1)
	if name == "" || server == "" {
		return fmt.Errorf("profile name and server address required")
	}

	mgr := profileManager(c)
	if mgr == nil {
		return fmt.Errorf("profile manager not initialized")
	}

	if err := mgr.Set(name, cliconfig.Profile{Server: server}); err != nil {
		return err
	}

	fmt.Printf("✓ Profile %q set to %s.\n", name, server)
	return nil
}
