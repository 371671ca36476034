package command

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mzhnv/rollcall-go/internal/cli/connection"
	"github.com/mzhnv/rollcall-go/internal/cli/output"
	"github.com/mzhnv/rollcall-go/internal/infra/buildinfo"
)

// healthPayload mirrors the health endpoint's response.
type healthPayload struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server status commands",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: systemHealth,
			},
			{
				Name:   "version",
				Usage:  "Show client and server versions",
				Action: systemVersion,
			},
			{
				Name:  "metrics",
				Usage: "Dump server metrics in Prometheus text format",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "match",
						Aliases: []string{"m"},
						Usage:   "Only print lines containing this substring",
					},
				},
				Action: systemMetrics,
			},
		},
	}
}

func systemHealth(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		PrintError("health check failed: %v", err)
		return fmt.Errorf("server unreachable")
	}

	var result healthPayload
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, result)
	default:
		if result.Status != "healthy" {
			fmt.Printf("✗ Server is unhealthy: %s\n", result.Status)
			return fmt.Errorf("server unhealthy")
		}
		fmt.Printf("✓ Server is healthy\n")
		fmt.Printf("  Target:  %s\n", client.BaseURL())
		fmt.Printf("  Version: %s\n", result.Version)
		fmt.Printf("  Uptime:  %s\n", (time.Duration(result.UptimeSeconds) * time.Second).String())
		return nil
	}
}

func systemVersion(c *cli.Context) error {
	fmt.Printf("Client: rollcall-cli %s\n", buildinfo.String())

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Server version is best effort; the client version still prints
	// when the server is down.
	resp, err := client.Get(ctx, "/health")
	if err != nil {
		fmt.Printf("Server: unreachable (%s)\n", client.BaseURL())
		return nil
	}

	var result healthPayload
	if err := connection.ParseResponse(resp, &result); err != nil {
		fmt.Printf("Server: unreachable (%s)\n", client.BaseURL())
		return nil
	}

	fmt.Printf("Server: rollcall-server %s at %s\n", result.Version, client.BaseURL())
	return nil
}

func systemMetrics(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/metrics")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return connection.ParseResponse(resp, nil)
	}
	defer resp.Body.Close()

	match := c.String("match")
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if match != "" && !strings.Contains(line, match) {
			continue
		}
		fmt.Println(line)
	}
	return scanner.Err()
}
