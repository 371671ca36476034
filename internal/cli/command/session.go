package command

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mzhnv/rollcall-go/internal/cli/connection"
	"github.com/mzhnv/rollcall-go/internal/cli/output"
)

// sessionPayload mirrors the server's session representation. Column
// selection for table output rides on the table tags.
type sessionPayload struct {
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	StartedAt int64  `json:"started_at" table:"time"`
	EndedAt   int64  `json:"ended_at" table:"time"`
	ExpiresAt int64  `json:"expires_at" table:"wide,time"`
	Version   uint64 `json:"version" table:"wide"`
}

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Manage attendance sessions",
		Subcommands: []*cli.Command{
			{
				Name:      "start",
				Usage:     "Start a session (restarts it if the name exists)",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Usage:   "Auto-expiry TTL (e.g., 45m, 2h); omit to keep the session open until ended",
					},
				},
				Action: sessionStart,
			},
			{
				Name:      "end",
				Usage:     "End a session",
				ArgsUsage: "NAME",
				Action:    sessionEnd,
			},
			{
				Name:  "list",
				Usage: "List sessions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status: active or ended",
					},
					&cli.StringFlag{
						Name:  "sort",
						Usage: "Sort by start time: desc (default) or asc",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Page size (max 100)",
					},
				},
				Action: sessionList,
			},
			{
				Name:      "get",
				Usage:     "Show session details",
				ArgsUsage: "NAME",
				Action:    sessionGet,
			},
			{
				Name:      "token",
				Usage:     "Show the session's current token",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "follow",
						Aliases: []string{"f"},
						Usage:   "Keep printing tokens as they rotate (Ctrl-C to stop)",
					},
				},
				Action: sessionToken,
			},
		},
	}
}

func sessionStart(c *cli.Context) error {
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

	body := map[string]any{"name": name}
	if c.IsSet("ttl") {
		body["ttl_seconds"] = int64(c.Duration("ttl").Seconds())
	}

	resp, err := client.Post(ctx, "/sessions", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Session   sessionPayload `json:"session"`
		Restarted bool           `json:"restarted"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	verb := "started"
	if result.Restarted {
		verb = "restarted"
	}
	fmt.Printf("✓ Session %q %s.\n", result.Session.Name, verb)
	if result.Session.ExpiresAt > 0 {
		fmt.Printf("  Expires: %s\n", time.Unix(result.Session.ExpiresAt, 0).Format("2006-01-02 15:04:05"))
	}
	return nil
}

func sessionEnd(c *cli.Context) error {
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

	resp, err := client.Post(ctx, "/sessions/"+url.PathEscape(name)+"/end", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Ended   bool            `json:"ended"`
		Session *sessionPayload `json:"session"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if result.Ended {
		fmt.Printf("✓ Session %q ended.\n", name)
	} else {
		fmt.Printf("Session %q was not active.\n", name)
	}
	return nil
}

func sessionList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	params := url.Values{}
	if status := c.String("status"); status != "" {
		params.Set("status", status)
	}
	if sort := c.String("sort"); sort != "" {
		params.Set("sort", sort)
	}
	if page := c.Int("page"); page > 0 {
		params.Set("page", fmt.Sprintf("%d", page))
	}
	if pageSize := c.Int("page-size"); pageSize > 0 {
		params.Set("page_size", fmt.Sprintf("%d", pageSize))
	}

	path := "/sessions"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := client.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Items []sessionPayload `json:"items"`
		Total int              `json:"total"`
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
		fmt.Printf("\nTotal: %d sessions\n", result.Total)
	}
	return nil
}

func sessionGet(c *cli.Context) error {
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

	resp, err := client.Get(ctx, "/sessions/"+url.PathEscape(name))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result sessionPayload
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, result)
}

// tokenPayload mirrors the token poll endpoint's response.
type tokenPayload struct {
	Token     string `json:"token"`
	Interval  int64  `json:"interval"`
	TokenTS   int64  `json:"token_ts" table:"time"`
	RotatesIn int64  `json:"rotates_in"`
	ExpiresAt int64  `json:"expires_at" table:"time"`
	MarkURL   string `json:"mark_url" table:"wide"`
}

func sessionToken(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("session name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	if !c.Bool("follow") {
		tok, err := fetchToken(context.Background(), client, name)
		if err != nil {
			return err
		}

		flags := ParseGlobalFlags(c)
		switch output.Format(flags.Output) {
		case output.FormatJSON, output.FormatYAML:
			formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
			return formatter.Format(os.Stdout, tok)
		default:
			printToken(tok)
			return nil
		}
	}

	// Follow mode re-polls each rotation until interrupted, the same
	// loop a presenter view runs.
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	for {
		tok, err := fetchToken(ctx, client, name)
		if err != nil {
			return err
		}
		printToken(tok)

		wait := time.Duration(tok.RotatesIn) * time.Second
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func fetchToken(ctx context.Context, client *connection.Client, name string) (*tokenPayload, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := client.Get(reqCtx, "/sessions/"+url.PathEscape(name)+"/token")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var tok tokenPayload
	if err := connection.ParseResponse(resp, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func printToken(tok *tokenPayload) {
	fmt.Printf("%s  (rotates in %ds)\n", tok.Token, tok.RotatesIn)
}
