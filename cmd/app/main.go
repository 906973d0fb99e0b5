package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/luhmann/internal"
	"github.com/starford/luhmann/internal/navigator"
	"github.com/starford/luhmann/internal/noteservice"
	pkgconfig "github.com/starford/luhmann/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "luhmann",
		Usage: "Navigate a note vault by the Luhmann IDs in its file names",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "view",
				Usage:   "View buffer the navigation commands act on",
				Value:   noteservice.DefaultView,
				Sources: cli.EnvVars("LUHMANN_VIEW"),
			},
		},
		Commands: append([]*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live index updates",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: serveMCP,
			},
		}, commands()...),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// commands returns the vault commands, which print to stdout and log to stderr.
func commands() []*cli.Command {
	cmds := []*cli.Command{
		{
			Name:   "sync",
			Usage:  "Rebuild the index from the vault",
			Action: withWorkspace(runSync),
		},
		{
			Name:   "index",
			Usage:  "List every note with a Luhmann ID in index order",
			Action: withWorkspace(runIndex),
		},
		{
			Name:   "tree",
			Usage:  "Print the Luhmann hierarchy as a tree",
			Action: withWorkspace(runTree),
		},
		{
			Name:   "show",
			Usage:  "Print the view buffer",
			Action: withWorkspace(runShow),
		},
	}
	for _, c := range navigator.Commands {
		if c == navigator.CommandDepth {
			continue
		}
		cmds = append(cmds, &cli.Command{
			Name:   string(c),
			Usage:  navigationUsage[c],
			Action: withWorkspace(navigate(c)),
		})
	}
	return append(cmds,
		&cli.Command{
			Name:      "depth",
			Usage:     navigationUsage[navigator.CommandDepth],
			ArgsUsage: "N",
			Action:    withWorkspace(runDepth),
		},
		&cli.Command{
			Name:      "cursor",
			Usage:     "Move the view cursor to line N (0-based)",
			ArgsUsage: "N",
			Action:    withWorkspace(runCursor),
		},
		&cli.Command{
			Name:      "open",
			Usage:     "Make a note the active note by Luhmann ID, primary ID or fuzzy title",
			ArgsUsage: "QUERY",
			Action:    withWorkspace(runOpen),
		},
		&cli.Command{
			Name:      "candidates",
			Usage:     "List open candidates grouped by root",
			ArgsUsage: "[QUERY]",
			Action:    withWorkspace(runCandidates),
		},
		&cli.Command{
			Name:  "new",
			Usage: "Create a note as the next child of a parent ID",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent Luhmann ID, empty for top level"},
				&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Note title", Required: true},
				&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "Markdown body"},
			},
			Action: withWorkspace(runNew),
		},
		&cli.Command{
			Name:      "assign",
			Usage:     "Rename a note so it carries a Luhmann ID",
			ArgsUsage: "PATH ID",
			Action:    withWorkspace(runAssign),
		},
		&cli.Command{
			Name:      "search",
			Usage:     "Full-text search",
			ArgsUsage: "QUERY",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum results"},
				&cli.StringFlag{Name: "branch", Usage: "Only search this Luhmann ID and its descendants"},
			},
			Action: withWorkspace(runSearch),
		},
	)
}

var navigationUsage = map[navigator.Command]string{
	navigator.CommandTop:     "Show top-level notes",
	navigator.CommandAll:     "Show every note with a Luhmann ID",
	navigator.CommandForward: "Show the cursor note with its siblings and children",
	navigator.CommandBack:    "Go one level up from the first line",
	navigator.CommandUnfold:  "Show the whole branch under the cursor note's root",
	navigator.CommandDepth:   "Keep only IDs with exactly N segments",
	navigator.CommandCurrent: "Show every note with the cursor on the active note",
}
