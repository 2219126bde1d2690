package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/chordbook/internal"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), true)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), true)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:   "chordbook",
		Usage:  "Chord sheet vault: Ultimate Guitar to ChordPro conversion, rendering and search",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server and vault watcher",
				Action: run,
			},
			{
				Name:      "classify",
				Usage:     "Print whether a chord sheet is tablature or annotated",
				ArgsUsage: "<file|->",
				Action:    classifyAction,
			},
			{
				Name:      "convert",
				Usage:     "Convert a tablature chord sheet to ChordPro",
				ArgsUsage: "<file|->",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "remote",
						Usage: "Post to the configured convert endpoint instead of converting locally",
					},
				},
				Action: convertAction,
			},
			{
				Name:      "render",
				Usage:     "Render a chord sheet to an HTML fragment",
				ArgsUsage: "<file|->",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "transpose",
						Aliases: []string{"t"},
						Usage:   "Shift every chord by n semitones (-11..11)",
					},
				},
				Action: renderAction,
			},
			{
				Name:      "page",
				Usage:     "Run a document-ready pass over an HTML page and print the result",
				ArgsUsage: "<file.html|->",
				Action:    pageAction,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: runMCP,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
