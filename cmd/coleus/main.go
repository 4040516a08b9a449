package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"

	"github.com/starford/coleus/internal"
	pkgconfig "github.com/starford/coleus/pkg/config"
)

var version = "dev"

type runner func(ctx context.Context, opts ...internal.Option) error

// action loads the configuration, applies flag overrides and runs fn.
func action(fn runner) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if cmd.IsSet("strict") {
			cfg.Build.Strict = cmd.Bool("strict")
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}

		if err := fn(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}

		return nil
	}
}

func main() {
	strictFlag := &cli.BoolFlag{
		Name:  "strict",
		Usage: "Fail the build on any unresolved category, link or anchor",
	}

	cmd := &cli.Command{
		Name:    "coleus",
		Usage:   "Preprocess a Markdown book corpus into mdBook sources with numbered outline and resolved cross-references",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.toml or .yaml)",
				DefaultText: "coleus.toml",
				Value:       "coleus.toml",
				Sources:     cli.EnvVars("COLEUS_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build and publish the book once, printing diagnostics",
				Flags:  []cli.Flag{strictFlag},
				Action: action(internal.Build),
			},
			{
				Name:   "outline",
				Usage:  "Build the book and print its outline as JSON",
				Flags:  []cli.Flag{strictFlag},
				Action: action(internal.Outline),
			},
			{
				Name:   "serve",
				Usage:  "Build the book and serve the preview API, rebuilding on source changes",
				Flags:  []cli.Flag{strictFlag},
				Action: action(internal.Run),
			},
			{
				Name:   "mcp",
				Usage:  "Build the book and expose it to LLM tools over MCP stdio",
				Action: action(internal.ServeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
