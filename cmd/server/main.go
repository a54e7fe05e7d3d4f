package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dfryer1193/postpage/internal"
	pkgconfig "github.com/dfryer1193/postpage/shared/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func importPosts(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	report, err := internal.Import(ctx, cmd.Args().First(), cmd.Bool("full"), opts...)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("imported %d, unchanged %d, removed %d, skipped %d\n",
		report.Imported, report.Unchanged, report.Removed, report.Skipped)
	return nil
}

func renderPost(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one post id")
	}

	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RenderPost(ctx, cmd.Args().First(), os.Stdout, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "postpage",
		Usage:  "Serve Markdown blog posts as rendered HTML pages",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serve,
			},
			{
				Name:      "import",
				Usage:     "Import posts from a directory, or the configured source, into the database",
				ArgsUsage: "[dir]",
				Action:    importPosts,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "full",
						Usage: "Re-import every post, even unchanged ones",
					},
				},
			},
			{
				Name:      "render",
				Usage:     "Render a single post page as JSON",
				ArgsUsage: "<id>",
				Action:    renderPost,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
