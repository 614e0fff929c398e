package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mdbridge/internal"
	pkgconfig "github.com/starford/mdbridge/pkg/config"
)

// loadConfig reads the config file. Commands that do not touch the vault
// fall back to defaults when the file is missing.
func loadConfig(cmd *cli.Command, optional bool) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.Load[internal.Config]
	if optional {
		load = pkgconfig.LoadOptional[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// readInput reads the file named by the first argument, or stdin for "-".
func readInput(cmd *cli.Command) ([]byte, error) {
	name := cmd.Args().First()
	if name == "" {
		return nil, fmt.Errorf("missing input file (use - for stdin)")
	}
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func convert(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	input, err := readInput(cmd)
	if err != nil {
		return err
	}
	flags := internal.ConvertFlags{
		Tree:        cmd.Bool("tree"),
		HTML:        cmd.Bool("html"),
		NoWikiLinks: cmd.Bool("no-wiki-links"),
		NoMetadata:  cmd.Bool("no-metadata"),
	}
	return internal.Convert(os.Stdout, input, flags, internal.WithConfig(cfg))
}

func detectCmd(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	input, err := readInput(cmd)
	if err != nil {
		return err
	}
	ok, err := internal.Detect(input, cmd.Bool("conservative"), internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	fmt.Println(ok)
	return nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	res, err := internal.Export(ctx, cmd.String("out"), cmd.Args().Slice(), internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("export error: %w", err)
	}
	fmt.Fprintf(os.Stderr, "exported %d notes to %s\n", len(res.Files), cmd.String("out"))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "mdbridge",
		Usage:  "Markdown and rich content tree converter for a Markdown vault",
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
				Usage:  "Run the HTTP API, event stream and vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: mcp,
			},
			{
				Name:      "convert",
				Usage:     "Normalize a Markdown (or HTML) file, or print its content tree",
				ArgsUsage: "<file|->",
				Action:    convert,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "tree", Usage: "Print the content tree as JSON"},
					&cli.BoolFlag{Name: "html", Usage: "Input is editor HTML"},
					&cli.BoolFlag{Name: "no-wiki-links", Usage: "Write wiki links as standard links"},
					&cli.BoolFlag{Name: "no-metadata", Usage: "Drop frontmatter from the output"},
				},
			},
			{
				Name:      "detect",
				Usage:     "Report whether a text file looks like Markdown",
				ArgsUsage: "<file|->",
				Action:    detectCmd,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "conservative", Usage: "Only accept explicit Markdown syntax"},
				},
			},
			{
				Name:      "export",
				Usage:     "Export vault notes as normalized Markdown",
				ArgsUsage: "[note paths...]",
				Action:    export,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Destination: a .zip archive or a directory",
						Required: true,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
