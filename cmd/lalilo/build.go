package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lalilo-dev/lalilo/internal/build"
	"github.com/lalilo-dev/lalilo/internal/config"
	"github.com/lalilo-dev/lalilo/internal/dev"
)

func buildCmd(logs *logFlags) *cobra.Command {
	var (
		dest    string
		env     string
		baseURL string
		open    bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Export the site for deployment",
		Long: `Export the site for deployment.

This command:
  • Builds every icon set and stylesheet
  • Runs the loaders over the entry directory
  • Renders templates to HTML
  • Copies the exported files into build.dest
  • Writes manifest.json with content fingerprints

Examples:
  lalilo build
  lalilo build --dest=public
  lalilo build -E Production -U https://example.com/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(dest, env, baseURL, open, logs)
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Export directory (default from lalilo.json)")
	cmd.Flags().StringVarP(&env, "env", "E", "", "Renderer environment (default from lalilo.json)")
	cmd.Flags().StringVarP(&baseURL, "base-url", "U", "", "Base URL passed to the renderer")
	cmd.Flags().BoolVarP(&open, "open", "o", false, "Open the export folder when done")

	return cmd
}

func runBuild(dest, env, baseURL string, open bool, logs *logFlags) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	if dest != "" {
		cfg.Build.Dest = dest
	}
	if env != "" {
		cfg.Template.Env = env
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Println("  Exporting for deployment...")
	fmt.Println()

	builder := build.New(cfg, build.Options{
		Env:     cfg.Template.Env,
		BaseURL: baseURL,
		Logger:  logs.logger(),
		OnProgress: func(step string) {
			info(step)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	success("Exported %d files in %s", len(result.Manifest), result.Duration.Round(1000000))
	if result.Rendered > 0 {
		info("%d templates rendered", result.Rendered)
	}
	info("Output: %s", result.Dest)
	fmt.Println()

	if open || cfg.Build.AutoOpenFolder {
		if err := dev.OpenURL(result.Dest); err != nil {
			warn("Cannot open %s: %v", result.Dest, err)
		}
	}
	return nil
}
