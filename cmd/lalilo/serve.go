package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lalilo-dev/lalilo/internal/config"
	"github.com/lalilo-dev/lalilo/internal/dev"
	"github.com/lalilo-dev/lalilo/internal/telemetry"
)

type serveFlags struct {
	port        int
	env         string
	baseURL     string
	openBrowser bool
}

func serveCmd(logs *logFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"dev"},
		Short:   "Start the development server",
		Long: `Start the development server with live reload.

The server runs a full build, then watches the entry directory:
icon sets and stylesheets are rebuilt after a short quiet period,
loaders run for the files they match, and connected browsers
reload once changes settle.

Examples:
  lalilo serve
  lalilo serve --port=8080
  lalilo serve -E Staging -U https://staging.example.com/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags, logs)
		},
	}

	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Preferred port (default from lalilo.json)")
	cmd.Flags().StringVarP(&flags.env, "env", "E", "", "Renderer environment (Development, Testing, Staging, Production)")
	cmd.Flags().StringVarP(&flags.baseURL, "base-url", "U", "", "Base URL passed to the renderer")
	cmd.Flags().BoolVarP(&flags.openBrowser, "open", "o", false, "Open browser on start")

	return cmd
}

func runServe(flags *serveFlags, logs *logFlags) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	if flags.port > 0 {
		cfg.Server.Port.Default = flags.port
		cfg.Server.Port.Min = min(cfg.Server.Port.Min, flags.port)
		cfg.Server.Port.Max = max(cfg.Server.Port.Max, flags.port)
	}
	if flags.env != "" {
		cfg.Template.Env = flags.env
	}
	if flags.baseURL != "" {
		cfg.Template.BaseURL = flags.baseURL
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	printBanner()
	fmt.Println("  serve")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := dev.NewServer(dev.ServerOptions{
		Config:      cfg,
		Logger:      logs.logger(),
		Metrics:     telemetry.NewMetrics(),
		OpenBrowser: flags.openBrowser,
		OnReady: func(url string) {
			success("Serving %s", url)
			info("Environment: %s", cfg.Template.Env)
			info("Press Ctrl+C to stop")
			fmt.Println()
		},
	})

	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Println("\n  Shutting down...")
	return nil
}
