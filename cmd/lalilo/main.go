// Command lalilo is the development server and export tool for lalilo
// projects.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/logger"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ┌─┐┬  ┬┬  ┌─┐
  ║  ├─┤│  ││  │ │
  ╩═╝┴ ┴┴─┘┴┴─┘└─┘
`

// logFlags are the persistent logging flags.
type logFlags struct {
	level   string
	format  string
	noColor bool
}

func (f *logFlags) logger() *slog.Logger {
	if f.noColor {
		errors.DisableColors()
	}
	return logger.New(logger.Config{
		Format:  f.format,
		Level:   logger.ParseLevel(f.level),
		NoColor: f.noColor,
	})
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	logs := &logFlags{}

	rootCmd := &cobra.Command{
		Use:   "lalilo",
		Short: "Incremental builds and live reload for static sites",
		Long: `Lalilo watches a site's sources, rebuilds icon fonts and
stylesheets as they change, and serves the site with live reload.

  • Debounced, serialized icon and stylesheet builds
  • Template rendering through an external renderer
  • Coalesced browser reloads over WebSocket
  • Batch export for deployment`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logs.level, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logs.format, "log-format", logger.FormatPretty, "Log format (pretty, json)")
	rootCmd.PersistentFlags().BoolVar(&logs.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		serveCmd(logs),
		buildCmd(logs),
		initCmd(),
		versionCmd(),
	)
	return rootCmd
}

// printBanner prints the Lalilo ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
