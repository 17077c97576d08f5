package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lalilo-dev/lalilo/internal/config"
	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/templates"
)

func initCmd() *cobra.Command {
	var entry, starter string

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create lalilo.json with default settings",
		Long: `Create lalilo.json with default settings and the source
directories it names.

Examples:
  lalilo init
  lalilo init my-site --entry=site
  lalilo init my-site --template=full

Templates:
  minimal  One page and one stylesheet (default)
  full     Several pages, stylesheet partials and an icon set folder
  none     Configuration and empty directories only`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, entry, starter)
		},
	}

	cmd.Flags().StringVar(&entry, "entry", config.DefaultEntry, "Source directory")
	cmd.Flags().StringVarP(&starter, "template", "t", "minimal", "Starter template (minimal, full, none)")

	return cmd
}

func runInit(dir, entry, starter string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if config.Exists(root) {
		return errors.New("E106").
			WithDetail(filepath.Join(root, config.ConfigFileName)).
			WithSuggestion("Edit the existing file or remove it first")
	}

	var tmpl *templates.Template
	if starter != "none" {
		tmpl, err = templates.Get(starter)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return errors.New("E102").WithDetail(root).Wrap(err)
	}

	cfg := config.New()
	cfg.Entry = entry
	path := filepath.Join(root, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	success("Created %s", path)
	if tmpl != nil {
		created, err := tmpl.Create(root, templates.Config{
			ProjectName: filepath.Base(root),
			Entry:       cfg.Entry,
			Dest:        cfg.Build.Dest,
		})
		if err != nil {
			return err
		}
		for _, f := range created {
			rel, _ := filepath.Rel(root, f)
			success("Created %s", rel)
		}
	}
	info("Entry directory: %s", cfg.EntryPath())
	info("Run 'lalilo serve' to start the development server")
	return nil
}
