package dev

import (
	"context"
	"log/slog"
	"time"

	"github.com/lalilo-dev/lalilo/internal/config"
	"github.com/lalilo-dev/lalilo/internal/icon"
	"github.com/lalilo-dev/lalilo/internal/logger"
	"github.com/lalilo-dev/lalilo/internal/style"
)

// Toolchain holds the builders shared by the dev server and the export.
type Toolchain struct {
	Root    string
	Icons   *icon.Builder
	Styles  *style.Builder
	Loaders *LoaderRunner
	Logger  *slog.Logger
}

// NewToolchain wires the builders for cfg. A nil compiler uses the sass
// executable named in the configuration.
func NewToolchain(cfg *config.Config, compiler style.Compiler, log *slog.Logger) *Toolchain {
	if compiler == nil {
		compiler = style.NewSassCompiler(cfg.Style.Compiler, cfg.SCSSPath())
	}
	if log == nil {
		log = logger.Discard()
	}
	classifier := NewClassifier(cfg)
	return &Toolchain{
		Root: cfg.Dir(),
		Icons: &icon.Builder{
			SourceDir:   cfg.IconPath(),
			OutputDir:   cfg.SCSSPath(),
			Stylesheet:  cfg.Icon.Stylesheet,
			BaseImport:  cfg.Icon.BaseImport,
			FontBaseURL: cfg.Icon.FontBaseURL,
			DefaultSet:  cfg.Icon.DefaultSet,
			OutputExt:   cfg.Style.Ext,
			Now:         time.Now,
		},
		Styles: &style.Builder{
			SourceDir: cfg.SCSSPath(),
			OutputDir: cfg.CSSPath(),
			Ext:       cfg.Style.Ext,
			Compiler:  compiler,
		},
		Loaders: &LoaderRunner{
			Root:    cfg.Dir(),
			Entry:   cfg.EntryPath(),
			Loaders: classifier.Loaders,
		},
		Logger: log,
	}
}

// InitialBuild rebuilds everything from scratch, in order: empty the
// compiled stylesheet directory, build every icon set, compile every
// stylesheet, run the loaders. It stops at the first error.
//
// It runs before any watcher or queue is started, so nothing else writes
// to the output trees meanwhile.
func (t *Toolchain) InitialBuild(ctx context.Context) error {
	start := time.Now()

	if err := t.Styles.Clean(); err != nil {
		return err
	}
	t.Logger.Debug("cleared compiled stylesheets", "dir", relPath(t.Root, t.Styles.OutputDir))

	sets, err := t.Icons.Sources()
	if err != nil {
		return err
	}
	for _, src := range sets {
		if _, err := t.Icons.Build(src); err != nil {
			return err
		}
	}
	t.Logger.Info("icon sets built", "count", len(sets))

	sources, err := t.Styles.Sources()
	if err != nil {
		return err
	}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.Styles.Build(ctx, src); err != nil {
			return err
		}
	}
	t.Logger.Info("stylesheets compiled", "count", len(sources))

	if len(t.Loaders.Loaders) > 0 {
		if err := t.Loaders.Startup(ctx); err != nil {
			return err
		}
		t.Logger.Info("loaders finished", "count", len(t.Loaders.Loaders))
	}

	t.Logger.Debug("initial build finished", "took", time.Since(start))
	return nil
}
