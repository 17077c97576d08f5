package build

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/lalilo-dev/lalilo/internal/config"
	"github.com/lalilo-dev/lalilo/internal/dev"
	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/logger"
	"github.com/lalilo-dev/lalilo/internal/render"
	"github.com/lalilo-dev/lalilo/internal/style"
)

// ManifestName is the manifest file written into the export.
const ManifestName = "manifest.json"

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Dest is the export directory.
	Dest string

	// Manifest maps every exported path, relative to Dest, to the blake3
	// fingerprint of its content.
	Manifest map[string]string

	// Rendered is the number of templates rendered to HTML.
	Rendered int
}

// Options configures the builder.
type Options struct {
	// Env overrides template.env for rendered templates.
	Env string

	// BaseURL overrides template.baseURL.
	BaseURL string

	// Compiler overrides the sass executable.
	Compiler style.Compiler

	// Renderer overrides the template command.
	Renderer render.Renderer

	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Entry is one planned export.
type Entry struct {
	// Source is the absolute source path.
	Source string

	// Target is the slash-separated path relative to the export directory.
	Target string

	// Render is set for templates.
	Render bool
}

// Builder handles production builds.
type Builder struct {
	config  *config.Config
	options Options
	log     *slog.Logger
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	if options.Env == "" {
		options.Env = cfg.Template.Env
	}
	if options.BaseURL == "" {
		options.BaseURL = cfg.Template.BaseURL
	}
	options.BaseURL = config.NormalizeBaseURL(options.BaseURL)
	if options.Renderer == nil {
		options.Renderer = &render.Command{
			Interpreter: cfg.Template.Command,
			Script:      cfg.TemplateEntryPath(),
			MaxBuffer:   cfg.Template.MaxBuffer,
		}
	}
	log := options.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Builder{
		config:  cfg,
		options: options,
		log:     log,
	}
}

// Build performs the full build and exports the project. Any failure
// aborts the export.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	dest := b.config.BuildDestPath()

	if err := b.config.CheckBuildDest(); err != nil {
		return nil, err
	}

	b.progress("Building icons and stylesheets...")
	tc := dev.NewToolchain(b.config, b.options.Compiler, b.log)
	if err := tc.InitialBuild(ctx); err != nil {
		return nil, err
	}

	b.progress("Cleaning output directory...")
	if err := b.Clean(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, errors.New("E303").WithDetail(dest).Wrap(err)
	}
	if err := os.WriteFile(filepath.Join(dest, ".gitignore"), []byte("*\n"), 0644); err != nil {
		return nil, errors.New("E303").WithDetail(dest).Wrap(err)
	}

	b.progress("Scanning sources...")
	entries, err := b.Plan()
	if err != nil {
		return nil, err
	}

	b.progress("Exporting files...")
	result := &Result{Dest: dest, Manifest: make(map[string]string, len(entries))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if n := b.config.Build.Concurrency; n > 0 {
		g.SetLimit(n)
	}
	for _, e := range entries {
		e := e
		g.Go(func() error {
			sum, err := b.export(gctx, e, dest)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Manifest[e.Target] = sum
			if e.Render {
				result.Rendered++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.progress("Writing manifest...")
	if err := writeManifest(dest, result.Manifest); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	b.log.Info("export finished", "dest", dest, "files", len(result.Manifest), "rendered", result.Rendered, "took", result.Duration)
	return result, nil
}

// Plan lists the files an export writes, sorted by source path.
func (b *Builder) Plan() ([]Entry, error) {
	cfg := b.config
	entry := cfg.EntryPath()
	htmlDir := cfg.HTMLPath()
	dest := filepath.Clean(cfg.BuildDestPath())
	ignore := cfg.BuildIgnorePaths()
	templateExt := strings.ToLower(cfg.Template.Ext)

	exts := make(map[string]bool, len(cfg.Build.Exts))
	for _, ext := range cfg.Build.Exts {
		exts[strings.ToLower(ext)] = true
	}
	include := make(map[string]bool, len(cfg.Build.IncludeFiles))
	for _, f := range cfg.BuildIncludePaths() {
		include[filepath.Clean(f)] = true
	}

	var entries []Entry
	seen := make(map[string]string)
	err := filepath.WalkDir(entry, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dest || matchesDir(path, ignore) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		isPage := ext == ".html"
		isTemplate := templateExt != "" && ext == templateExt
		if isTemplate && !cfg.Template.Enabled {
			return nil
		}
		if !exts[ext] && !include[path] {
			return nil
		}

		base := entry
		if isPage || isTemplate {
			if !within(path, htmlDir) {
				return nil
			}
			base = htmlDir
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		target := filepath.ToSlash(rel)
		if isTemplate {
			target = strings.TrimSuffix(target, filepath.Ext(target)) + ".html"
		}

		if prev, ok := seen[target]; ok {
			b.log.Warn("export target already planned", "target", target, "kept", prev, "skipped", path)
			return nil
		}
		seen[target] = path
		entries = append(entries, Entry{Source: path, Target: target, Render: isTemplate})
		return nil
	})
	if err != nil {
		return nil, errors.New("E302").WithDetail(entry).Wrap(err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Source < entries[j].Source })
	return entries, nil
}

// export writes one entry and returns its fingerprint.
func (b *Builder) export(ctx context.Context, e Entry, dest string) (string, error) {
	out := filepath.Join(dest, filepath.FromSlash(e.Target))
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", errors.New("E303").WithDetail(filepath.Dir(out)).Wrap(err)
	}

	if !e.Render {
		return copyFile(e.Source, out)
	}

	html, err := b.options.Renderer.Render(ctx, render.Request{
		Root:      b.config.EntryPath(),
		ConfigDir: b.config.TemplateConfigPath(),
		File:      e.Source,
		Env:       b.options.Env,
		BaseURL:   b.options.BaseURL,
	})
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(out, []byte(html), 0644); err != nil {
		return "", errors.New("E303").WithDetail(out).Wrap(err)
	}
	sum := blake3.Sum256([]byte(html))
	return hex.EncodeToString(sum[:]), nil
}

// writeManifest writes the fingerprint manifest.
func writeManifest(dest string, manifest map[string]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dest, ManifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E303").WithDetail(path).Wrap(err)
	}
	return nil
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// copyFile copies src to dst and returns the fingerprint of the copied
// bytes.
func copyFile(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", errors.New("E302").WithDetail(src).Wrap(err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", errors.New("E303").WithDetail(dst).Wrap(err)
	}

	h := blake3.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		out.Close()
		return "", errors.New("E303").WithDetail(dst).Wrap(err)
	}
	if err := out.Close(); err != nil {
		return "", errors.New("E303").WithDetail(dst).Wrap(err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	dest := b.config.BuildDestPath()
	if err := os.RemoveAll(dest); err != nil {
		return errors.New("E303").WithDetail(dest).Wrap(err)
	}
	return nil
}

func matchesDir(path string, dirs []string) bool {
	for _, dir := range dirs {
		if within(path, dir) {
			return true
		}
	}
	return false
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
