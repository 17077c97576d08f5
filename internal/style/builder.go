// Package style compiles stylesheet sources into the compiled CSS tree.
package style

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

var bom = []byte("\uFEFF")

// Builder compiles files under SourceDir into OutputDir, mirroring the
// relative directory layout.
type Builder struct {
	SourceDir string
	OutputDir string

	// Ext is the source extension, e.g. ".scss".
	Ext string

	Compiler Compiler
}

// OutputFor returns the compiled path of a source file.
func (b *Builder) OutputFor(source string) (string, error) {
	rel, err := filepath.Rel(b.SourceDir, source)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("E302").WithDetail(source + " is outside " + b.SourceDir)
	}
	return filepath.Join(b.OutputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".css"), nil
}

// Sources lists every source file under SourceDir.
func (b *Builder) Sources() ([]string, error) {
	var files []string
	err := filepath.WalkDir(b.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == b.Ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New("E302").WithDetail(b.SourceDir).Wrap(err)
	}
	sort.Strings(files)
	return files, nil
}

// Build compiles source and writes the result. Compiler failures carry a
// *CompileError in their chain.
func (b *Builder) Build(ctx context.Context, source string) (string, error) {
	out, err := b.OutputFor(source)
	if err != nil {
		return "", err
	}

	css, err := b.Compiler.Compile(ctx, source)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			e := errors.New("E300").WithDetail(ce.Info).Wrap(ce)
			if ce.Line > 0 {
				e = e.WithLocation(ce.File, ce.Line, ce.Column)
			}
			return "", e
		}
		return "", errors.FromError(err, "E300")
	}
	css = bytes.TrimPrefix(css, bom)

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", errors.New("E303").WithDetail("cannot create " + filepath.Dir(out)).Wrap(err)
	}
	if err := os.WriteFile(out, css, 0644); err != nil {
		return "", errors.New("E303").WithDetail(out).Wrap(err)
	}
	return out, nil
}

// Remove deletes the compiled file of source. A missing file is not an
// error.
func (b *Builder) Remove(source string) (string, error) {
	out, err := b.OutputFor(source)
	if err != nil {
		return "", err
	}
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return "", errors.New("E303").WithDetail(out).Wrap(err)
	}
	return out, nil
}

// Clean empties OutputDir, keeping the directory itself.
func (b *Builder) Clean() error {
	entries, err := os.ReadDir(b.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(b.OutputDir, 0755)
		}
		return errors.New("E303").WithDetail(b.OutputDir).Wrap(err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(b.OutputDir, e.Name())); err != nil {
			return errors.New("E303").WithDetail(e.Name()).Wrap(err)
		}
	}
	return nil
}
