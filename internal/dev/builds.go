package dev

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/icon"
	"github.com/lalilo-dev/lalilo/internal/notify"
	"github.com/lalilo-dev/lalilo/internal/queue"
	"github.com/lalilo-dev/lalilo/internal/style"
)

// Build is one category-specific rebuild. The variants are IconBuild,
// StyleBuild and FileBuild.
type Build interface {
	Category() Category
	Source() string
	Build(ctx context.Context) queue.Result
}

// Task wraps a Build for the build queue.
func Task(b Build) queue.Task {
	return queue.Task{
		Category: b.Category().String(),
		Source:   b.Source(),
		Run:      b.Build,
	}
}

// IconBuild regenerates the stylesheet source of one icon set.
type IconBuild struct {
	Kind    ChangeKind
	Path    string
	Root    string
	Builder *icon.Builder
}

func (b *IconBuild) Category() Category { return CategoryIcon }
func (b *IconBuild) Source() string     { return relPath(b.Root, b.Path) }

// Build writes the generated source, or removes it when the set
// stylesheet was deleted.
func (b *IconBuild) Build(context.Context) queue.Result {
	if b.Kind == Deleted {
		out, err := b.Builder.Remove(b.Path)
		if err != nil {
			return queue.Fail("icon source removal failed", errorLine(err))
		}
		return queue.Ok(out, "removed "+relPath(b.Root, out))
	}

	out, err := b.Builder.Build(b.Path)
	if err != nil {
		return queue.Fail("icon build failed", "source "+b.Source(), errorLine(err))
	}
	return queue.Ok(out, "wrote "+relPath(b.Root, out))
}

// StyleBuild compiles one stylesheet source. Failures are forwarded to
// Notifier when it is set.
type StyleBuild struct {
	Kind     ChangeKind
	Path     string
	Root     string
	Builder  *style.Builder
	Notifier notify.Notifier
	Title    string
}

func (b *StyleBuild) Category() Category { return CategoryStyle }
func (b *StyleBuild) Source() string     { return relPath(b.Root, b.Path) }

// Build compiles the source, or removes the compiled file when the source
// was deleted.
func (b *StyleBuild) Build(ctx context.Context) queue.Result {
	if b.Kind == Deleted {
		out, err := b.Builder.Remove(b.Path)
		if err != nil {
			return b.fail("stylesheet removal failed", errorLine(err))
		}
		return queue.Ok(out, "removed "+relPath(b.Root, out))
	}

	out, err := b.Builder.Build(ctx, b.Path)
	if err != nil {
		var ce *style.CompileError
		if errors.As(err, &ce) {
			return b.fail("stylesheet compile failed",
				"file "+b.Source(),
				fmt.Sprintf("line %d, column %d", ce.Line, ce.Column),
				ce.Info)
		}
		return b.fail("stylesheet build failed", "source "+b.Source(), errorLine(err))
	}
	return queue.Ok(out, "wrote "+relPath(b.Root, out))
}

func (b *StyleBuild) fail(messages ...string) queue.Result {
	if b.Notifier != nil {
		body := messages[1:]
		title := b.Title
		if title == "" {
			title = "lalilo"
		}
		go b.Notifier.Notify(strings.Join(body, "\n"), title+": "+messages[0])
	}
	return queue.Fail(messages...)
}

// FileBuild records a watched file change for the next reload.
type FileBuild struct {
	Kind       ChangeKind
	Path       string
	Root       string
	Aggregator *Aggregator
}

func (b *FileBuild) Category() Category { return CategoryFile }
func (b *FileBuild) Source() string     { return relPath(b.Root, b.Path) }

// Build never fails.
func (b *FileBuild) Build(context.Context) queue.Result {
	label := ChangeLabel(b.Kind, b.Root, b.Path)
	b.Aggregator.Record(label)
	return queue.Ok("", label)
}

// errorLine returns a one-line description of a build error.
func errorLine(err error) string {
	var le *errors.Error
	if errors.As(err, &le) && le.Wrapped != nil {
		return le.FormatCompact() + ": " + le.Wrapped.Error()
	}
	return err.Error()
}

func relPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
