package dev

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/proc"
	"github.com/lalilo-dev/lalilo/internal/queue"
)

// LoaderRunner runs external loaders. Incremental runs go through their
// own queue, one at a time, independent of the build queue.
type LoaderRunner struct {
	Root    string
	Entry   string
	Loaders []Loader
	Queue   *queue.Serializer
}

// Dispatch enqueues one run of l for a changed file.
func (r *LoaderRunner) Dispatch(l Loader, kind ChangeKind, file string) error {
	return r.Queue.Enqueue(r.Task(l, kind.Verb(), file))
}

// Task returns the queue task running l for file with the given --type.
func (r *LoaderRunner) Task(l Loader, verb, file string) queue.Task {
	return queue.Task{
		Category: CategoryLoader.String(),
		Source:   relPath(r.Root, file),
		Run: func(ctx context.Context) queue.Result {
			if _, err := r.run(ctx, l, "--file", file, "--type", verb); err != nil {
				return queue.Fail(l.Title+" failed", errorLine(err))
			}
			return queue.Ok("", l.Title+" finished")
		},
	}
}

// Startup runs every loader once over the whole entry directory: loaders
// without an extension filter once with --entry, the others once per
// matching file with --type first. The first failure is returned.
func (r *LoaderRunner) Startup(ctx context.Context) error {
	var filtered []Loader
	for _, l := range r.Loaders {
		if l.Ext != "" {
			filtered = append(filtered, l)
			continue
		}
		if _, err := r.run(ctx, l); err != nil {
			return err
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	files, err := r.entryFiles()
	if err != nil {
		return err
	}
	for _, l := range filtered {
		for _, file := range files {
			if !l.Matches(file) {
				continue
			}
			if _, err := r.run(ctx, l, "--file", file, "--type", "first"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *LoaderRunner) run(ctx context.Context, l Loader, args ...string) (proc.Output, error) {
	argv := append([]string{"--dir", r.Root, "--entry", r.Entry}, args...)
	spec := proc.Spec{Name: l.Exec, Args: argv, Dir: r.Root}
	if l.Runner != "" {
		spec.Name = l.Runner
		spec.Args = append([]string{l.Exec}, argv...)
	}

	out, err := proc.Run(ctx, spec)
	if err != nil {
		return out, errors.New("E305").WithDetail(l.Title).Wrap(err)
	}
	return out, nil
}

func (r *LoaderRunner) entryFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.Entry, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New("E302").WithDetail(r.Entry).Wrap(err)
	}
	sort.Strings(files)
	return files, nil
}
