package dev

import (
	"context"
	"log/slog"

	"github.com/lalilo-dev/lalilo/internal/icon"
	"github.com/lalilo-dev/lalilo/internal/logger"
	"github.com/lalilo-dev/lalilo/internal/notify"
	"github.com/lalilo-dev/lalilo/internal/queue"
	"github.com/lalilo-dev/lalilo/internal/style"
	"github.com/lalilo-dev/lalilo/internal/telemetry"
)

// Dispatcher routes change events to the component owning their category:
// icon and stylesheet sources are debounced into the build queue, watched
// files are recorded for the next reload and the rest goes to loaders.
type Dispatcher struct {
	Root       string
	Classifier *Classifier
	Scheduler  *Scheduler
	Builds     *queue.Serializer
	Icons      *icon.Builder
	Styles     *style.Builder
	Aggregator *Aggregator
	Loaders    *LoaderRunner

	// Notifier receives incremental stylesheet failures.
	Notifier    notify.Notifier
	NotifyTitle string

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Dispatch classifies ev and hands it on. It returns the category, which
// is CategoryNone for dropped events.
func (d *Dispatcher) Dispatch(ev ChangeEvent) Category {
	c := d.Classifier.Classify(ev)
	if c.Category == CategoryNone {
		return CategoryNone
	}
	d.Metrics.RecordChange(c.Category.String())
	d.log().Debug("change", "kind", ev.Kind.String(), "path", relPath(d.Root, ev.Path), "category", c.Category.String())

	switch c.Category {
	case CategoryIcon:
		d.schedule(ev.Path, &IconBuild{
			Kind:    ev.Kind,
			Path:    ev.Path,
			Root:    d.Root,
			Builder: d.Icons,
		})
	case CategoryStyle:
		d.schedule(ev.Path, &StyleBuild{
			Kind:     ev.Kind,
			Path:     ev.Path,
			Root:     d.Root,
			Builder:  d.Styles,
			Notifier: d.Notifier,
			Title:    d.NotifyTitle,
		})
	case CategoryFile:
		fb := &FileBuild{Kind: ev.Kind, Path: ev.Path, Root: d.Root, Aggregator: d.Aggregator}
		fb.Build(context.Background())
	case CategoryLoader:
		for _, l := range c.Loaders {
			if err := d.Loaders.Dispatch(l, ev.Kind, ev.Path); err != nil {
				d.log().Warn("loader dropped", "loader", l.Title, "path", relPath(d.Root, ev.Path), "error", err)
			}
		}
	}
	return c.Category
}

// schedule debounces b under its source path. The build that finally runs
// carries the kind of the last event in the window.
func (d *Dispatcher) schedule(key string, b Build) {
	d.Scheduler.Schedule(key, func() {
		if err := d.Builds.Enqueue(Task(b)); err != nil {
			d.log().Debug("build dropped", "category", b.Category().String(), "source", b.Source(), "error", err)
		}
	})
}

func (d *Dispatcher) log() *slog.Logger {
	if d.Logger == nil {
		return logger.Discard()
	}
	return d.Logger
}
