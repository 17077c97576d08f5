package dev

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lalilo-dev/lalilo/internal/config"
)

// ChangeKind is the kind of filesystem change.
type ChangeKind int

const (
	Created ChangeKind = iota
	Modified
	Deleted
)

// String returns the label prefix used in reload notifications.
func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "Created"
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// Verb returns the --type argument passed to loaders.
func (k ChangeKind) Verb() string {
	switch k {
	case Created:
		return "create"
	case Deleted:
		return "delete"
	default:
		return "update"
	}
}

// ChangeEvent is one filesystem change. Path is absolute.
type ChangeEvent struct {
	Kind ChangeKind
	Path string
}

// Category is the build category a change belongs to.
type Category int

const (
	CategoryNone Category = iota
	CategoryIcon
	CategoryStyle
	CategoryFile
	CategoryLoader
)

func (c Category) String() string {
	switch c {
	case CategoryIcon:
		return "icon"
	case CategoryStyle:
		return "style"
	case CategoryFile:
		return "file"
	case CategoryLoader:
		return "loader"
	default:
		return "none"
	}
}

// Loader is an external program run for matching changes.
type Loader struct {
	Title string

	// Ext filters handled files. Empty matches every file.
	Ext string

	// Exec is the absolute program path.
	Exec string

	// Runner is an optional interpreter for Exec.
	Runner string
}

// Matches reports whether the loader handles path.
func (l Loader) Matches(path string) bool {
	return l.Ext == "" || strings.EqualFold(filepath.Ext(path), l.Ext)
}

// Classification is the result of Classify.
type Classification struct {
	Category Category

	// Loaders is set for CategoryLoader, in configuration order.
	Loaders []Loader
}

// Classifier decides which build category a change belongs to. It holds
// only configuration and never touches the filesystem.
type Classifier struct {
	IconDir        string
	IconStylesheet string
	StyleDir       string
	StyleExt       string
	EntryDir       string
	IgnoreDirs     []string

	// Formats are the extensions that trigger a reload.
	Formats []string
	Loaders []Loader
}

// metadataFiles are OS bookkeeping files never classified.
var metadataFiles = []string{".DS_Store", "Thumbs.db", "desktop.ini"}

// NewClassifier builds a Classifier from the project configuration.
func NewClassifier(cfg *config.Config) *Classifier {
	loaders := make([]Loader, 0, len(cfg.Loaders))
	for _, l := range cfg.Loaders {
		loaders = append(loaders, Loader{
			Title:  l.Title,
			Ext:    l.Ext,
			Exec:   cfg.LoaderPath(l),
			Runner: l.Runner,
		})
	}
	return &Classifier{
		IconDir:        cfg.IconPath(),
		IconStylesheet: cfg.Icon.Stylesheet,
		StyleDir:       cfg.SCSSPath(),
		StyleExt:       cfg.Style.Ext,
		EntryDir:       cfg.EntryPath(),
		IgnoreDirs:     cfg.WatchIgnorePaths(),
		Formats:        cfg.Watch.Formats,
		Loaders:        loaders,
	}
}

// Classify returns the category of ev. The checks run in priority order:
// icon stylesheet, stylesheet source, watched file, then loaders.
func (c *Classifier) Classify(ev ChangeEvent) Classification {
	name := filepath.Base(ev.Path)
	if slices.Contains(metadataFiles, name) {
		return Classification{}
	}
	ext := strings.ToLower(filepath.Ext(name))

	if isWithinDir(ev.Path, c.IconDir) && name == c.IconStylesheet {
		return Classification{Category: CategoryIcon}
	}
	if isWithinDir(ev.Path, c.StyleDir) && ext == strings.ToLower(c.StyleExt) {
		return Classification{Category: CategoryStyle}
	}
	if isWithinDir(ev.Path, c.EntryDir) && !c.ignored(ev.Path) && c.watched(ext) {
		return Classification{Category: CategoryFile}
	}

	var matched []Loader
	for _, l := range c.Loaders {
		if l.Matches(ev.Path) {
			matched = append(matched, l)
		}
	}
	if len(matched) == 0 {
		return Classification{}
	}
	return Classification{Category: CategoryLoader, Loaders: matched}
}

func (c *Classifier) ignored(path string) bool {
	for _, dir := range c.IgnoreDirs {
		if isWithinDir(path, dir) {
			return true
		}
	}
	return false
}

func (c *Classifier) watched(ext string) bool {
	for _, f := range c.Formats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

// isWithinDir reports whether path is dir itself or lies below it. Both
// are expected to be absolute.
func isWithinDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(os.PathSeparator)) {
		dir += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, dir)
}
