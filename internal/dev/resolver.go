package dev

import (
	stderrors "errors"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lalilo-dev/lalilo/internal/config"
)

// ErrNotFound is returned by Resolve when no file matches.
var ErrNotFound = stderrors.New("not found")

// TargetKind is how a resolved file is served.
type TargetKind int

const (
	KindHTML TargetKind = iota
	KindTemplate
	KindStatic
)

func (k TargetKind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindTemplate:
		return "template"
	default:
		return "static"
	}
}

// htmlContentType is used for pages and rendered templates.
const htmlContentType = "text/html; charset=utf-8"

// ResolvedTarget is the file a request maps to.
type ResolvedTarget struct {
	Path        string
	Kind        TargetKind
	ContentType string
}

// Resolver maps request paths to files. It only reads the filesystem and
// is safe for concurrent use.
type Resolver struct {
	// HTMLDir is the compiled page tree.
	HTMLDir string

	// EntryDir is the raw source tree.
	EntryDir string

	TemplateEnabled bool

	// TemplateExt is the dotted template extension, e.g. ".php".
	TemplateExt string

	// UTF8Exts are static extensions served with a UTF-8 charset.
	UTF8Exts []string
}

// NewResolver builds a Resolver from the project configuration.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		HTMLDir:         cfg.HTMLPath(),
		EntryDir:        cfg.EntryPath(),
		TemplateEnabled: cfg.Template.Enabled,
		TemplateExt:     cfg.Template.Ext,
		UTF8Exts:        cfg.Server.UTF8Exts,
	}
}

// NormalizePath collapses duplicate slashes and trims leading and
// trailing slashes.
func NormalizePath(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.Trim(p, "/")
}

// Resolve returns the file serving the normalized path p.
//
// The empty path serves index.html, then the index template. A path
// without an extension tries <p>.html, <p>/index.html, then the template
// equivalents. A path with an extension is served from the compiled tree
// when it is a page or template, and otherwise from the source tree.
func (r *Resolver) Resolve(p string) (ResolvedTarget, error) {
	if p == "" {
		return r.first("index.html", "index"+r.TemplateExt)
	}

	ext := path.Ext(p)
	if ext == "" {
		return r.first(p+".html", p+"/index.html", p+r.TemplateExt, p+"/index"+r.TemplateExt)
	}

	lower := strings.ToLower(ext)
	if lower == ".html" || lower == strings.ToLower(r.TemplateExt) {
		if t, ok := r.page(r.HTMLDir, p); ok {
			return t, nil
		}
	}
	if file, ok := r.file(r.EntryDir, p); ok {
		switch {
		case lower == ".html":
			return ResolvedTarget{Path: file, Kind: KindHTML, ContentType: htmlContentType}, nil
		case lower == strings.ToLower(r.TemplateExt):
			if !r.TemplateEnabled {
				return ResolvedTarget{}, ErrNotFound
			}
			return ResolvedTarget{Path: file, Kind: KindTemplate, ContentType: htmlContentType}, nil
		}
		return ResolvedTarget{Path: file, Kind: KindStatic, ContentType: r.contentType(lower)}, nil
	}
	return ResolvedTarget{}, ErrNotFound
}

// first returns the first existing page among candidates, all relative to
// HTMLDir.
func (r *Resolver) first(candidates ...string) (ResolvedTarget, error) {
	for _, c := range candidates {
		if t, ok := r.page(r.HTMLDir, c); ok {
			return t, nil
		}
	}
	return ResolvedTarget{}, ErrNotFound
}

// page resolves rel under dir as an HTML page or, with template mode on,
// as a template.
func (r *Resolver) page(dir, rel string) (ResolvedTarget, bool) {
	ext := strings.ToLower(path.Ext(rel))
	var kind TargetKind
	switch {
	case ext == ".html":
		kind = KindHTML
	case r.TemplateEnabled && r.TemplateExt != "" && ext == strings.ToLower(r.TemplateExt):
		kind = KindTemplate
	default:
		return ResolvedTarget{}, false
	}

	file, ok := r.file(dir, rel)
	if !ok {
		return ResolvedTarget{}, false
	}
	return ResolvedTarget{Path: file, Kind: kind, ContentType: htmlContentType}, true
}

// file joins rel under dir and reports whether it is an existing regular
// file. Paths escaping dir never match.
func (r *Resolver) file(dir, rel string) (string, bool) {
	if dir == "" {
		return "", false
	}
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if !isWithinDir(full, dir) {
		return "", false
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return full, true
}

func (r *Resolver) contentType(ext string) string {
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "application/octet-stream"
	}
	if base, _, err := mime.ParseMediaType(ct); err == nil {
		ct = base
	}
	for _, u := range r.UTF8Exts {
		if strings.EqualFold(u, ext) {
			return ct + "; charset=utf-8"
		}
	}
	return ct
}
