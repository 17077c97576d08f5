// Package icon turns the stylesheet written by an icon font tool into a
// namespaced stylesheet source the style compiler can import.
package icon

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

var (
	ruleRe       = regexp.MustCompile(`\.icon-[a-zA-Z_\-0-9]*:before\s?\{\s*content:\s*"[\\A-Za-z0-9]*";(\s*color:\s*#[A-Za-z0-9]*;)?\s*}`)
	openBraceRe  = regexp.MustCompile(`\{\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// fontFormats are the webfont files every icon set ships, in @font-face order.
var fontFormats = []struct{ ext, format string }{
	{"eot", "embedded-opentype"},
	{"woff", "woff"},
	{"ttf", "truetype"},
	{"svg", "svg"},
}

// Builder generates one stylesheet source per icon set.
type Builder struct {
	// SourceDir holds one directory per icon set.
	SourceDir string

	// OutputDir receives the generated <face>.scss files.
	OutputDir string

	// Stylesheet is the file name the icon font tool writes in each set.
	Stylesheet string

	BaseImport  string
	FontBaseURL string

	// DefaultSet keeps the bare "icon" face.
	DefaultSet string

	// OutputExt is the extension of generated files.
	OutputExt string

	// Now stamps the cache-busting query of the font URLs.
	Now func() time.Time
}

// Set describes one icon set directory.
type Set struct {
	// Name is the set directory name.
	Name string

	// Face is the font family and class prefix, e.g. "icon-brand".
	Face string

	// Output is the generated stylesheet path.
	Output string
}

// SetFor returns the set a stylesheet belongs to.
func (b *Builder) SetFor(stylesheet string) Set {
	name := filepath.Base(filepath.Dir(stylesheet))
	face := "icon"
	if name != b.DefaultSet {
		face += "-" + name
	}
	ext := b.OutputExt
	if ext == "" {
		ext = ".scss"
	}
	return Set{Name: name, Face: face, Output: filepath.Join(b.OutputDir, face+ext)}
}

// Sources lists every set stylesheet under SourceDir.
func (b *Builder) Sources() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(b.SourceDir, "*", b.Stylesheet))
	if err != nil {
		return nil, errors.New("E302").WithDetail(b.SourceDir).Wrap(err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Build reads a set stylesheet and writes its generated source. It returns
// the written path.
func (b *Builder) Build(stylesheet string) (string, error) {
	data, err := os.ReadFile(stylesheet)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("E304").WithDetail(stylesheet).Wrap(err)
		}
		return "", errors.New("E302").WithDetail(stylesheet).Wrap(err)
	}

	set := b.SetFor(stylesheet)
	if err := os.WriteFile(set.Output, []byte(b.Generate(set, string(data))), 0644); err != nil {
		return "", errors.New("E303").WithDetail(set.Output).Wrap(err)
	}
	return set.Output, nil
}

// Remove deletes the generated source of a set. A missing file is not an
// error.
func (b *Builder) Remove(stylesheet string) (string, error) {
	out := b.SetFor(stylesheet).Output
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return "", errors.New("E303").WithDetail(out).Wrap(err)
	}
	return out, nil
}

// Generate renders the stylesheet source for a set from the icon font
// tool's CSS.
func (b *Builder) Generate(set Set, css string) string {
	lines := []string{
		"//",
		"// Generated by lalilo from " + set.Name + "/" + b.Stylesheet + ".",
		"// Changes are overwritten by the next icon font build.",
		"//",
		"",
		`@import "` + b.BaseImport + `";`,
	}

	rules := Parse(css, set.Face)
	if len(rules) == 0 {
		return strings.Join(lines, "\n") + "\n"
	}

	lines = append(lines, "", b.fontFace(set), "",
		`*[class^="`+set.Face+`-"]:before, *[class*=" `+set.Face+`-"]:before {`,
		`  font-family: "`+set.Face+`";`,
		"  speak: none;",
		"  font-style: normal;",
		"  font-weight: normal;",
		"  font-variant: normal;",
		"}",
		"",
	)
	lines = append(lines, rules...)
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (b *Builder) fontFace(set Set) string {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	stamp := strconv.FormatInt(now().UnixMilli(), 10)

	srcs := make([]string, 0, len(fontFormats))
	for _, f := range fontFormats {
		url := b.FontBaseURL + set.Name + "/fonts/icomoon." + f.ext + "?t=" + stamp
		srcs = append(srcs, `url("`+url+`") format("`+f.format+`")`)
	}
	return `@font-face { font-family: "` + set.Face + `"; src: ` + strings.Join(srcs, ", ") + "; }"
}

// Parse extracts the icon rules from css, rewrites their ".icon-" prefix to
// "."+face+"-", collapses whitespace and sorts them.
func Parse(css, face string) []string {
	matches := ruleRe.FindAllString(css, -1)
	rules := make([]string, 0, len(matches))
	for _, m := range matches {
		rule := "." + face + "-" + strings.TrimPrefix(m, ".icon-")
		rule = strings.ReplaceAll(rule, "\n", " ")
		rule = openBraceRe.ReplaceAllString(rule, "{ ")
		rule = whitespaceRe.ReplaceAllString(rule, " ")
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	return rules
}
