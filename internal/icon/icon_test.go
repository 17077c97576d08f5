package icon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

const sampleCSS = `@font-face {
  font-family: 'icomoon';
  src: url('fonts/icomoon.eot?x');
}
[class^="icon-"], [class*=" icon-"] {
  font-family: 'icomoon' !important;
}
.icon-home:before {
  content: "\e900";
}
.icon-alert:before {
  content: "\e901";
  color: #fff;
}
.icon-x_2:before{content:"\e902";}
`

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	root := t.TempDir()
	b := &Builder{
		SourceDir:   filepath.Join(root, "icon"),
		OutputDir:   filepath.Join(root, "scss"),
		Stylesheet:  "style.css",
		BaseImport:  "Lalilo",
		FontBaseURL: "../icon/",
		DefaultSet:  "icomoon",
		Now:         func() time.Time { return time.UnixMilli(1700000000000) },
	}
	require.NoError(t, os.MkdirAll(b.SourceDir, 0755))
	require.NoError(t, os.MkdirAll(b.OutputDir, 0755))
	return b
}

func writeSet(t *testing.T, b *Builder, set, css string) string {
	t.Helper()
	dir := filepath.Join(b.SourceDir, set)
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, b.Stylesheet)
	require.NoError(t, os.WriteFile(path, []byte(css), 0644))
	return path
}

func TestParse(t *testing.T) {
	rules := Parse(sampleCSS, "icon")
	assert.Equal(t, []string{
		`.icon-alert:before { content: "\e901"; color: #fff; }`,
		`.icon-home:before { content: "\e900"; }`,
		`.icon-x_2:before{ content:"\e902";}`,
	}, rules)
}

func TestParse_RewritesPrefix(t *testing.T) {
	rules := Parse(sampleCSS, "icon-brand")
	require.Len(t, rules, 3)
	for _, r := range rules {
		assert.True(t, strings.HasPrefix(r, ".icon-brand-"), r)
	}
}

func TestParse_NoRules(t *testing.T) {
	assert.Empty(t, Parse("body { color: red; }", "icon"))
}

func TestSetFor(t *testing.T) {
	b := newBuilder(t)

	def := b.SetFor(filepath.Join(b.SourceDir, "icomoon", "style.css"))
	assert.Equal(t, "icon", def.Face)
	assert.Equal(t, filepath.Join(b.OutputDir, "icon.scss"), def.Output)

	brand := b.SetFor(filepath.Join(b.SourceDir, "brand", "style.css"))
	assert.Equal(t, "brand", brand.Name)
	assert.Equal(t, "icon-brand", brand.Face)
	assert.Equal(t, filepath.Join(b.OutputDir, "icon-brand.scss"), brand.Output)
}

func TestBuild_WritesGeneratedSource(t *testing.T) {
	b := newBuilder(t)
	src := writeSet(t, b, "brand", sampleCSS)

	out, err := b.Build(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.OutputDir, "icon-brand.scss"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `@import "Lalilo";`)
	assert.Contains(t, text, `@font-face { font-family: "icon-brand"; src: url("../icon/brand/fonts/icomoon.eot?t=1700000000000") format("embedded-opentype"), url("../icon/brand/fonts/icomoon.woff?t=1700000000000") format("woff")`)
	assert.Contains(t, text, `format("svg"); }`)
	assert.Contains(t, text, `*[class^="icon-brand-"]:before, *[class*=" icon-brand-"]:before {`)
	assert.True(t, strings.HasSuffix(text, ".icon-brand-x_2:before{ content:\"\\e902\";}\n"))

	importAt := strings.Index(text, "@import")
	faceAt := strings.Index(text, "@font-face")
	alertAt := strings.Index(text, ".icon-brand-alert")
	homeAt := strings.Index(text, ".icon-brand-home")
	assert.True(t, importAt < faceAt && faceAt < alertAt && alertAt < homeAt)
}

func TestBuild_NoRulesEmitsHeaderOnly(t *testing.T) {
	b := newBuilder(t)
	src := writeSet(t, b, "icomoon", "/* empty */")

	out, err := b.Build(src)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "@font-face")
	assert.True(t, strings.HasSuffix(string(data), "@import \"Lalilo\";\n"))
}

func TestBuild_IdempotentExceptTimestamp(t *testing.T) {
	b := newBuilder(t)
	src := writeSet(t, b, "brand", sampleCSS)

	_, err := b.Build(src)
	require.NoError(t, err)
	first, _ := os.ReadFile(filepath.Join(b.OutputDir, "icon-brand.scss"))

	b.Now = func() time.Time { return time.UnixMilli(1800000000000) }
	_, err = b.Build(src)
	require.NoError(t, err)
	second, _ := os.ReadFile(filepath.Join(b.OutputDir, "icon-brand.scss"))

	stamp := func(s []byte, ts string) string { return strings.ReplaceAll(string(s), ts, "T") }
	assert.NotEqual(t, string(first), string(second))
	assert.Equal(t, stamp(first, "1700000000000"), stamp(second, "1800000000000"))
}

func TestBuild_Errors(t *testing.T) {
	b := newBuilder(t)

	_, err := b.Build(filepath.Join(b.SourceDir, "missing", "style.css"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryIO))

	src := writeSet(t, b, "brand", sampleCSS)
	b.OutputDir = filepath.Join(b.OutputDir, "does-not-exist")
	_, err = b.Build(src)
	require.Error(t, err)
	var le *errors.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "E303", le.Code)
}

func TestRemove(t *testing.T) {
	b := newBuilder(t)
	src := writeSet(t, b, "brand", sampleCSS)
	out, err := b.Build(src)
	require.NoError(t, err)

	removed, err := b.Remove(src)
	require.NoError(t, err)
	assert.Equal(t, out, removed)
	assert.NoFileExists(t, out)

	_, err = b.Remove(src)
	assert.NoError(t, err, "missing output is not an error")
}

func TestSources(t *testing.T) {
	b := newBuilder(t)
	writeSet(t, b, "b", sampleCSS)
	writeSet(t, b, "a", sampleCSS)
	require.NoError(t, os.WriteFile(filepath.Join(b.SourceDir, "stray.css"), nil, 0644))

	got, err := b.Sources()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(b.SourceDir, "a", "style.css"),
		filepath.Join(b.SourceDir, "b", "style.css"),
	}, got)
}
