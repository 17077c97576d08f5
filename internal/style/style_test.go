package style

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

func newBuilder(t *testing.T, c Compiler) *Builder {
	t.Helper()
	root := t.TempDir()
	b := &Builder{
		SourceDir: filepath.Join(root, "scss"),
		OutputDir: filepath.Join(root, "css"),
		Ext:       ".scss",
		Compiler:  c,
	}
	require.NoError(t, os.MkdirAll(b.SourceDir, 0755))
	return b
}

func writeSource(t *testing.T, b *Builder, rel, body string) string {
	t.Helper()
	path := filepath.Join(b.SourceDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func echoCompiler() Compiler {
	return CompilerFunc(func(_ context.Context, file string) ([]byte, error) {
		data, err := os.ReadFile(file)
		return append([]byte("\uFEFF"), data...), err
	})
}

func TestBuilder_OutputFor(t *testing.T) {
	b := newBuilder(t, echoCompiler())

	out, err := b.OutputFor(filepath.Join(b.SourceDir, "site", "index.scss"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.OutputDir, "site", "index.css"), out)

	_, err = b.OutputFor(filepath.Join(filepath.Dir(b.SourceDir), "other", "a.scss"))
	assert.Error(t, err)
}

func TestBuilder_BuildMirrorsTreeAndStripsBOM(t *testing.T) {
	b := newBuilder(t, echoCompiler())
	src := writeSource(t, b, "pages/home/index.scss", "a{color:red}")

	out, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.OutputDir, "pages", "home", "index.css"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a{color:red}", string(data))
}

func TestBuilder_CompileError(t *testing.T) {
	b := newBuilder(t, CompilerFunc(func(_ context.Context, file string) ([]byte, error) {
		return nil, &CompileError{File: file, Line: 2, Column: 5, Info: `expected ";"`}
	}))
	src := writeSource(t, b, "a.scss", "a {\n  b: c\n}\n")

	_, err := b.Build(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCompile))

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Line)

	var le *errors.Error
	require.ErrorAs(t, err, &le)
	require.NotNil(t, le.Location)
	assert.Equal(t, "  b: c", le.Context[1])
	assert.NoFileExists(t, filepath.Join(b.OutputDir, "a.css"))
}

func TestBuilder_OutputDirNotCreatable(t *testing.T) {
	b := newBuilder(t, echoCompiler())
	blocker := filepath.Join(filepath.Dir(b.OutputDir), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	b.OutputDir = blocker
	src := writeSource(t, b, "sub/a.scss", "a{}")

	_, err := b.Build(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryIO))
}

func TestBuilder_Remove(t *testing.T) {
	b := newBuilder(t, echoCompiler())
	src := writeSource(t, b, "a.scss", "a{}")
	out, err := b.Build(context.Background(), src)
	require.NoError(t, err)

	_, err = b.Remove(src)
	require.NoError(t, err)
	assert.NoFileExists(t, out)

	_, err = b.Remove(src)
	assert.NoError(t, err)
}

func TestBuilder_SourcesAndClean(t *testing.T) {
	b := newBuilder(t, echoCompiler())
	writeSource(t, b, "b.scss", "")
	writeSource(t, b, "a/x.scss", "")
	writeSource(t, b, "notes.txt", "")

	got, err := b.Sources()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(b.SourceDir, "a", "x.scss"),
		filepath.Join(b.SourceDir, "b.scss"),
	}, got)

	require.NoError(t, os.MkdirAll(filepath.Join(b.OutputDir, "old"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(b.OutputDir, "old.css"), nil, 0644))
	require.NoError(t, b.Clean())
	entries, err := os.ReadDir(b.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseSassError(t *testing.T) {
	output := "Error: expected \";\".\n" +
		"  ╷\n" +
		"3 │   .b { }\n" +
		"  │   ^\n" +
		"  ╵\n" +
		"  scss/main.scss 3:3  root stylesheet\n"

	ce := ParseSassError("/abs/scss/main.scss", output)
	assert.Equal(t, `expected ";".`, ce.Info)
	assert.Equal(t, 3, ce.Line)
	assert.Equal(t, 3, ce.Column)
	assert.Equal(t, "scss/main.scss", ce.File)
	assert.Equal(t, "scss/main.scss:3:3: expected \";\".", ce.Error())
}

func TestParseSassError_Unstructured(t *testing.T) {
	ce := ParseSassError("a.scss", "something broke\n")
	assert.Equal(t, "something broke", ce.Info)
	assert.Zero(t, ce.Line)
	assert.Equal(t, "a.scss: something broke", ce.Error())
}

func fakeSass(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script compiler")
	}
	path := filepath.Join(t.TempDir(), "sass")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestSassCompiler_Success(t *testing.T) {
	bin := fakeSass(t, `for last; do :; done; cat "$last"`)
	c := NewSassCompiler(bin)

	src := filepath.Join(t.TempDir(), "a.scss")
	require.NoError(t, os.WriteFile(src, []byte("a{}"), 0644))

	css, err := c.Compile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "a{}", string(css))
}

func TestSassCompiler_Failure(t *testing.T) {
	bin := fakeSass(t, `echo 'Error: Undefined variable.' >&2; echo '  a.scss 7:10  root stylesheet' >&2; exit 65`)
	c := NewSassCompiler(bin)

	_, err := c.Compile(context.Background(), "a.scss")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 7, ce.Line)
	assert.Equal(t, 10, ce.Column)
	assert.Equal(t, "Undefined variable.", ce.Info)
}

func TestSassCompiler_MissingBinary(t *testing.T) {
	c := NewSassCompiler(filepath.Join(t.TempDir(), "no-sass"))
	_, err := c.Compile(context.Background(), "a.scss")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCompile))
}
