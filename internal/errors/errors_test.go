package errors

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registered(t *testing.T) {
	err := New("E200")
	assert.Equal(t, "E200", err.Code)
	assert.Equal(t, CategoryPort, err.Category)
	assert.Equal(t, "E200: No free port in range", err.Error())
}

func TestNew_Unknown(t *testing.T) {
	err := New("E999")
	assert.Equal(t, "Unknown error", err.Message)
	assert.Empty(t, err.Category)
}

func TestError_MessageChain(t *testing.T) {
	err := New("E302").WithDetail("scss/a.scss").Wrap(fs.ErrNotExist)
	assert.Equal(t, "E302: Source file not readable: scss/a.scss: file does not exist", err.Error())
	assert.True(t, Is(err, fs.ErrNotExist))
}

func TestHasCategory(t *testing.T) {
	inner := New("E300").WithDetail("bad")
	wrapped := fmt.Errorf("building: %w", inner)

	assert.True(t, HasCategory(wrapped, CategoryCompile))
	assert.False(t, HasCategory(wrapped, CategoryIO))
	assert.False(t, HasCategory(nil, CategoryIO))
	assert.False(t, HasCategory(fs.ErrNotExist, CategoryIO))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil, "E302"))

	original := New("E104")
	assert.Same(t, original, FromError(fmt.Errorf("ctx: %w", original), "E302"))

	wrapped := FromError(fs.ErrPermission, "E303")
	assert.Equal(t, CategoryIO, wrapped.Category)
	assert.True(t, Is(wrapped, fs.ErrPermission))
}

func TestWithLocation_ReadsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.scss")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd\ne\nf\n"), 0o644))

	err := New("E300").WithLocation(path, 3, 2)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, err.Context)
	assert.Equal(t, path+":3:2", err.Location.String())
}

func TestLocation_String(t *testing.T) {
	var nilLoc *Location
	assert.Equal(t, "", nilLoc.String())
	assert.Equal(t, "a.scss:4", (&Location{File: "a.scss", Line: 4}).String())
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	path := filepath.Join(t.TempDir(), "main.scss")
	require.NoError(t, os.WriteFile(path, []byte(".a {\n  color: red\n  .b { }\n}\n"), 0o644))

	out := New("E300").
		WithLocation(path, 3, 3).
		WithSuggestion("Add the missing semicolon").
		Wrap(fmt.Errorf("expected \";\"")).
		Format()

	assert.Contains(t, out, "ERROR E300: Stylesheet compilation failed")
	assert.Contains(t, out, "→    3 │   .b { }")
	assert.Contains(t, out, "│   ^")
	assert.Contains(t, out, "Cause: expected \";\"")
	assert.Contains(t, out, "Hint: Add the missing semicolon")
}

func TestFormatCompact(t *testing.T) {
	err := New("E200").WithDetail("8000-8010")
	err.Location = &Location{File: "lalilo.json", Line: 3}
	assert.Equal(t, "lalilo.json:3: E200: No free port in range: 8000-8010", err.FormatCompact())
}

func TestFormatJSON(t *testing.T) {
	out := New("E401").Wrap(fmt.Errorf("limit 1024")).FormatJSON()
	assert.JSONEq(t, `{"code":"E401","category":"render","message":"Template output too large","cause":"limit 1024"}`, out)
}

func TestFprintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	FprintError(&buf, fmt.Errorf("plain"))
	assert.Equal(t, "\nERROR: plain\n\n", buf.String())

	buf.Reset()
	FprintError(&buf, fmt.Errorf("wrapped: %w", New("E100")))
	assert.Contains(t, buf.String(), "ERROR E100: Configuration file not found")
}

func TestCodes_AllCategorized(t *testing.T) {
	codes := Codes()
	require.NotEmpty(t, codes)
	for _, code := range codes {
		tmpl, ok := Lookup(code)
		require.True(t, ok)
		assert.NotEmpty(t, tmpl.Category, code)
		assert.NotEmpty(t, tmpl.Message, code)
	}
}

func TestWrapText(t *testing.T) {
	assert.Nil(t, wrapText("", 10))
	assert.Equal(t, []string{"short"}, wrapText("short", 10))
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
}
