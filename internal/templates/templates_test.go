package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

func TestGet(t *testing.T) {
	for _, name := range []string{"minimal", "full"} {
		tmpl, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, tmpl.Name)
		assert.NotEmpty(t, tmpl.Description)
	}

	_, err := Get("nonexistent")
	require.Error(t, err)
	var le *errors.Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "E107", le.Code)
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"full", "minimal"}, List())
}

func TestCreate(t *testing.T) {
	root := t.TempDir()
	tmpl, err := Get("minimal")
	require.NoError(t, err)

	created, err := tmpl.Create(root, Config{ProjectName: "my-site", Entry: "src", Dest: "dist"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, ".gitignore"),
		filepath.Join(root, "src", "index.html"),
		filepath.Join(root, "src", "js", "app.js"),
		filepath.Join(root, "src", "scss", "app.scss"),
	}, created)

	index, err := os.ReadFile(filepath.Join(root, "src", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<title>my-site</title>")
	assert.Contains(t, string(index), "Edit src/index.html")

	ignore, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "dist/\nsrc/css/\n.DS_Store\n", string(ignore))
}

func TestCreate_KeepsExistingFiles(t *testing.T) {
	root := t.TempDir()
	page := filepath.Join(root, "www", "index.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(page), 0755))
	require.NoError(t, os.WriteFile(page, []byte("mine"), 0644))

	tmpl, err := Get("full")
	require.NoError(t, err)
	created, err := tmpl.Create(root, Config{ProjectName: "x", Entry: "www", Dest: "dist"})
	require.NoError(t, err)

	assert.NotContains(t, created, page)
	assert.Contains(t, created, filepath.Join(root, "www", "scss", "_variables.scss"))
	assert.FileExists(t, filepath.Join(root, "www", "img", ".gitkeep"))

	data, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestTemplatesParse(t *testing.T) {
	for _, name := range List() {
		tmpl, _ := Get(name)
		_, err := tmpl.Create(t.TempDir(), Config{ProjectName: "p", Entry: "src", Dest: "dist"})
		assert.NoError(t, err, name)
	}
}
