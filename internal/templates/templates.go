package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// Entry is the source directory, relative to the project root.
	Entry string

	// Dest is the export directory, relative to the project root.
	Dest string
}

// Template represents a starter site.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files maps paths relative to the entry directory to their contents.
	Files map[string]string

	// RootFiles maps paths relative to the project root to their contents.
	RootFiles map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"full":    fullTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E107").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: minimal, full")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create writes the starter files under root. Existing files are left
// untouched. It returns the created paths, sorted.
func (t *Template) Create(root string, cfg Config) ([]string, error) {
	files := make(map[string]string, len(t.Files)+len(t.RootFiles))
	for rel, content := range t.Files {
		files[filepath.Join(root, cfg.Entry, filepath.FromSlash(rel))] = content
	}
	for rel, content := range t.RootFiles {
		files[filepath.Join(root, filepath.FromSlash(rel))] = content
	}

	var created []string
	for path, content := range files {
		if _, err := os.Stat(path); err == nil {
			continue
		}

		tmpl, err := template.New(filepath.Base(path)).Parse(content)
		if err != nil {
			return nil, errors.Newf(errors.CategoryCLI, "invalid template %s: %v", path, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return nil, errors.Newf(errors.CategoryCLI, "template execute error %s: %v", path, err)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.New("E303").WithDetail(filepath.Dir(path)).Wrap(err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return nil, errors.New("E303").WithDetail(path).Wrap(err)
		}
		created = append(created, path)
	}

	sort.Strings(created)
	return created, nil
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.ProjectName}}</title>
  <link rel="stylesheet" href="/css/app.css">
</head>
<body>
  <main>
    <h1>{{.ProjectName}}</h1>
    <p>Edit {{.Entry}}/index.html and save to reload.</p>
  </main>
  <script src="/js/app.js"></script>
</body>
</html>
`

const gitignore = `{{.Dest}}/
{{.Entry}}/css/
.DS_Store
`

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "One page and one stylesheet",
		Files: map[string]string{
			"index.html": indexPage,
			"scss/app.scss": `body {
  margin: 0;
  font-family: system-ui, sans-serif;
}
`,
			"js/app.js": `console.log("{{.ProjectName}} loaded");
`,
		},
		RootFiles: map[string]string{
			".gitignore": gitignore,
		},
	}
}

// fullTemplate returns the full template.
func fullTemplate() *Template {
	return &Template{
		Name:        "full",
		Description: "Several pages, stylesheet partials and an icon set folder",
		Files: map[string]string{
			"index.html": indexPage,
			"about.html": `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>About | {{.ProjectName}}</title>
  <link rel="stylesheet" href="/css/app.css">
</head>
<body>
  <main>
    <h1>About</h1>
    <p><a href="/">Home</a></p>
  </main>
</body>
</html>
`,
			"scss/app.scss": `@use "variables" as *;

body {
  margin: 0;
  color: $text;
  background: $background;
  font-family: system-ui, sans-serif;
}

a {
  color: $accent;
}
`,
			"scss/_variables.scss": `$text: #222;
$background: #fafafa;
$accent: #ee1b6b;
`,
			"js/app.js": `document.documentElement.classList.add("js");
`,
			"icon/README.md": `Put one folder per icon set here, each with the style.css and
fonts/ exported by the icon font tool. Lalilo turns every set into
scss/icon-<set>.scss.
`,
			"img/.gitkeep": "",
		},
		RootFiles: map[string]string{
			".gitignore": gitignore,
		},
	}
}
