package dev

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testClassifier() *Classifier {
	return &Classifier{
		IconDir:        "/p/src/icon",
		IconStylesheet: "style.css",
		StyleDir:       "/p/src/scss",
		StyleExt:       ".scss",
		EntryDir:       "/p/src",
		IgnoreDirs:     []string{"/p/src/icon"},
		Formats:        []string{".php", ".html", ".css", ".js"},
		Loaders: []Loader{
			{Title: "scripts", Ext: ".js", Exec: "/p/cmd/scripts.js"},
			{Title: "all", Exec: "/p/cmd/all.js"},
		},
	}
}

func TestClassify(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		path     string
		category Category
		loaders  []string
	}{
		{"/p/src/icon/brand/style.css", CategoryIcon, nil},
		{"/p/src/icon/icomoon/style.css", CategoryIcon, nil},
		{"/p/src/scss/layout/base.scss", CategoryStyle, nil},
		{"/p/src/scss/base.css", CategoryFile, nil},
		{"/p/src/index.html", CategoryFile, nil},
		{"/p/src/js/app.js", CategoryFile, nil},
		{"/p/src/.DS_Store", CategoryNone, nil},
		{"/p/src/icon/brand/selection.json", CategoryLoader, []string{"all"}},
		{"/p/src/img/logo.png", CategoryLoader, []string{"all"}},
		{"/p/tools/build.js", CategoryLoader, []string{"scripts", "all"}},
		{"/p/src2/index.html", CategoryLoader, []string{"all"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := c.Classify(ChangeEvent{Kind: Modified, Path: tt.path})
			assert.Equal(t, tt.category, got.Category)

			var titles []string
			for _, l := range got.Loaders {
				titles = append(titles, l.Title)
			}
			assert.Equal(t, tt.loaders, titles)
		})
	}
}

func TestClassify_NoLoaders(t *testing.T) {
	c := testClassifier()
	c.Loaders = nil

	assert.Equal(t, CategoryNone, c.Classify(ChangeEvent{Kind: Created, Path: "/p/src/img/logo.png"}).Category)
	assert.Equal(t, CategoryNone, c.Classify(ChangeEvent{Kind: Deleted, Path: "/elsewhere/a.html"}).Category)
}

func TestClassify_StylesheetNameOnlyInIconDir(t *testing.T) {
	c := testClassifier()
	c.Loaders = nil

	got := c.Classify(ChangeEvent{Kind: Modified, Path: "/p/src/css/style.css"})
	assert.Equal(t, CategoryFile, got.Category)
}

func TestChangeKind(t *testing.T) {
	assert.Equal(t, "Created", Created.String())
	assert.Equal(t, "Modified", Modified.String())
	assert.Equal(t, "Deleted", Deleted.String())

	assert.Equal(t, "create", Created.Verb())
	assert.Equal(t, "update", Modified.Verb())
	assert.Equal(t, "delete", Deleted.Verb())
}

func TestIsWithinDir(t *testing.T) {
	assert.True(t, isWithinDir("/p/src", "/p/src"))
	assert.True(t, isWithinDir("/p/src/a/b", "/p/src"))
	assert.True(t, isWithinDir("/p/src/a/b", "/p/src/"))
	assert.False(t, isWithinDir("/p/src2/a", "/p/src"))
	assert.False(t, isWithinDir("/p", "/p/src"))
	assert.False(t, isWithinDir("/p/src", ""))
}
