package dev

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalilo-dev/lalilo/internal/render"
)

func newTestHandler(t *testing.T, renderer render.Renderer) (*Handler, string) {
	t.Helper()
	_, entry := siteTree(t)
	return &Handler{
		Resolver: newTestResolver(entry, true),
		Renderer: renderer,
		Template: render.Request{
			Root:      entry,
			ConfigDir: "/cfg",
			Env:       "dev",
			BaseURL:   "http://localhost:8080/",
		},
	}, entry
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandler_HTMLInjectsReloadScript(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := serve(h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "home")
	assert.Contains(t, body, ReloadPath)
	assert.Less(t, strings.Index(body, "<script>"), strings.Index(body, "</head>"))
}

func TestHandler_TemplateRequest(t *testing.T) {
	var got render.Request
	h, entry := newTestHandler(t, render.Func(func(ctx context.Context, req render.Request) (string, error) {
		got = req
		return "<p>rendered</p>", nil
	}))

	rec := serve(h, http.MethodGet, "/about/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>rendered</p>")
	assert.Contains(t, rec.Body.String(), ReloadPath)

	assert.Equal(t, render.Request{
		Root:      entry,
		ConfigDir: "/cfg",
		File:      filepath.Join(entry, "about.php"),
		Env:       "dev",
		BaseURL:   "http://localhost:8080/",
	}, got)
}

func TestHandler_TemplateErrorIsEscaped(t *testing.T) {
	h, _ := newTestHandler(t, render.Func(func(ctx context.Context, req render.Request) (string, error) {
		return "", stderrors.New("Parse error: unexpected <b>token</b>")
	}))

	rec := serve(h, http.MethodGet, "/about")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "500 Internal Server Error | Lalilo")
	assert.Contains(t, body, "unexpected &lt;b&gt;token&lt;/b&gt;")
	assert.NotContains(t, body, "<b>token</b>")
	assert.Contains(t, body, ReloadPath)
}

func TestHandler_NotFound(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := serve(h, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404 Not Found | Lalilo")
	assert.Contains(t, rec.Body.String(), ReloadPath)
}

func TestHandler_Static(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := serve(h, http.MethodGet, "/css/app.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "body{}", rec.Body.String())

	rec = serve(h, http.MethodHead, "/img/logo.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := serve(h, http.MethodPost, "/")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestInjectReloadScript(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"before head", "<html><head><title>x</title></head><body></body></html>",
			"<html><head><title>x</title>" + ReloadScript + "</head><body></body></html>"},
		{"first head only", "<head></head><template><head></head></template>",
			"<head>" + ReloadScript + "</head><template><head></head></template>"},
		{"no head", "<p>fragment</p>", "<p>fragment</p>" + ReloadScript},
		{"empty", "", ReloadScript},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InjectReloadScript(tt.in))
		})
	}
}
