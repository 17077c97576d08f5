package dev

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"

	"github.com/lalilo-dev/lalilo/internal/logger"
	"github.com/lalilo-dev/lalilo/internal/render"
	"github.com/lalilo-dev/lalilo/internal/telemetry"
)

// Handler serves resolved requests. HTML responses carry the reload
// script.
type Handler struct {
	Resolver *Resolver
	Renderer render.Renderer

	// Template holds the renderer arguments shared by every request. File
	// is filled per request.
	Template render.Request

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartRequest(r.Context(), r.URL.Path)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		h.Metrics.RecordRequest("method", http.StatusMethodNotAllowed)
		telemetry.End(span, nil)
		return
	}

	target, err := h.Resolver.Resolve(NormalizePath(r.URL.Path))
	if err != nil {
		writeErrorPage(w, http.StatusNotFound, "")
		h.Metrics.RecordRequest("none", http.StatusNotFound)
		h.log().Debug("not found", "path", r.URL.Path)
		telemetry.End(span, nil)
		return
	}

	switch target.Kind {
	case KindTemplate:
		req := h.Template
		req.File = target.Path
		var out string
		out, err = h.Renderer.Render(ctx, req)
		if err == nil {
			writeHTML(w, out)
		}
	case KindHTML:
		var data []byte
		data, err = os.ReadFile(target.Path)
		if err == nil {
			writeHTML(w, string(data))
		}
	default:
		err = serveStatic(w, r, target)
	}

	kind := target.Kind.String()
	if err != nil {
		h.log().Error("request failed", "path", r.URL.Path, "kind", kind, "error", err)
		writeErrorPage(w, http.StatusInternalServerError, err.Error())
		h.Metrics.RecordRequest(kind, http.StatusInternalServerError)
		telemetry.End(span, err)
		return
	}
	h.Metrics.RecordRequest(kind, http.StatusOK)
	telemetry.End(span, nil)
}

func (h *Handler) log() *slog.Logger {
	if h.Logger == nil {
		return logger.Discard()
	}
	return h.Logger
}

func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, InjectReloadScript(page))
}

// serveStatic streams a file. Nothing is written when opening fails, so
// the caller can still send the error page.
func serveStatic(w http.ResponseWriter, r *http.Request, target ResolvedTarget) error {
	f, err := os.Open(target.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", target.ContentType)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return nil
}

// writeErrorPage renders the diagnostic page. An empty message means Not
// Found.
func writeErrorPage(w http.ResponseWriter, status int, message string) {
	title := "404 Not Found"
	body := `<p>Nothing here matches this path.</p>
<p style="color: #888;">Looked for a page in the compiled tree, a template and a source file.</p>`
	if status != http.StatusNotFound {
		title = fmt.Sprintf("%d %s", status, http.StatusText(status))
		body = `<pre style="white-space: pre-wrap; word-wrap: break-word; background: #282923; padding: 20px; border-radius: 8px; border: 1px solid #333;">` +
			html.EscapeString(message) + `</pre>
<p style="color: #888;">Fix the error and save to reload.</p>`
	}

	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="robots" content="noindex,nofollow"><title>%s | Lalilo</title>%s</head>
<body style="font-family: system-ui; padding: 40px; background: #373832; color: #d7d7d7;">
<h1 style="color: #ee1b6b;">%s</h1>
%s
<p><a href="/" style="color: #61d8f1;">Home</a></p>
</body>
</html>`, title, ReloadScript, title, body)
}
