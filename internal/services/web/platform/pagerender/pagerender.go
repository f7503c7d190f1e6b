// Package pagerender centralizes page rendering behavior.
package pagerender

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/platform/i18n"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/services/web/platform/authz"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

// Page describes one full-page response.
type Page struct {
	Title      string
	StatusCode int
	Body       templ.Component
}

// Renderer writes pages inside the shared layout.
type Renderer struct {
	access authz.Policy
	logger *zap.Logger
}

// New returns a Renderer that shows admin navigation per access.
func New(access authz.Policy, logger *zap.Logger) Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Renderer{access: access, logger: logger}
}

// Write renders page. The body is buffered so a template failure becomes a
// clean 500.
func (rd Renderer) Write(w http.ResponseWriter, r *http.Request, page Page) {
	if w == nil {
		return
	}
	status := page.StatusCode
	if status <= 0 {
		status = http.StatusOK
	}
	body := page.Body
	if body == nil {
		body = templ.NopComponent
	}
	principal, _ := requestctx.PrincipalFromContext(httpx.RequestContext(r))
	chrome := templates.Chrome{
		Title:  page.Title,
		Viewer: principal,
		Admin:  rd.access.IsAdmin(principal),
		Lang:   i18n.FromAcceptLanguage(r.Header.Get("Accept-Language")).String(),
	}
	if r != nil && r.URL != nil {
		chrome.Path = r.URL.Path
	}

	var buf bytes.Buffer
	ctx := templ.WithChildren(httpx.RequestContext(r), body)
	if err := templates.Layout(chrome).Render(ctx, &buf); err != nil {
		rd.logger.Error("render page", zap.String("title", page.Title), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// WriteError renders a short error page.
func (rd Renderer) WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	title := http.StatusText(status)
	rd.Write(w, r, Page{
		Title:      title,
		StatusCode: status,
		Body:       templates.Page("error", map[string]string{"Title": title, "Message": message}),
	})
}
