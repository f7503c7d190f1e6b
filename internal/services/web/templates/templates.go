// Package templates renders pages as templ components. The layout wraps a
// page body supplied through templ children; bodies are html/template
// documents embedded from pages/.
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/prestigeprep/prep/internal/platform/requestctx"
)

//go:embed pages/*.html
var pageFS embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"percent": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"join":    strings.Join,
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"add": func(a, b int) int { return a + b },
}).ParseFS(pageFS, "pages/*.html"))

// AppName is shown in the title and header.
const AppName = "Prestige Prep"

// Chrome is the per-request layout data.
type Chrome struct {
	Title  string
	Viewer requestctx.Principal
	// Admin shows admin navigation.
	Admin bool
	Path  string
	Lang  string
}

// FullTitle returns the document title.
func (c Chrome) FullTitle() string {
	if c.Title == "" || c.Title == AppName {
		return AppName
	}
	return c.Title + " · " + AppName
}

// SignedIn reports whether a viewer is present.
func (c Chrome) SignedIn() bool { return c.Viewer.Authenticated() }

// Layout renders the document shell around the children in ctx.
func Layout(chrome Chrome) templ.Component {
	if chrome.Lang == "" {
		chrome.Lang = "en"
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := pages.ExecuteTemplate(w, "layout_open", chrome); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}
		return pages.ExecuteTemplate(w, "layout_close", chrome)
	})
}

// Page returns the named body template bound to data.
func Page(name string, data any) templ.Component {
	t := pages.Lookup(name)
	if t == nil {
		return templ.ComponentFunc(func(context.Context, io.Writer) error {
			return fmt.Errorf("unknown page template %q", name)
		})
	}
	return templ.FromGoHTML(t, data)
}
