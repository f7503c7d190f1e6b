// Package admincontent lists content sets and imports one as current.
package admincontent

import (
	"errors"
	"net/http"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// Module provides content admin routes.
type Module struct {
	deps module.Dependencies
}

// New returns a content admin module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "admincontent" }

// Mount wires content admin route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Content == nil {
		return module.Mount{}, errors.New("content service is required")
	}
	mux := http.NewServeMux()
	h := handlers{
		pages:   pagerender.New(m.deps.Access, m.deps.Logger),
		content: m.deps.Content,
		policy:  m.deps.RequestSchemePolicy,
		logger:  logging.OrNop(m.deps.Logger),
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminContent, h.handlePage)
	mux.HandleFunc(http.MethodPost+" "+routepath.AdminContentImport, h.handleImport)
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminContentImport, httpx.MethodNotAllowed(http.MethodPost))
	return module.Mount{Paths: []string{routepath.AdminContent, routepath.AdminContentImport}, Handler: mux}, nil
}
