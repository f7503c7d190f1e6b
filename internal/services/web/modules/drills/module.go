// Package drills serves the paged drill runner and records answers.
package drills

import (
	"errors"
	"net/http"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// PageSize is the number of items shown per drill page.
const PageSize = 10

// Module provides drill runner routes.
type Module struct {
	deps module.Dependencies
}

// New returns a drills module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "drills" }

// Mount wires drill route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Practice == nil || m.deps.Content == nil {
		return module.Mount{}, errors.New("practice and content services are required")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{
		pages:    pagerender.New(m.deps.Access, m.deps.Logger),
		practice: m.deps.Practice,
		content:  m.deps.Content,
		now:      m.deps.Clock(),
		logger:   logging.OrNop(m.deps.Logger),
	})
	return module.Mount{Paths: []string{routepath.Drills, routepath.DrillsAnswer}, Handler: mux}, nil
}

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.Drills, h.handleDrills)
	mux.HandleFunc(http.MethodPost+" "+routepath.DrillsAnswer, h.handleAnswer)
	mux.HandleFunc(http.MethodGet+" "+routepath.DrillsAnswer, httpx.MethodNotAllowed(http.MethodPost))
}
