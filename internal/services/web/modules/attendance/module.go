// Package attendance serves the daily check-in page.
package attendance

import (
	"errors"
	"net/http"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// Module provides attendance routes.
type Module struct {
	deps module.Dependencies
}

// New returns an attendance module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "attendance" }

// Mount wires attendance route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Practice == nil {
		return module.Mount{}, errors.New("practice service is required")
	}
	mux := http.NewServeMux()
	h := handlers{
		pages:    pagerender.New(m.deps.Access, m.deps.Logger),
		practice: m.deps.Practice,
		logger:   logging.OrNop(m.deps.Logger),
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.Attendance, h.handlePage)
	mux.HandleFunc(http.MethodPost+" "+routepath.Attendance, h.handleCheckin)
	return module.Mount{Paths: []string{routepath.Attendance}, Handler: mux}, nil
}
