// Package dashboard serves the signed-in student's overview and account
// pages.
package dashboard

import (
	"errors"
	"net/http"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// DailyGoal is the number of items students are asked to complete a day.
const DailyGoal = 10

// Module provides dashboard routes.
type Module struct {
	deps module.Dependencies
}

// New returns a dashboard module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "dashboard" }

// Mount wires dashboard route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Practice == nil || m.deps.Content == nil {
		return module.Mount{}, errors.New("practice and content services are required")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{
		pages:    pagerender.New(m.deps.Access, m.deps.Logger),
		practice: m.deps.Practice,
		content:  m.deps.Content,
		logger:   logging.OrNop(m.deps.Logger),
	})
	return module.Mount{Paths: []string{routepath.Dashboard, routepath.Account}, Handler: mux}, nil
}

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.Dashboard, h.handleDashboard)
	mux.HandleFunc(http.MethodGet+" "+routepath.Account, h.handleAccount)
}
