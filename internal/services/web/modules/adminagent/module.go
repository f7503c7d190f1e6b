// Package adminagent supervises the content generator agent.
package adminagent

import (
	"errors"
	"net/http"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

const (
	startPath  = routepath.AdminAgentPrefix + "start"
	stopPath   = routepath.AdminAgentPrefix + "stop"
	importPath = routepath.AdminAgentPrefix + "import"
)

// Module provides generator agent routes.
type Module struct {
	deps module.Dependencies
}

// New returns a generator agent module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "adminagent" }

// Mount wires generator agent route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Generator == nil {
		return module.Mount{}, errors.New("generator supervisor is required")
	}
	if m.deps.Content == nil {
		return module.Mount{}, errors.New("content service is required")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{
		pages:   pagerender.New(m.deps.Access, m.deps.Logger),
		agent:   m.deps.Generator,
		content: m.deps.Content,
		policy:  m.deps.RequestSchemePolicy,
		logger:  logging.OrNop(m.deps.Logger),
	})
	return module.Mount{
		Prefix:  routepath.AdminAgentPrefix,
		Paths:   []string{routepath.AdminAgent},
		Handler: mux,
	}, nil
}

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminAgent, h.handlePage)
	mux.HandleFunc(http.MethodPost+" "+startPath, h.handleStart)
	mux.HandleFunc(http.MethodPost+" "+stopPath, h.handleStop)
	mux.HandleFunc(http.MethodPost+" "+importPath, h.handleImport)
	mux.HandleFunc(routepath.AdminAgentPrefix, h.handleNotFound)
}
