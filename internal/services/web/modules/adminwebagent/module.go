// Package adminwebagent supervises the web agent: start and stop, publish,
// commit and push, and a live view of its report logs.
package adminwebagent

import (
	"errors"
	"net/http"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

const (
	startPath   = routepath.AdminWebPrefix + "start"
	stopPath    = routepath.AdminWebPrefix + "stop"
	publishPath = routepath.AdminWebPrefix + "publish"
	commitPath  = routepath.AdminWebPrefix + "commit"
)

// Module provides web agent routes.
type Module struct {
	deps module.Dependencies
}

// New returns a web agent module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "adminwebagent" }

// Mount wires web agent route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.WebAgent == nil {
		return module.Mount{}, errors.New("web agent supervisor is required")
	}
	logger := logging.OrNop(m.deps.Logger)
	h := handlers{
		pages:  pagerender.New(m.deps.Access, logger),
		agent:  m.deps.WebAgent,
		policy: m.deps.RequestSchemePolicy,
		logger: logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminWeb, h.handlePage)
	mux.HandleFunc(http.MethodPost+" "+startPath, h.handleStart)
	mux.HandleFunc(http.MethodPost+" "+stopPath, h.handleStop)
	mux.HandleFunc(http.MethodPost+" "+publishPath, h.handlePublish)
	mux.HandleFunc(http.MethodPost+" "+commitPath, h.handleCommit)
	mux.Handle(http.MethodGet+" "+routepath.AdminWebLogStream, newStream(m.deps.WebAgent, m.deps.RequestSchemePolicy, logger))
	mux.HandleFunc(routepath.AdminWebPrefix, h.handleNotFound)
	return module.Mount{
		Prefix:  routepath.AdminWebPrefix,
		Paths:   []string{routepath.AdminWeb},
		Handler: mux,
	}, nil
}
