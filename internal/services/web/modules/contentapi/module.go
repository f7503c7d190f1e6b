// Package contentapi serves the JSON API used by the drill runner and
// admin tooling under /api/.
package contentapi

import (
	"errors"
	"net/http"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/authz"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Module provides content and practice JSON routes.
type Module struct {
	deps module.Dependencies
}

// New returns a content API module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "contentapi" }

// Mount wires content API route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Content == nil || m.deps.Practice == nil {
		return module.Mount{}, errors.New("content and practice services are required")
	}
	if m.deps.Bucket == nil || m.deps.Store == nil {
		return module.Mount{}, errors.New("bucket and store are required")
	}
	h := handlers{
		content:  m.deps.Content,
		practice: m.deps.Practice,
		bucket:   m.deps.Bucket,
		store:    m.deps.Store,
		webAgent: m.deps.WebAgent,
		diagEnv:  m.deps.DiagEnv,
		logger:   logging.OrNop(m.deps.Logger),
	}
	mux := http.NewServeMux()
	registerRoutes(mux, h, m.deps.Access)
	return module.Mount{Prefix: routepath.APIPrefix, Handler: mux}, nil
}

func registerRoutes(mux *http.ServeMux, h handlers, access authz.Policy) {
	user := func(fn http.HandlerFunc) http.Handler { return authz.RequireUserJSON(fn) }
	admin := func(fn http.HandlerFunc) http.Handler { return access.RequireAdminJSON(fn) }

	mux.HandleFunc(http.MethodGet+" "+routepath.APICurrentSet, h.handleCurrentSet)
	mux.HandleFunc(http.MethodGet+" "+routepath.APIItems, h.handleItems)
	mux.Handle(http.MethodGet+" "+routepath.APILoadSet, admin(h.handleLoadSet))
	mux.Handle(http.MethodPost+" "+routepath.APILoadSet, admin(h.handleLoadSet))
	mux.Handle(http.MethodGet+" "+routepath.APIContentSets, admin(h.handleContentSets))
	mux.Handle(http.MethodPost+" "+routepath.APIIngest, admin(h.handleIngest))
	mux.Handle(http.MethodPost+" "+routepath.APICheckin, user(h.handleCheckin))
	mux.Handle(http.MethodGet+" "+routepath.APILocks, user(h.handleLocks))
	mux.Handle(http.MethodPost+" "+routepath.APIAttempts, user(h.handleAttempts))
	mux.Handle(http.MethodGet+" "+routepath.APIDiag, admin(h.handleDiag))
	mux.Handle(http.MethodGet+" "+routepath.APIWebAgentLog, admin(h.handleWebAgentLog))
	mux.HandleFunc(routepath.APIPrefix, func(w http.ResponseWriter, _ *http.Request) {
		_ = httpx.WriteJSONError(w, http.StatusNotFound, "Not found")
	})
}
