// Package agentapi serves the draft endpoints called by the web agent.
// Requests authenticate with a bearer token rather than a session.
package agentapi

import (
	"errors"
	"net/http"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// maxBodyBytes bounds pushed drafts.
const maxBodyBytes = 8 << 20

// Module provides agent draft routes.
type Module struct {
	deps module.Dependencies
}

// New returns an agent API module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "agentapi" }

// Mount wires agent draft route handlers behind CORS and the bearer token.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Content == nil {
		return module.Mount{}, errors.New("content service is required")
	}
	h := handlers{content: m.deps.Content, logger: logging.OrNop(m.deps.Logger)}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" "+routepath.APIPushItems, h.handlePushItems)
	mux.HandleFunc(http.MethodGet+" "+routepath.APIReadDraft, h.handleReadDraft)
	mux.HandleFunc(http.MethodPost+" "+routepath.APIBuildSet, h.handleBuildSet)
	return module.Mount{
		Paths:   []string{routepath.APIPushItems, routepath.APIReadDraft, routepath.APIBuildSet},
		Handler: httpx.Chain(mux, httpx.CORS(), httpx.BearerToken(m.deps.AgentToken)),
	}, nil
}
