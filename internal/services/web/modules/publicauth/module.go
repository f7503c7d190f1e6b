// Package publicauth owns sign-in, sign-out, and the Google OAuth round trip.
package publicauth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// Module provides authentication routes.
type Module struct {
	deps     module.Dependencies
	provider Provider
	client   *http.Client
}

// Option customizes a Module.
type Option func(*Module)

// WithProvider overrides the Google endpoints.
func WithProvider(provider Provider) Option {
	return func(m *Module) { m.provider = provider }
}

// WithHTTPClient sets the client used for token and profile requests. A
// nil client keeps the default.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Module) {
		if client != nil {
			m.client = client
		}
	}
}

// New returns an auth module.
func New(deps module.Dependencies, opts ...Option) Module {
	m := Module{deps: deps, provider: GoogleProvider(), client: http.DefaultClient}
	for _, opt := range opts {
		opt(&m)
	}
	m.provider.ClientID = strings.TrimSpace(deps.GoogleClientID)
	m.provider.ClientSecret = strings.TrimSpace(deps.GoogleClientSecret)
	return m
}

// ID returns a stable module identifier.
func (Module) ID() string { return "publicauth" }

// Mount wires auth route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Sessions == nil {
		return module.Mount{}, errors.New("session manager is required")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{
		pages:    pagerender.New(m.deps.Access, m.deps.Logger),
		sessions: m.deps.Sessions,
		provider: m.provider,
		client:   m.client,
		baseURL:  m.deps.PublicBaseURL,
		devLogin: m.deps.DevLogin,
		logger:   m.deps.Logger,
	})
	return module.Mount{
		Paths: []string{
			routepath.Login,
			routepath.LoginDev,
			routepath.Logout,
			routepath.GoogleStart,
			routepath.GoogleCallback,
		},
		Handler: mux,
	}, nil
}
