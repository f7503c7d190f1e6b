// Package public serves the unauthenticated marketing and policy pages.
package public

import (
	"net/http"

	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// DefaultContactEmail is used when no contact address is configured.
const DefaultContactEmail = "donkey.right.productions@gmail.com"

// Module provides public routes.
type Module struct {
	deps module.Dependencies
}

// New returns a public module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "public" }

// Mount wires public route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	contact := m.deps.ContactEmail
	if contact == "" {
		contact = DefaultContactEmail
	}
	registerRoutes(mux, handlers{
		pages:   pagerender.New(m.deps.Access, m.deps.Logger),
		contact: contact,
	})
	return module.Mount{
		Prefix:  routepath.MethodsPrefix,
		Paths:   []string{homePattern, routepath.Methods, routepath.Privacy, routepath.Contact},
		Handler: mux,
	}, nil
}
