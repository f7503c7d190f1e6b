// Package module defines the feature contract used by web composition.
package module

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/agent"
	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/practice"
	"github.com/prestigeprep/prep/internal/services/web/platform/authz"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/platform/session"
	"github.com/prestigeprep/prep/internal/storage/docstore"
	"github.com/prestigeprep/prep/internal/storage/objectstore"
)

// Mount describes where a module's handler is attached. Prefix is a subtree
// such as "/admin/web/"; Paths are exact paths. At least one is required.
type Mount struct {
	Prefix  string
	Paths   []string
	Handler http.Handler
}

// Module declares the minimum contract required by web composition.
type Module interface {
	ID() string
	Mount() (Mount, error)
}

// Dependencies are the shared services handed to module constructors.
// Modules use only what they need; nil fields disable optional features.
type Dependencies struct {
	Logger   *zap.Logger
	Content  *content.Service
	Practice *practice.Service
	Sessions *session.Manager
	Access   authz.Policy

	Bucket objectstore.Bucket
	Store  docstore.Store

	Generator *agent.Supervisor
	WebAgent  *agent.Supervisor

	// GoogleClientID and GoogleClientSecret enable Google sign-in.
	GoogleClientID     string
	GoogleClientSecret string
	PublicBaseURL      string
	DevLogin           bool

	// RequestSchemePolicy decides Secure on cookies the modules set.
	RequestSchemePolicy requestmeta.SchemePolicy
	// HTTPClient makes outbound calls such as the OAuth token exchange.
	HTTPClient *http.Client

	// ContactEmail is shown on the contact page.
	ContactEmail string

	AgentToken string
	// DiagEnv lists environment variable names reported by /api/diag.
	DiagEnv []string
	Now     func() time.Time
}

// Clock returns Now or time.Now.
func (d Dependencies) Clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}
