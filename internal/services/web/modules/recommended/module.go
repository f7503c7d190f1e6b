// Package recommended ranks a student's weak areas from recent attempts.
package recommended

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/practice"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

// Module provides the recommendations page.
type Module struct {
	deps module.Dependencies
}

// New returns a recommended module.
func New(deps module.Dependencies) Module { return Module{deps: deps} }

// ID returns a stable module identifier.
func (Module) ID() string { return "recommended" }

// Mount wires the recommendations handler.
func (m Module) Mount() (module.Mount, error) {
	if m.deps.Practice == nil {
		return module.Mount{}, errors.New("practice service is required")
	}
	pages := pagerender.New(m.deps.Access, m.deps.Logger)
	svc := m.deps.Practice
	logger := logging.OrNop(m.deps.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.Recommended, func(w http.ResponseWriter, r *http.Request) {
		userID := requestctx.UserIDFromContext(r.Context())
		rows, err := svc.Recommend(r.Context(), userID)
		if err != nil {
			logger.Warn("recommend", zap.String("user", userID), zap.Error(err))
		}
		pages.Write(w, r, pagerender.Page{
			Title: "Recommended",
			Body: templates.Page("recommended", struct {
				Unavailable bool
				Rows        []practice.WeakArea
			}{Unavailable: err != nil, Rows: rows}),
		})
	})
	return module.Mount{Paths: []string{routepath.Recommended}, Handler: mux}, nil
}
