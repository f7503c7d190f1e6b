package publicauth

import (
	"net/http"

	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.Login, h.handleLogin)
	mux.HandleFunc(http.MethodPost+" "+routepath.LoginDev, h.handleDevLogin)
	mux.HandleFunc(http.MethodPost+" "+routepath.Logout, h.handleLogout)
	mux.HandleFunc(http.MethodGet+" "+routepath.GoogleStart, h.handleGoogleStart)
	mux.HandleFunc(http.MethodGet+" "+routepath.GoogleCallback, h.handleGoogleCallback)
}
