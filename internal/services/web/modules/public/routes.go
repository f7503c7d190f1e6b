package public

import (
	"net/http"

	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// homePattern matches only the site root.
const homePattern = routepath.Home + "{$}"

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+homePattern, h.handleHome)
	mux.HandleFunc(http.MethodGet+" "+routepath.Methods, h.handleMethods)
	mux.HandleFunc(http.MethodGet+" "+routepath.MethodsPrefix+"{slug}", h.handleMethod)
	mux.HandleFunc(http.MethodGet+" "+routepath.Privacy, h.handlePrivacy)
	mux.HandleFunc(http.MethodGet+" "+routepath.Contact, h.handleContact)
}
