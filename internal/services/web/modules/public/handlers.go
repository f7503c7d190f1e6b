package public

import (
	"net/http"

	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

type handlers struct {
	pages   pagerender.Renderer
	contact string
}

func (h handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	h.pages.Write(w, r, pagerender.Page{Title: templates.AppName, Body: templates.Page("home", nil)})
}

func (h handlers) handleMethods(w http.ResponseWriter, r *http.Request) {
	h.pages.Write(w, r, pagerender.Page{Title: "Learning Methods", Body: templates.Page("methods", methodCards())})
}

func (h handlers) handleMethod(w http.ResponseWriter, r *http.Request) {
	method, ok := lookupMethod(r.PathValue("slug"))
	if !ok {
		h.pages.Write(w, r, pagerender.Page{
			Title:      "Method not found",
			StatusCode: http.StatusNotFound,
			Body:       templates.Page("method_missing", nil),
		})
		return
	}
	h.pages.Write(w, r, pagerender.Page{Title: method.Title, Body: templates.Page("method", method)})
}

func (h handlers) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	h.pages.Write(w, r, pagerender.Page{Title: "Privacy", Body: templates.Page("privacy", nil)})
}

func (h handlers) handleContact(w http.ResponseWriter, r *http.Request) {
	h.pages.Write(w, r, pagerender.Page{Title: "Contact", Body: templates.Page("contact", h.contact)})
}
