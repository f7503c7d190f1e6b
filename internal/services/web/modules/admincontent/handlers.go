package admincontent

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/services/web/platform/failures"
	"github.com/prestigeprep/prep/internal/services/web/platform/flash"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

type handlers struct {
	pages   pagerender.Renderer
	content *content.Service
	policy  requestmeta.SchemePolicy
	logger  *zap.Logger
}

type pageView struct {
	Bucket  string
	Current string
	Flash   string
	Error   string
	Sets    []content.SetMeta
}

func (h handlers) handlePage(w http.ResponseWriter, r *http.Request) {
	view := pageView{
		Bucket:  h.content.BucketName(),
		Current: h.content.Current().Set,
	}
	view.Flash, view.Error = flash.Split(flash.ReadAndClear(w, r, h.policy))
	sets, err := h.content.ListSets(r.Context())
	if err != nil {
		h.logger.Warn("list content sets", zap.Error(err))
		if view.Error == "" {
			view.Error = "Could not list content sets."
		}
	}
	view.Sets = sets
	h.pages.Write(w, r, pagerender.Page{Title: "Content Admin", Body: templates.Page("admin_content", view)})
}

func (h handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flash.Write(w, r, flash.Error("invalid form"), h.policy)
		httpx.WriteRedirect(w, r, routepath.AdminContent)
		return
	}
	result, err := h.content.LoadSet(r.Context(), r.PostFormValue("set"))
	if err != nil {
		err = failures.Classify(err)
		h.logger.Warn("import content set", zap.String("set", r.PostFormValue("set")), zap.Error(err))
		flash.Write(w, r, flash.Error(err.Error()), h.policy)
		httpx.WriteRedirect(w, r, routepath.AdminContent)
		return
	}
	flash.Write(w, r, flash.Success(fmt.Sprintf("Loaded %s (%d items).", result.Set, result.Count)), h.policy)
	httpx.WriteRedirect(w, r, routepath.AdminContent)
}
