package adminagent

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/agent"
	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/services/web/platform/failures"
	"github.com/prestigeprep/prep/internal/services/web/platform/flash"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

const (
	defaultScale = 10
	maxScale     = 500
)

type handlers struct {
	pages   pagerender.Renderer
	agent   *agent.Supervisor
	content *content.Service
	policy  requestmeta.SchemePolicy
	logger  *zap.Logger
}

type pageView struct {
	Flash  string
	Error  string
	Status agent.Status
}

func (h handlers) handlePage(w http.ResponseWriter, r *http.Request) {
	var view pageView
	view.Flash, view.Error = flash.Split(flash.ReadAndClear(w, r, h.policy))
	status, err := h.agent.Status(r.Context())
	if err != nil {
		h.logger.Warn("generator status", zap.Error(err))
		if view.Error == "" {
			view.Error = "Could not read agent status."
		}
	}
	if status.Tail == "" {
		status.Tail = "(no log yet)"
	}
	view.Status = status
	h.pages.Write(w, r, pagerender.Page{Title: "Content Agent", Body: templates.Page("admin_agent", view)})
}

func (h handlers) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.done(w, r, flash.Error("invalid form"))
		return
	}
	env := map[string]string{"SCALE": strconv.Itoa(parseScale(r.PostFormValue("scale")))}
	if set := strings.TrimSpace(r.PostFormValue("set")); set != "" {
		if err := content.ValidateSetName(set); err != nil {
			h.done(w, r, flash.Error(failures.Classify(err).Error()))
			return
		}
		env["SET_NAME"] = set
	}
	if err := h.agent.Start(r.Context(), env); err != nil {
		h.fail(w, r, "start generator", err)
		return
	}
	h.done(w, r, flash.Success("Agent started."))
}

func (h handlers) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := h.agent.Stop(r.Context()); err != nil {
		h.fail(w, r, "stop generator", err)
		return
	}
	h.done(w, r, flash.Success("Stop signal sent."))
}

func (h handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.done(w, r, flash.Error("invalid form"))
		return
	}
	ctx := r.Context()
	set, err := h.agent.ResolveImportSet(ctx, r.PostFormValue("set"))
	if err != nil {
		h.fail(w, r, "resolve import set", err)
		return
	}
	result, err := h.content.LoadSet(ctx, set)
	if err != nil {
		h.fail(w, r, "import generated set", err)
		return
	}
	h.done(w, r, flash.Success(fmt.Sprintf("Imported %s (%d items).", result.Set, result.Count)))
}

func (h handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.pages.WriteError(w, r, http.StatusNotFound, "Page not found.")
}

func (h handlers) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	err = failures.Classify(err)
	h.logger.Warn(action, zap.Error(err))
	h.done(w, r, flash.Error(err.Error()))
}

func (h handlers) done(w http.ResponseWriter, r *http.Request, notice flash.Notice) {
	flash.Write(w, r, notice, h.policy)
	httpx.WriteRedirect(w, r, routepath.AdminAgent)
}

func parseScale(raw string) int {
	scale, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || scale < 1 {
		return defaultScale
	}
	return min(scale, maxScale)
}
