package adminwebagent

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/agent"
	apperrors "github.com/prestigeprep/prep/internal/services/web/platform/errors"
	"github.com/prestigeprep/prep/internal/services/web/platform/failures"
	"github.com/prestigeprep/prep/internal/services/web/platform/flash"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

// Launcher defaults, passed to the agent as MODEL, ITERS, and TIMEOUT.
const (
	DefaultModel   = "gemini-2.5-pro"
	DefaultIters   = 25
	DefaultTimeout = 9000
)

type handlers struct {
	pages  pagerender.Renderer
	agent  *agent.Supervisor
	policy requestmeta.SchemePolicy
	logger *zap.Logger
}

type pageView struct {
	Flash  string
	Error  string
	Status agent.Status
	Steps  []agent.StepResult
	Files  []string
	File   string
}

func (h handlers) handlePage(w http.ResponseWriter, r *http.Request) {
	var view pageView
	view.Flash, view.Error = flash.Split(flash.ReadAndClear(w, r, h.policy))
	h.render(w, r, http.StatusOK, view)
}

func (h handlers) render(w http.ResponseWriter, r *http.Request, status int, view pageView) {
	st, err := h.agent.Status(r.Context())
	if err != nil {
		h.logger.Warn("web agent status", zap.Error(err))
	}
	view.Status = st
	logs, err := h.agent.LogTail(r.URL.Query().Get("file"), 1)
	if err != nil {
		h.logger.Warn("web agent logs", zap.Error(err))
	}
	view.Files, view.File = logs.Files, logs.File
	h.pages.Write(w, r, pagerender.Page{Title: "Web Agent", StatusCode: status, Body: templates.Page("admin_web", view)})
}

func (h handlers) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.done(w, r, flash.Error("invalid form"))
		return
	}
	model := strings.TrimSpace(r.PostFormValue("model"))
	if model == "" {
		model = DefaultModel
	}
	env := map[string]string{
		"MODEL":      model,
		"ITERS":      strconv.Itoa(positive(r.PostFormValue("iters"), DefaultIters)),
		"TIMEOUT":    strconv.Itoa(positive(r.PostFormValue("timeout"), DefaultTimeout)),
		"GOALS_TEXT": r.PostFormValue("goals"),
	}
	if err := h.agent.Start(r.Context(), env); err != nil {
		h.fail(w, r, "start web agent", err)
		return
	}
	h.done(w, r, flash.Success("Web agent started."))
}

func (h handlers) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := h.agent.Stop(r.Context()); err != nil {
		h.fail(w, r, "stop web agent", err)
		return
	}
	h.done(w, r, flash.Success("Web agent stopped."))
}

func (h handlers) handlePublish(w http.ResponseWriter, r *http.Request) {
	steps, err := h.agent.Publish(r.Context())
	view := pageView{Steps: steps, Flash: "Build and restart finished."}
	h.renderResult(w, r, "publish web agent changes", view, err)
}

func (h handlers) handleCommit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.done(w, r, flash.Error("invalid form"))
		return
	}
	result, err := h.agent.CommitAndPush(r.Context(), r.PostFormValue("branch"), r.PostFormValue("message"))
	view := pageView{Steps: result.Steps, Flash: "Pushed branch " + result.Branch + "."}
	h.renderResult(w, r, "commit web agent changes", view, err)
}

// renderResult shows command output in place rather than redirecting, since
// it is too large for a flash cookie.
func (h handlers) renderResult(w http.ResponseWriter, r *http.Request, action string, view pageView, err error) {
	if err == nil {
		h.render(w, r, http.StatusOK, view)
		return
	}
	err = failures.Classify(err)
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(action, zap.Error(err))
	}
	view.Flash, view.Error = "", err.Error()
	h.render(w, r, status, view)
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
	httpx.WriteRedirect(w, r, routepath.AdminWeb)
}

func positive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
