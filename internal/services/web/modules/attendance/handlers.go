package attendance

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/platform/i18n"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/practice"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

type handlers struct {
	pages    pagerender.Renderer
	practice *practice.Service
	logger   *zap.Logger
}

func (h handlers) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestctx.UserIDFromContext(ctx)
	streak, err := h.practice.Streak(ctx, userID)
	if err != nil {
		h.logger.Warn("attendance streak", zap.String("user", userID), zap.Error(err))
	}
	status := r.URL.Query().Get("status")
	if status != "ok" && status != "err" {
		status = ""
	}
	printer := i18n.Printer(i18n.FromAcceptLanguage(r.Header.Get("Accept-Language")))
	h.pages.Write(w, r, pagerender.Page{
		Title: "Attendance",
		Body: templates.Page("attendance", map[string]string{
			"Status": status,
			"Streak": printer.Sprintf(i18n.KeyStreakDays, streak),
		}),
	})
}

func (h handlers) handleCheckin(w http.ResponseWriter, r *http.Request) {
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		httpx.WriteRedirect(w, r, routepath.Attendance+"?status=err")
		return
	}
	_, err := h.practice.Checkin(r.Context(), principal, practice.CheckinInput{
		Note:      r.PostFormValue("note"),
		UserAgent: r.UserAgent(),
		IP:        requestmeta.ClientIP(r),
	})
	if err != nil {
		h.logger.Warn("check-in", zap.String("user", principal.UserID), zap.Error(err))
		httpx.WriteRedirect(w, r, routepath.Attendance+"?status=err")
		return
	}
	httpx.WriteRedirect(w, r, routepath.Attendance+"?status=ok")
}
