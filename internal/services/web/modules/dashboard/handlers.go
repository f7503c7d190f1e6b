package dashboard

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/platform/i18n"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/practice"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

type handlers struct {
	pages    pagerender.Renderer
	practice *practice.Service
	content  *content.Service
	logger   *zap.Logger
}

type dashboardView struct {
	Goal       string
	Strict     bool
	Streak     string
	CheckedIn  bool
	CurrentSet string
	ItemCount  string
}

func (h handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestctx.UserIDFromContext(ctx)
	printer := i18n.Printer(i18n.FromAcceptLanguage(r.Header.Get("Accept-Language")))

	streak, err := h.practice.Streak(ctx, userID)
	if err != nil {
		h.logger.Warn("dashboard streak", zap.String("user", userID), zap.Error(err))
	}
	checkedIn, err := h.practice.CheckedInToday(ctx, userID)
	if err != nil {
		h.logger.Warn("dashboard check-in", zap.String("user", userID), zap.Error(err))
	}
	current := h.content.Current()
	view := dashboardView{
		Goal:       printer.Sprintf(i18n.KeyDailyGoal, DailyGoal),
		Strict:     h.practice.StrictLocks(),
		Streak:     printer.Sprintf(i18n.KeyStreakDays, streak),
		CheckedIn:  checkedIn,
		CurrentSet: current.Set,
		ItemCount:  printer.Sprintf(i18n.KeyItemCount, current.Count),
	}
	h.pages.Write(w, r, pagerender.Page{Title: "Dashboard", Body: templates.Page("dashboard", view)})
}

func (h handlers) handleAccount(w http.ResponseWriter, r *http.Request) {
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	h.pages.Write(w, r, pagerender.Page{Title: "Account", Body: templates.Page("account", principal)})
}
