package drills

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/platform/i18n"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/practice"
	apperrors "github.com/prestigeprep/prep/internal/services/web/platform/errors"
	"github.com/prestigeprep/prep/internal/services/web/platform/failures"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

type handlers struct {
	pages    pagerender.Renderer
	practice *practice.Service
	content  *content.Service
	now      func() time.Time
	logger   *zap.Logger
}

type feedback struct {
	Correct     bool
	Choice      string
	Answer      string
	Explanation string
}

type drillsView struct {
	Set        string
	CountLabel string
	Locked     bool
	LockReason string
	Feedback   *feedback
	Items      []content.Item
	StartedAt  string
	Page       int
	PrevPage   int
	NextPage   int
}

func (h handlers) handleDrills(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, parsePage(r.URL.Query().Get("page")), nil)
}

func (h handlers) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	page := parsePage(r.PostFormValue("page"))
	ctx := r.Context()
	principal, _ := requestctx.PrincipalFromContext(ctx)

	lock, err := h.practice.DrillGate(ctx, principal.UserID)
	if err != nil {
		h.logger.Warn("read drill lock", zap.String("user", principal.UserID), zap.Error(err))
		lock = practice.Lock{Reason: practice.LockReason}
	}
	if !lock.CanDrill {
		h.render(w, r, http.StatusForbidden, page, nil)
		return
	}

	result, err := h.practice.RecordAttempt(ctx, principal, h.content, practice.AttemptInput{
		ItemID:    r.PostFormValue("item"),
		Choice:    r.PostFormValue("choice"),
		StartedAt: parseStartedAt(r.PostFormValue("started_at")),
	})
	if err != nil {
		err = failures.Classify(err)
		status := apperrors.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("record attempt", zap.String("user", principal.UserID), zap.Error(err))
		}
		h.pages.WriteError(w, r, status, err.Error())
		return
	}
	h.render(w, r, http.StatusOK, page, &feedback{
		Correct:     result.Attempt.Correct,
		Choice:      result.Attempt.Choice,
		Answer:      result.Item.Answer(),
		Explanation: result.Item.Explanation(),
	})
}

func (h handlers) render(w http.ResponseWriter, r *http.Request, status, page int, fb *feedback) {
	ctx := r.Context()
	userID := requestctx.UserIDFromContext(ctx)
	printer := i18n.Printer(i18n.FromAcceptLanguage(r.Header.Get("Accept-Language")))

	lock, err := h.practice.DrillGate(ctx, userID)
	if err != nil {
		h.logger.Warn("read drill lock", zap.String("user", userID), zap.Error(err))
		lock = practice.Lock{Reason: practice.LockReason}
	}
	window := h.content.Items((page-1)*PageSize, PageSize)
	view := drillsView{
		Set:        window.Set,
		CountLabel: printer.Sprintf(i18n.KeyItemCount, window.Count),
		Locked:     !lock.CanDrill,
		LockReason: lock.Reason,
		Feedback:   fb,
		Items:      window.Items,
		StartedAt:  h.now().UTC().Format(time.RFC3339Nano),
		Page:       page,
	}
	if page > 1 {
		view.PrevPage = page - 1
	}
	if page*PageSize < window.Count {
		view.NextPage = page + 1
	}
	h.pages.Write(w, r, pagerender.Page{Title: "Drill Runner", StatusCode: status, Body: templates.Page("drills", view)})
}

// maxPage keeps page arithmetic far from int overflow.
const maxPage = 1 << 20

func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return min(page, maxPage)
}

func parseStartedAt(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}
	}
	return t
}
