package contentapi

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prestigeprep/prep/internal/agent"
	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/platform/timeouts"
	"github.com/prestigeprep/prep/internal/practice"
	apperrors "github.com/prestigeprep/prep/internal/services/web/platform/errors"
	"github.com/prestigeprep/prep/internal/services/web/platform/failures"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/storage/docstore"
	"github.com/prestigeprep/prep/internal/storage/objectstore"
)

type handlers struct {
	content  *content.Service
	practice *practice.Service
	bucket   objectstore.Bucket
	store    docstore.Store
	webAgent *agent.Supervisor
	diagEnv  []string
	logger   *zap.Logger
}

func (h handlers) handleCurrentSet(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, h.content.Current())
}

func (h handlers) handleItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_ = httpx.WriteJSON(w, http.StatusOK, h.content.Items(queryInt(q.Get("offset")), queryInt(q.Get("limit"))))
}

func (h handlers) handleLoadSet(w http.ResponseWriter, r *http.Request) {
	set := strings.TrimSpace(r.URL.Query().Get("set"))
	if set == "" && r.Method == http.MethodPost && r.ContentLength != 0 {
		var body struct {
			Set string `json:"set"`
		}
		if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err == nil {
			set = strings.TrimSpace(body.Set)
		}
	}
	if set == "" {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "Missing set id (?set=)")
		return
	}
	result, err := h.content.LoadSet(r.Context(), set)
	if err != nil {
		h.fail(w, "load set", err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "set": result.Set, "count": result.Count})
}

func (h handlers) handleContentSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.content.ListSets(r.Context())
	if err != nil {
		h.fail(w, "list content sets", err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"sets": sets})
}

func (h handlers) handleIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GCSPath string `json:"gcsPath"`
		Count   int    `json:"count"`
	}
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
		httpx.WriteJSONFailure(w, err)
		return
	}
	id, err := h.content.Ingest(r.Context(), body.GCSPath, body.Count)
	if err != nil {
		h.fail(w, "ingest content set", err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h handlers) handleCheckin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
			httpx.WriteJSONFailure(w, err)
			return
		}
	}
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	saved, err := h.practice.Checkin(r.Context(), principal, practice.CheckinInput{
		Status:    body.Status,
		Note:      body.Note,
		UserAgent: r.UserAgent(),
		IP:        requestmeta.ClientIP(r),
	})
	if err != nil {
		h.fail(w, "check-in", err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "saved": saved})
}

func (h handlers) handleLocks(w http.ResponseWriter, r *http.Request) {
	lock, err := h.practice.Locks(r.Context(), requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, "read locks", err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, lock)
}

func (h handlers) handleAttempts(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string    `json:"sessionId"`
		ItemID    string    `json:"itemId"`
		Choice    string    `json:"choice"`
		StartedAt time.Time `json:"startedAt"`
	}
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
		httpx.WriteJSONFailure(w, err)
		return
	}
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	result, err := h.practice.RecordAttempt(r.Context(), principal, h.content, practice.AttemptInput{
		SessionID: body.SessionID,
		ItemID:    body.ItemID,
		Choice:    body.Choice,
		StartedAt: body.StartedAt,
	})
	if err != nil {
		h.fail(w, "record attempt", err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": result.Attempt.ID, "correct": result.Attempt.Correct})
}

type probe struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	Location string `json:"location,omitempty"`
}

// handleDiag reports configuration presence and storage reachability. Env
// values are reported by length only.
func (h handlers) handleDiag(w http.ResponseWriter, r *http.Request) {
	env := make(map[string]int, len(h.diagEnv))
	for _, name := range h.diagEnv {
		env[name+"_len"] = len(os.Getenv(name))
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Diag)
	defer cancel()
	var gcs, firestore probe
	var group errgroup.Group
	group.Go(func() error {
		attrs, err := h.bucket.Attrs(ctx)
		gcs = probe{OK: err == nil, Bucket: attrs.Name, Location: attrs.Location}
		if err != nil {
			gcs.Error = err.Error()
		}
		return nil
	})
	group.Go(func() error {
		err := h.store.Ping(ctx)
		firestore = probe{OK: err == nil}
		if err != nil {
			firestore.Error = err.Error()
		}
		return nil
	})
	_ = group.Wait()

	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"env":       env,
		"gcs":       gcs,
		"firestore": firestore,
	})
}

func (h handlers) handleWebAgentLog(w http.ResponseWriter, r *http.Request) {
	if h.webAgent == nil {
		_ = httpx.WriteJSONError(w, http.StatusServiceUnavailable, "web agent is not configured")
		return
	}
	q := r.URL.Query()
	view, err := h.webAgent.LogTail(q.Get("file"), queryInt(q.Get("limit")))
	if err != nil {
		h.fail(w, "read web agent log", err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, view)
}

func (h handlers) fail(w http.ResponseWriter, action string, err error) {
	err = failures.Classify(err)
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error(action, zap.Error(err))
	}
	httpx.WriteJSONFailure(w, err)
}

func queryInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
