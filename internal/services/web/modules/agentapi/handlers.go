package agentapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/content"
	apperrors "github.com/prestigeprep/prep/internal/services/web/platform/errors"
	"github.com/prestigeprep/prep/internal/services/web/platform/failures"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
)

type handlers struct {
	content *content.Service
	logger  *zap.Logger
}

// setName accepts either field the agent may send.
type setName struct {
	SetName string `json:"setName"`
	Set     string `json:"set"`
}

func (s setName) name() string {
	if s.SetName != "" {
		return s.SetName
	}
	return s.Set
}

func (h handlers) handlePushItems(w http.ResponseWriter, r *http.Request) {
	var body struct {
		setName
		Items []content.Item `json:"items"`
	}
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
		httpx.WriteJSONFailure(w, err)
		return
	}
	result, err := h.content.PushDraft(r.Context(), body.name(), body.Items)
	if err != nil {
		h.fail(w, "push draft", err)
		return
	}
	h.logger.Info("draft pushed", zap.String("set", result.Index.Name), zap.Int("count", result.Index.Count))
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "draft": result, "index": result.Index})
}

func (h handlers) handleReadDraft(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	set := q.Get("set")
	if set == "" {
		set = q.Get("setName")
	}
	doc, err := h.content.ReadDraft(r.Context(), set, q.Get("file"))
	if err != nil {
		h.fail(w, "read draft", err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "set": doc.Set, "path": doc.Path, "data": doc.Data})
}

func (h handlers) handleBuildSet(w http.ResponseWriter, r *http.Request) {
	var body setName
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, maxBodyBytes, &body); err != nil {
			httpx.WriteJSONFailure(w, err)
			return
		}
	}
	result, err := h.content.BuildSet(r.Context(), body.name())
	if err != nil {
		h.fail(w, "build set", err)
		return
	}
	h.logger.Info("set promoted", zap.String("set", result.Set), zap.Int("count", result.Count))
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"set":         result.Set,
		"count":       result.Count,
		"paths":       map[string]string{"sItems": result.ItemsPath, "sIndex": result.IndexPath},
		"contentType": "application/json",
	})
}

func (h handlers) fail(w http.ResponseWriter, action string, err error) {
	err = failures.Classify(err)
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error(action, zap.Error(err))
	}
	httpx.WriteJSONFailure(w, err)
}
