package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/sakif/practice-tracker/internal/auth"
	"github.com/sakif/practice-tracker/internal/model"
)

// ProgressManager is the progress logic behind /progress.
type ProgressManager interface {
	Enrich(ctx context.Context, userID string) ([]model.EnrichedProgress, error)
	Upsert(ctx context.Context, userID, problemID string, completed bool) (*model.Progress, error)
	Summarize(ctx context.Context, userID string) (model.Summary, error)
}

type ProgressHandler struct {
	progress ProgressManager
	logger   *slog.Logger
}

func NewProgressHandler(progress ProgressManager, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, logger: logger}
}

// HandleList handles GET /progress.
func (h *ProgressHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	records, err := h.progress.Enrich(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// upsertRequest keeps both fields raw: problemId may be a string or a number
// and completed is coerced by truthiness, not decoded as a strict bool.
type upsertRequest struct {
	ProblemID json.RawMessage `json:"problemId"`
	Completed json.RawMessage `json:"completed"`
}

// HandleUpsert handles POST /progress.
func (h *ProgressHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req upsertRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid progress JSON", slog.String("error", err.Error()))
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	problemID, ok := identifier(req.ProblemID)
	if !ok {
		writeMsg(w, http.StatusBadRequest, "problemId must be a string or number")
		return
	}

	p, err := h.progress.Upsert(r.Context(), userID, problemID, truthy(req.Completed))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleSummary handles GET /progress/summary.
func (h *ProgressHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	summary, err := h.progress.Summarize(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ProgressHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeMsg(w, http.StatusUnauthorized, auth.MsgNoToken)
	}
	return id, ok
}

// identifier turns a raw problemId into its string form. Falsy values (absent,
// null, false, 0, "") yield "" so the service rejects them as missing. Other
// non-string, non-number values are not identifiers.
func identifier(raw json.RawMessage) (string, bool) {
	if !truthy(raw) {
		return "", true
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false
	}

	switch id := v.(type) {
	case string:
		return id, true
	case json.Number:
		return id.String(), true
	}
	return "", false
}

// truthy applies JavaScript truthiness to a raw JSON value. Absent and null
// are false, as are false, 0 and the empty string. Objects and arrays are true.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case string:
		return val != ""
	}
	return true
}
