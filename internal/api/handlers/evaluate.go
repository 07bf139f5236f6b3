package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/service"
)

type EvaluateHandler struct {
	svc *service.EvaluationService
}

func NewEvaluateHandler(svc *service.EvaluationService) *EvaluateHandler {
	return &EvaluateHandler{svc: svc}
}

type evaluateRequest struct {
	SourceURL    string         `json:"source_url"`
	ClaimedYear  int            `json:"claimed_year,omitempty"`
	ClaimedMake  string         `json:"claimed_make,omitempty"`
	ClaimedModel string         `json:"claimed_model,omitempty"`
	Extracted    map[string]any `json:"extracted"`
	DryRun       bool           `json:"dry_run,omitempty"`
}

// Create evaluates an extraction and, unless dry_run is set, persists the
// decision along with a doubt-queue item for every doubted field.
func (h *EvaluateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Extracted) == 0 {
		writeError(w, http.StatusBadRequest, "extracted is required")
		return
	}

	ec := domain.EvalContext{
		SourceURL:    req.SourceURL,
		SourceDomain: domainOf(req.SourceURL),
		ClaimedYear:  req.ClaimedYear,
		ClaimedMake:  req.ClaimedMake,
		ClaimedModel: req.ClaimedModel,
	}

	if req.DryRun {
		writeJSON(w, http.StatusOK, h.svc.Evaluate(r.Context(), req.Extracted, ec))
		return
	}

	d, err := h.svc.EvaluateAndPersist(r.Context(), req.Extracted, ec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist evaluation")
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// domainOf extracts a normalized host from a source URL. Bare hostnames are
// accepted as-is.
func domainOf(raw string) string {
	if raw == "" {
		return ""
	}
	host := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	return strings.Trim(host, "/")
}
