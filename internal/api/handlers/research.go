package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/service"
)

type ResearchHandler struct {
	svc *service.ResearchService
}

func NewResearchHandler(svc *service.ResearchService) *ResearchHandler {
	return &ResearchHandler{svc: svc}
}

type runResearchRequest struct {
	Limit     int    `json:"limit,omitempty"`
	Priority  string `json:"priority,omitempty"`
	DoubtType string `json:"doubt_type,omitempty"`
}

// Run triggers one research cycle immediately, outside the background
// runner's schedule. An empty body runs the default batch.
func (h *ResearchHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := service.BatchOptions{Limit: req.Limit}
	if req.Priority != "" {
		if !domain.ValidPriority(req.Priority) {
			writeError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		p := domain.Priority(req.Priority)
		opts.Priority = &p
	}
	if req.DoubtType != "" {
		if !domain.ValidDoubtType(req.DoubtType) {
			writeError(w, http.StatusBadRequest, "invalid doubt_type")
			return
		}
		t := domain.DoubtType(req.DoubtType)
		opts.DoubtType = &t
	}

	report, err := h.svc.RunBatch(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "research batch failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
