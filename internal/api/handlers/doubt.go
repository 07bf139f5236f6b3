package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/store"
)

type DoubtHandler struct {
	doubts domain.DoubtQueueStore
}

func NewDoubtHandler(doubts domain.DoubtQueueStore) *DoubtHandler {
	return &DoubtHandler{doubts: doubts}
}

func (h *DoubtHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid doubt id")
		return
	}

	item, err := h.doubts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "doubt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get doubt")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

type listDoubtsResponse struct {
	Doubts []domain.DoubtQueueItem `json:"doubts"`
	Count  int                     `json:"count"`
}

func (h *DoubtHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.DoubtStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.DoubtPending
	}
	switch status {
	case domain.DoubtPending, domain.DoubtClaimed, domain.DoubtResolved, domain.DoubtExpired:
	default:
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	items, err := h.doubts.ListByStatus(r.Context(), status, queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list doubts")
		return
	}

	writeJSON(w, http.StatusOK, listDoubtsResponse{Doubts: items, Count: len(items)})
}

func (h *DoubtHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.doubts.CountByStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count doubts")
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

type claimRequest struct {
	Limit     int    `json:"limit,omitempty"`
	ClaimedBy string `json:"claimed_by"`
	Priority  string `json:"priority,omitempty"`
	DoubtType string `json:"doubt_type,omitempty"`
}

// Claim atomically moves up to limit pending doubts to claimed on behalf of
// an external reviewer. Two concurrent claims never receive the same item.
func (h *DoubtHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClaimedBy == "" {
		writeError(w, http.StatusBadRequest, "claimed_by is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	var filter domain.ClaimFilter
	if req.Priority != "" {
		if !domain.ValidPriority(req.Priority) {
			writeError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		p := domain.Priority(req.Priority)
		filter.Priority = &p
	}
	if req.DoubtType != "" {
		if !domain.ValidDoubtType(req.DoubtType) {
			writeError(w, http.StatusBadRequest, "invalid doubt_type")
			return
		}
		t := domain.DoubtType(req.DoubtType)
		filter.DoubtType = &t
	}

	items, err := h.doubts.ClaimBatch(r.Context(), req.Limit, req.ClaimedBy, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to claim doubts")
		return
	}

	writeJSON(w, http.StatusOK, listDoubtsResponse{Doubts: items, Count: len(items)})
}

type resolveRequest struct {
	Resolution        string         `json:"resolution"`
	Reason            string         `json:"reason"`
	ResolvedBy        string         `json:"resolved_by"`
	Findings          map[string]any `json:"findings,omitempty"`
	CreatePattern     bool           `json:"create_pattern,omitempty"`
	PatternType       string         `json:"pattern_type,omitempty"`
	PatternDefinition map[string]any `json:"pattern_definition,omitempty"`
	PatternResolution string         `json:"pattern_resolution,omitempty"`
	PatternConfidence float64        `json:"pattern_confidence,omitempty"`
}

// Resolve records a manual resolution for a claimed doubt. Resolving an
// already resolved doubt returns 409.
func (h *DoubtHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid doubt id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidResolution(req.Resolution) {
		writeError(w, http.StatusBadRequest, "invalid resolution")
		return
	}
	if req.ResolvedBy == "" {
		writeError(w, http.StatusBadRequest, "resolved_by is required")
		return
	}
	if req.CreatePattern {
		if req.PatternType == "" || !domain.ValidPatternResolution(req.PatternResolution) {
			writeError(w, http.StatusBadRequest, "pattern_type and pattern_resolution are required to create a pattern")
			return
		}
		if req.PatternConfidence <= 0 {
			req.PatternConfidence = domain.NewPatternConfidence
		}
	}

	err = h.doubts.Resolve(r.Context(), domain.ResolveRequest{
		ID:                id,
		Resolution:        domain.Resolution(req.Resolution),
		Reason:            req.Reason,
		Findings:          req.Findings,
		ResolvedBy:        req.ResolvedBy,
		CreatePattern:     req.CreatePattern,
		PatternType:       domain.PatternType(req.PatternType),
		PatternDefinition: req.PatternDefinition,
		PatternResolution: domain.Resolution(req.PatternResolution),
		PatternConfidence: req.PatternConfidence,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "doubt not found")
		case errors.Is(err, store.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, "doubt already resolved")
		case errors.Is(err, store.ErrNotClaimed):
			writeError(w, http.StatusConflict, "doubt is not claimed")
		default:
			writeError(w, http.StatusInternalServerError, "failed to resolve doubt")
		}
		return
	}

	item, err := h.doubts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load resolved doubt")
		return
	}

	writeJSON(w, http.StatusOK, item)
}
