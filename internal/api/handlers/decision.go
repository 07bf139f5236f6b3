package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/store"
)

type DecisionHandler struct {
	decisions domain.DecisionStore
}

func NewDecisionHandler(decisions domain.DecisionStore) *DecisionHandler {
	return &DecisionHandler{decisions: decisions}
}

func (h *DecisionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid decision id")
		return
	}

	d, err := h.decisions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "decision not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get decision")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

type listDecisionsResponse struct {
	Decisions []domain.IntelligenceDecision `json:"decisions"`
	Count     int                           `json:"count"`
}

func (h *DecisionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	var overall *domain.Decision
	if raw := r.URL.Query().Get("overall"); raw != "" {
		if !domain.ValidDecision(raw) {
			writeError(w, http.StatusBadRequest, "invalid overall filter")
			return
		}
		d := domain.Decision(raw)
		overall = &d
	}

	decisions, err := h.decisions.List(r.Context(), overall, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list decisions")
		return
	}

	writeJSON(w, http.StatusOK, listDecisionsResponse{Decisions: decisions, Count: len(decisions)})
}
