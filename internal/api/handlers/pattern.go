package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/store"
)

type PatternHandler struct {
	patterns domain.PatternStore
}

func NewPatternHandler(patterns domain.PatternStore) *PatternHandler {
	return &PatternHandler{patterns: patterns}
}

type listPatternsResponse struct {
	Patterns []domain.LearnedPattern `json:"patterns"`
	Count    int                     `json:"count"`
}

func (h *PatternHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	patterns, err := h.patterns.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list patterns")
		return
	}

	writeJSON(w, http.StatusOK, listPatternsResponse{Patterns: patterns, Count: len(patterns)})
}

// Deactivate retires a learned pattern so the matcher stops consulting it.
func (h *PatternHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern id")
		return
	}

	if err := h.patterns.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pattern not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to deactivate pattern")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
