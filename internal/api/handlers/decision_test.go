package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/store"
)

func seedDecisions(t *testing.T) *store.MemoryDecisionStore {
	t.Helper()
	decisions := store.NewMemoryDecisionStore(store.NewMemoryDoubtQueue(store.NewMemoryPatternStore()))
	ctx := context.Background()

	for _, overall := range []domain.Decision{
		domain.DecisionApprove,
		domain.DecisionDoubt,
		domain.DecisionApprove,
	} {
		d := &domain.IntelligenceDecision{
			SourceDomain:    "bringatrailer.com",
			OverallDecision: overall,
		}
		if err := decisions.Create(ctx, d, nil); err != nil {
			t.Fatalf("create decision: %v", err)
		}
	}
	return decisions
}

func TestDecisionHandler_ListFiltersByOverall(t *testing.T) {
	h := NewDecisionHandler(seedDecisions(t))

	req := httptest.NewRequest(http.MethodGet, "/v1/decisions?overall=doubt", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want %d", rec.Code, http.StatusOK)
	}
	var resp listDecisionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count %d, want 1", resp.Count)
	}
	for _, d := range resp.Decisions {
		if d.OverallDecision != domain.DecisionDoubt {
			t.Fatalf("decision %s has overall %s, want doubt", d.ID, d.OverallDecision)
		}
	}
}

func TestDecisionHandler_ListWithoutFilterReturnsAll(t *testing.T) {
	h := NewDecisionHandler(seedDecisions(t))

	req := httptest.NewRequest(http.MethodGet, "/v1/decisions", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want %d", rec.Code, http.StatusOK)
	}
	var resp listDecisionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("count %d, want 3", resp.Count)
	}
}

func TestDecisionHandler_ListRejectsInvalidOverall(t *testing.T) {
	h := NewDecisionHandler(seedDecisions(t))

	req := httptest.NewRequest(http.MethodGet, "/v1/decisions?overall=maybe", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
