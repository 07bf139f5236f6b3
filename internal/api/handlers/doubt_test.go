package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/store"
)

func newClaimedDoubt(t *testing.T) (*store.MemoryDoubtQueue, *store.MemoryPatternStore, uuid.UUID) {
	t.Helper()
	patterns := store.NewMemoryPatternStore()
	queue := store.NewMemoryDoubtQueue(patterns)
	ctx := context.Background()

	item := &domain.DoubtQueueItem{
		ParentDecisionID: uuid.New(),
		FieldName:        "vin_year_consistency",
		DoubtType:        domain.DoubtConflict,
		Priority:         domain.PriorityHigh,
	}
	if err := queue.Enqueue(ctx, item); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := queue.ClaimBatch(ctx, 1, "operator-1", domain.ClaimFilter{}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	return queue, patterns, item.ID
}

func doubtRouter(h *DoubtHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/v1/doubts/{id}/resolve", h.Resolve)
	return r
}

func TestDoubtHandler_ResolveRejectsInconclusivePattern(t *testing.T) {
	queue, patterns, id := newClaimedDoubt(t)
	r := doubtRouter(NewDoubtHandler(queue))

	body := `{
		"resolution": "inconclusive",
		"reason": "needs a human",
		"resolved_by": "operator-1",
		"create_pattern": true,
		"pattern_type": "model_year_offset",
		"pattern_resolution": "inconclusive"
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/doubts/"+id.String()+"/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got, _ := patterns.List(context.Background(), 10, 0); len(got) != 0 {
		t.Fatalf("patterns created %d, want 0", len(got))
	}
	item, err := queue.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Status != domain.DoubtClaimed {
		t.Fatalf("status %s, want claimed after rejected resolve", item.Status)
	}
}

func TestDoubtHandler_ResolveCreatesApprovePattern(t *testing.T) {
	queue, patterns, id := newClaimedDoubt(t)
	r := doubtRouter(NewDoubtHandler(queue))

	body := `{
		"resolution": "approve",
		"reason": "decoded year one off from title year",
		"resolved_by": "operator-1",
		"create_pattern": true,
		"pattern_type": "model_year_offset",
		"pattern_definition": {"offset": 1},
		"pattern_resolution": "approve"
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/doubts/"+id.String()+"/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	got, err := patterns.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list patterns: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("patterns created %d, want 1", len(got))
	}
	if got[0].Resolution != domain.ResolutionApprove {
		t.Fatalf("pattern resolution %s, want approve", got[0].Resolution)
	}
}
