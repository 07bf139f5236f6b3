// In-memory store implementations with the same semantics as the Postgres
// ones. They back the test suite and let the engine be embedded without a
// database.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vindexhq/vindex/internal/domain"
)

type MemoryPatternStore struct {
	mu       sync.Mutex
	patterns map[uuid.UUID]*domain.LearnedPattern
}

func NewMemoryPatternStore() *MemoryPatternStore {
	return &MemoryPatternStore{patterns: make(map[uuid.UUID]*domain.LearnedPattern)}
}

func (s *MemoryPatternStore) Create(_ context.Context, p *domain.LearnedPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	p.IsActive = true
	p.CreatedAt = time.Now().UTC()
	cp := *p
	s.patterns[p.ID] = &cp
	return nil
}

func (s *MemoryPatternStore) GetActiveByType(_ context.Context, t domain.PatternType, limit int) ([]domain.LearnedPattern, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.LearnedPattern
	for _, p := range s.patterns {
		if p.Type == t && p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryPatternStore) RecordMatch(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[id]
	if !ok {
		return ErrNotFound
	}
	p.MatchCount++
	return nil
}

func (s *MemoryPatternStore) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (s *MemoryPatternStore) List(_ context.Context, limit, offset int) ([]domain.LearnedPattern, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.LearnedPattern
	for _, p := range s.patterns {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetByID is a test convenience not present on the store interface.
func (s *MemoryPatternStore) GetByID(id uuid.UUID) (domain.LearnedPattern, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[id]
	if !ok {
		return domain.LearnedPattern{}, false
	}
	return *p, true
}

// MemoryDoubtQueue reproduces the claim/resolve contract under a mutex:
// claims are exclusive, resolve is terminal, and pattern creation rides the
// same critical section the Postgres store does in one transaction.
type MemoryDoubtQueue struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*domain.DoubtQueueItem
	patterns *MemoryPatternStore
	seq      int
	order    map[uuid.UUID]int
}

func NewMemoryDoubtQueue(patterns *MemoryPatternStore) *MemoryDoubtQueue {
	return &MemoryDoubtQueue{
		items:    make(map[uuid.UUID]*domain.DoubtQueueItem),
		patterns: patterns,
		order:    make(map[uuid.UUID]int),
	}
}

func (s *MemoryDoubtQueue) Enqueue(_ context.Context, item *domain.DoubtQueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(item)
	return nil
}

func (s *MemoryDoubtQueue) enqueueLocked(item *domain.DoubtQueueItem) {
	item.ID = uuid.New()
	item.Status = domain.DoubtPending
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.seq++
	s.order[item.ID] = s.seq
	cp := *item
	s.items[item.ID] = &cp
}

func (s *MemoryDoubtQueue) GetByID(_ context.Context, id uuid.UUID) (*domain.DoubtQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func priorityRank(p domain.Priority) int {
	switch p {
	case domain.PriorityHigh:
		return 0
	case domain.PriorityMedium:
		return 1
	default:
		return 2
	}
}

func (s *MemoryDoubtQueue) ClaimBatch(_ context.Context, limit int, claimedBy string, filter domain.ClaimFilter) ([]domain.DoubtQueueItem, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*domain.DoubtQueueItem
	for _, item := range s.items {
		if item.Status != domain.DoubtPending {
			continue
		}
		if filter.Priority != nil && item.Priority != *filter.Priority {
			continue
		}
		if filter.DoubtType != nil && item.DoubtType != *filter.DoubtType {
			continue
		}
		pending = append(pending, item)
	}
	sort.Slice(pending, func(i, j int) bool {
		ri, rj := priorityRank(pending[i].Priority), priorityRank(pending[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return s.order[pending[i].ID] < s.order[pending[j].ID]
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	now := time.Now().UTC()
	out := make([]domain.DoubtQueueItem, 0, len(pending))
	for _, item := range pending {
		item.Status = domain.DoubtClaimed
		item.ClaimedAt = &now
		item.ClaimedBy = claimedBy
		out = append(out, *item)
	}
	return out, nil
}

func (s *MemoryDoubtQueue) Resolve(ctx context.Context, req domain.ResolveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[req.ID]
	if !ok {
		return ErrNotFound
	}
	switch item.Status {
	case domain.DoubtResolved:
		return ErrAlreadyResolved
	case domain.DoubtClaimed:
	default:
		return ErrNotClaimed
	}

	now := time.Now().UTC()
	item.Status = domain.DoubtResolved
	item.Resolution = req.Resolution
	item.ResolutionReason = req.Reason
	item.ResolvedBy = req.ResolvedBy
	item.ResolvedAt = &now

	if req.CreatePattern && s.patterns != nil {
		return s.patterns.Create(ctx, &domain.LearnedPattern{
			Type:       req.PatternType,
			Definition: req.PatternDefinition,
			Resolution: req.PatternResolution,
			Confidence: req.PatternConfidence,
		})
	}
	return nil
}

func (s *MemoryDoubtQueue) ListByStatus(_ context.Context, status domain.DoubtStatus, limit int) ([]domain.DoubtQueueItem, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.DoubtQueueItem
	for _, item := range s.items {
		if item.Status == status {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := priorityRank(out[i].Priority), priorityRank(out[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryDoubtQueue) CountByStatus(_ context.Context) (map[domain.DoubtStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.DoubtStatus]int)
	for _, item := range s.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (s *MemoryDoubtQueue) RequeueStaleClaims(_ context.Context, claimedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.items {
		if item.Status == domain.DoubtClaimed && item.ClaimedAt != nil && item.ClaimedAt.Before(claimedBefore) {
			item.Status = domain.DoubtPending
			item.ClaimedAt = nil
			item.ClaimedBy = ""
			n++
		}
	}
	return n, nil
}

func (s *MemoryDoubtQueue) ExpirePending(_ context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.items {
		if item.Status == domain.DoubtPending && item.CreatedAt.Before(createdBefore) {
			item.Status = domain.DoubtExpired
			n++
		}
	}
	return n, nil
}

// MemoryDecisionStore is the in-memory decision log. Create enqueues the
// initial doubts into the paired queue, mirroring the Postgres transaction.
type MemoryDecisionStore struct {
	mu        sync.Mutex
	decisions map[uuid.UUID]*domain.IntelligenceDecision
	queue     *MemoryDoubtQueue
}

func NewMemoryDecisionStore(queue *MemoryDoubtQueue) *MemoryDecisionStore {
	return &MemoryDecisionStore{
		decisions: make(map[uuid.UUID]*domain.IntelligenceDecision),
		queue:     queue,
	}
}

func (s *MemoryDecisionStore) Create(_ context.Context, d *domain.IntelligenceDecision, doubts []*domain.DoubtQueueItem) error {
	s.mu.Lock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	cp := *d
	s.decisions[d.ID] = &cp
	s.mu.Unlock()

	if s.queue != nil {
		s.queue.mu.Lock()
		for _, item := range doubts {
			item.ParentDecisionID = d.ID
			s.queue.enqueueLocked(item)
		}
		s.queue.mu.Unlock()
	}
	return nil
}

func (s *MemoryDecisionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.IntelligenceDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.decisions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryDecisionStore) List(_ context.Context, overall *domain.Decision, limit, offset int) ([]domain.IntelligenceDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.IntelligenceDecision
	for _, d := range s.decisions {
		if overall != nil && d.OverallDecision != *overall {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryVINIndex serves prefix lookups from a fixed set of approved VINs.
type MemoryVINIndex struct {
	mu   sync.Mutex
	vins map[string]int
}

func NewMemoryVINIndex() *MemoryVINIndex {
	return &MemoryVINIndex{vins: make(map[string]int)}
}

func (s *MemoryVINIndex) Add(vin string, year int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vins[strings.ToUpper(vin)] = year
}

func (s *MemoryVINIndex) LookupSimilar(_ context.Context, prefix string) ([]domain.KnownVIN, error) {
	if prefix == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix = strings.ToUpper(prefix)
	var out []domain.KnownVIN
	for vin, year := range s.vins {
		if strings.HasPrefix(vin, prefix) {
			out = append(out, domain.KnownVIN{VIN: vin, Year: year})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VIN < out[j].VIN })
	return out, nil
}
