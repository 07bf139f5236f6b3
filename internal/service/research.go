package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/store"
)

const (
	// DefaultBatchSize bounds how many doubts one research cycle claims.
	DefaultBatchSize = 10
	defaultWorkers   = 4
)

// strategy resolves one claimed doubt. A returned error means the research
// itself failed; the batch loop downgrades it to an inconclusive resolution
// with the error captured in findings.
type strategy func(ctx context.Context, item *domain.DoubtQueueItem) (*domain.ResearchResult, error)

// BatchOptions control one research cycle.
type BatchOptions struct {
	Limit     int
	Priority  *domain.Priority
	DoubtType *domain.DoubtType
}

// BatchReport summarizes one research cycle.
type BatchReport struct {
	Claimed         int `json:"claimed"`
	Approved        int `json:"approved"`
	Rejected        int `json:"rejected"`
	Inconclusive    int `json:"inconclusive"`
	PatternsCreated int `json:"patterns_created"`
	ResolveFailures int `json:"resolve_failures"`
}

// ResearchService claims batches from the doubt queue and resolves each
// item with the strategy registered for its field. Doubts in a batch are
// independent, so they run on a bounded worker pool; resolve calls stay
// independent transactions.
type ResearchService struct {
	doubts     domain.DoubtQueueStore
	decisions  domain.DecisionStore
	patterns   domain.PatternStore
	vinIndex   domain.VINIndex
	decoder    domain.VINDecoder
	trust      domain.SourceTrust
	logger     *zap.Logger
	workers    int
	resolvedBy string
}

func NewResearchService(
	doubts domain.DoubtQueueStore,
	decisions domain.DecisionStore,
	patterns domain.PatternStore,
	vinIndex domain.VINIndex,
	decoder domain.VINDecoder,
	trust domain.SourceTrust,
	logger *zap.Logger,
) *ResearchService {
	return &ResearchService{
		doubts:     doubts,
		decisions:  decisions,
		patterns:   patterns,
		vinIndex:   vinIndex,
		decoder:    decoder,
		trust:      trust,
		logger:     logger,
		workers:    defaultWorkers,
		resolvedBy: "research-engine",
	}
}

// SetWorkers bounds parallelism within a batch.
func (s *ResearchService) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// RunBatch claims up to opts.Limit pending doubts and resolves each one.
// One bad doubt never aborts the batch: strategy errors and panics become
// inconclusive resolutions, and resolve failures are only counted.
func (s *ResearchService) RunBatch(ctx context.Context, opts BatchOptions) (*BatchReport, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	items, err := s.doubts.ClaimBatch(ctx, limit, s.resolvedBy, domain.ClaimFilter{
		Priority:  opts.Priority,
		DoubtType: opts.DoubtType,
	})
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}

	report := &BatchReport{Claimed: len(items)}
	if len(items) == 0 {
		return report, nil
	}

	workers := s.workers
	if workers > len(items) {
		workers = len(items)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range items {
		item := items[i]
		g.Go(func() error {
			res := s.researchOne(gctx, &item)

			req := domain.ResolveRequest{
				ID:         item.ID,
				Resolution: res.Resolution,
				Reason:     res.Reason,
				Findings:   res.Findings,
				ResolvedBy: s.resolvedBy,
			}
			if res.PatternCreated && res.Pattern != nil {
				req.CreatePattern = true
				req.PatternType = res.Pattern.Type
				req.PatternDefinition = res.Pattern.Definition
				req.PatternResolution = res.Pattern.Resolution
				req.PatternConfidence = res.Pattern.Confidence
			}

			if err := s.doubts.Resolve(gctx, req); err != nil {
				// Already-resolved is a benign race with an operator.
				if errors.Is(err, store.ErrAlreadyResolved) {
					s.logger.Info("doubt resolved elsewhere", zap.String("doubt_id", item.ID.String()))
					return nil
				}
				mu.Lock()
				report.ResolveFailures++
				mu.Unlock()
				s.logger.Error("failed to resolve doubt",
					zap.String("doubt_id", item.ID.String()),
					zap.Error(err))
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			switch res.Resolution {
			case domain.ResolutionApprove:
				report.Approved++
			case domain.ResolutionReject:
				report.Rejected++
			default:
				report.Inconclusive++
			}
			if req.CreatePattern {
				report.PatternsCreated++
			}
			return nil
		})
	}

	_ = g.Wait()

	s.logger.Info("research batch complete",
		zap.Int("claimed", report.Claimed),
		zap.Int("approved", report.Approved),
		zap.Int("rejected", report.Rejected),
		zap.Int("inconclusive", report.Inconclusive),
		zap.Int("patterns_created", report.PatternsCreated),
		zap.Int("resolve_failures", report.ResolveFailures))

	return report, nil
}

// researchOne runs the field's strategy with full failure containment.
func (s *ResearchService) researchOne(ctx context.Context, item *domain.DoubtQueueItem) (res *domain.ResearchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("research panic",
				zap.String("doubt_id", item.ID.String()),
				zap.Any("panic", r))
			res = inconclusive(item, fmt.Sprintf("research panic: %v", r), nil)
		}
	}()

	out, err := s.strategyFor(item.FieldName)(ctx, item)
	if err != nil {
		return inconclusive(item, err.Error(), map[string]any{"error": err.Error()})
	}
	out.DoubtID = item.ID
	out.Field = item.FieldName
	return out
}

func (s *ResearchService) strategyFor(field string) strategy {
	switch field {
	case FieldVIN:
		return s.researchVIN
	case FieldVINYearConsistency:
		return s.researchYearConsistency
	case FieldSalePrice:
		return s.researchSalePrice
	case FieldMileage:
		return s.researchMileage
	case FieldYear:
		return s.researchYear
	default:
		return s.researchGeneric
	}
}

func inconclusive(item *domain.DoubtQueueItem, reason string, findings map[string]any) *domain.ResearchResult {
	return &domain.ResearchResult{
		DoubtID:    item.ID,
		Field:      item.FieldName,
		Resolution: domain.ResolutionInconclusive,
		Reason:     reason,
		Findings:   findings,
	}
}
