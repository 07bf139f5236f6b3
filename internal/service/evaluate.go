package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vindexhq/vindex/internal/domain"
)

// EvaluationService runs the synchronous decision path: validators, then
// aggregation, then (optionally) persistence of the decision and its doubt
// queue items. Safe for unbounded parallel use.
type EvaluationService struct {
	validators *Validators
	decisions  domain.DecisionStore
	logger     *zap.Logger
}

func NewEvaluationService(validators *Validators, decisions domain.DecisionStore, logger *zap.Logger) *EvaluationService {
	return &EvaluationService{
		validators: validators,
		decisions:  decisions,
		logger:     logger,
	}
}

// Evaluate classifies the extraction without touching the decision log.
func (s *EvaluationService) Evaluate(ctx context.Context, extracted map[string]any, ec domain.EvalContext) *domain.IntelligenceDecision {
	fields := s.validators.ValidateAll(ctx, extracted, ec)
	d := domain.Aggregate(ec.SourceURL, ec.SourceDomain, fields)
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	return d
}

// EvaluateAndPersist classifies the extraction and writes the decision row
// plus an initial doubt-queue item for every DOUBT field, in one
// transaction.
func (s *EvaluationService) EvaluateAndPersist(ctx context.Context, extracted map[string]any, ec domain.EvalContext) (*domain.IntelligenceDecision, error) {
	d := s.Evaluate(ctx, extracted, ec)

	var doubts []*domain.DoubtQueueItem
	for _, f := range d.Doubts() {
		doubts = append(doubts, domain.NewDoubt(d.ID, f))
	}

	if err := s.decisions.Create(ctx, d, doubts); err != nil {
		return nil, err
	}

	s.logger.Info("evaluation persisted",
		zap.String("decision_id", d.ID.String()),
		zap.String("overall", string(d.OverallDecision)),
		zap.String("source_domain", d.SourceDomain),
		zap.Int("approve", d.ApproveCount),
		zap.Int("doubt", d.DoubtCount),
		zap.Int("reject", d.RejectCount))

	return d, nil
}
