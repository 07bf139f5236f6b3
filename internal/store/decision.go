package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vindexhq/vindex/internal/domain"
)

// DecisionStore is the immutable decision log.
type DecisionStore struct {
	db *pgxpool.Pool
}

func NewDecisionStore(db *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{db: db}
}

// Create writes the decision row and its initial doubt-queue items in one
// transaction.
func (s *DecisionStore) Create(ctx context.Context, d *domain.IntelligenceDecision, doubts []*domain.DoubtQueueItem) error {
	fields, err := json.Marshal(d.FieldDecisions)
	if err != nil {
		return fmt.Errorf("marshal field decisions: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO intelligence_decisions
		   (id, source_url, source_domain, overall_decision, approve_count, doubt_count, reject_count, field_decisions, reject_reasons)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		d.ID, d.SourceURL, d.SourceDomain, d.OverallDecision,
		d.ApproveCount, d.DoubtCount, d.RejectCount, fields, d.RejectReasons,
	).Scan(&d.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range doubts {
		item.ParentDecisionID = d.ID
		value, err := json.Marshal(item.FieldValue)
		if err != nil {
			return fmt.Errorf("marshal field value: %w", err)
		}
		evidence, err := domain.MarshalEvidence(item.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO doubt_queue (parent_decision_id, field_name, field_value, doubt_type, priority, reason, evidence, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
			 RETURNING id, created_at`,
			item.ParentDecisionID, item.FieldName, value, item.DoubtType, item.Priority, item.Reason, evidence,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("enqueue doubt for %s: %w", item.FieldName, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *DecisionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.IntelligenceDecision, error) {
	d := &domain.IntelligenceDecision{}
	var fields []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, source_url, source_domain, overall_decision, approve_count, doubt_count, reject_count, field_decisions, reject_reasons, created_at
		 FROM intelligence_decisions WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.SourceURL, &d.SourceDomain, &d.OverallDecision,
		&d.ApproveCount, &d.DoubtCount, &d.RejectCount, &fields, &d.RejectReasons, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := unmarshalFieldDecisions(fields, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DecisionStore) List(ctx context.Context, overall *domain.Decision, limit, offset int) ([]domain.IntelligenceDecision, error) {
	if limit <= 0 {
		limit = 50
	}

	q := psql.Select("id", "source_url", "source_domain", "overall_decision",
		"approve_count", "doubt_count", "reject_count", "field_decisions", "reject_reasons", "created_at").
		From("intelligence_decisions").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if overall != nil {
		q = q.Where(sq.Eq{"overall_decision": *overall})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IntelligenceDecision
	for rows.Next() {
		var d domain.IntelligenceDecision
		var fields []byte
		if err := rows.Scan(&d.ID, &d.SourceURL, &d.SourceDomain, &d.OverallDecision,
			&d.ApproveCount, &d.DoubtCount, &d.RejectCount, &fields, &d.RejectReasons, &d.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalFieldDecisions(fields, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func unmarshalFieldDecisions(data []byte, d *domain.IntelligenceDecision) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &d.FieldDecisions); err != nil {
		return fmt.Errorf("unmarshal field decisions: %w", err)
	}
	return nil
}
