package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vindexhq/vindex/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const doubtColumns = `id, parent_decision_id, field_name, field_value, doubt_type, priority, reason,
	evidence, status, claimed_at, claimed_by, resolution, resolution_reason, resolved_by, resolved_at, created_at`

// DoubtQueueStore is the Postgres doubt queue. Claim exclusivity comes from
// FOR UPDATE SKIP LOCKED inside the claim transaction.
type DoubtQueueStore struct {
	db *pgxpool.Pool
}

func NewDoubtQueueStore(db *pgxpool.Pool) *DoubtQueueStore {
	return &DoubtQueueStore{db: db}
}

func (s *DoubtQueueStore) Enqueue(ctx context.Context, item *domain.DoubtQueueItem) error {
	value, err := json.Marshal(item.FieldValue)
	if err != nil {
		return fmt.Errorf("marshal field value: %w", err)
	}
	evidence, err := domain.MarshalEvidence(item.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO doubt_queue (parent_decision_id, field_name, field_value, doubt_type, priority, reason, evidence, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		 RETURNING id, created_at`,
		item.ParentDecisionID, item.FieldName, value, item.DoubtType, item.Priority, item.Reason, evidence,
	).Scan(&item.ID, &item.CreatedAt)
}

func (s *DoubtQueueStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.DoubtQueueItem, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+doubtColumns+` FROM doubt_queue WHERE id = $1`, id)
	item, err := scanDoubt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// ClaimBatch atomically moves up to limit matching pending items to
// claimed and returns them. Concurrent callers never receive overlapping
// items. Order honors priority, then age.
func (s *DoubtQueueStore) ClaimBatch(ctx context.Context, limit int, claimedBy string, filter domain.ClaimFilter) ([]domain.DoubtQueueItem, error) {
	if limit <= 0 {
		limit = 10
	}

	inner := psql.Select("id").
		From("doubt_queue").
		Where(sq.Eq{"status": domain.DoubtPending}).
		OrderBy(
			`CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END`,
			"created_at",
		).
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")
	if filter.Priority != nil {
		inner = inner.Where(sq.Eq{"priority": *filter.Priority})
	}
	if filter.DoubtType != nil {
		inner = inner.Where(sq.Eq{"doubt_type": *filter.DoubtType})
	}

	innerSQL, args, err := inner.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claim query: %w", err)
	}

	query := fmt.Sprintf(
		`UPDATE doubt_queue SET status = 'claimed', claimed_at = now(), claimed_by = $%d
		 WHERE id IN (%s)
		 RETURNING %s`,
		len(args)+1, innerSQL, doubtColumns)
	args = append(args, claimedBy)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.DoubtQueueItem
	for rows.Next() {
		item, err := scanDoubt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Resolve marks a claimed item resolved and, when requested, inserts the
// learned pattern in the same transaction.
func (s *DoubtQueueStore) Resolve(ctx context.Context, req domain.ResolveRequest) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE doubt_queue
		 SET status = 'resolved', resolution = $2, resolution_reason = $3, findings = $4,
		     resolved_by = $5, resolved_at = now()
		 WHERE id = $1 AND status = 'claimed'`,
		req.ID, req.Resolution, req.Reason, req.Findings, req.ResolvedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var status domain.DoubtStatus
		err := tx.QueryRow(ctx, `SELECT status FROM doubt_queue WHERE id = $1`, req.ID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if status == domain.DoubtResolved {
			return ErrAlreadyResolved
		}
		return ErrNotClaimed
	}

	if req.CreatePattern {
		_, err = tx.Exec(ctx,
			`INSERT INTO learned_patterns (pattern_type, pattern_definition, resolution, confidence, source_doubt_id)
			 VALUES ($1, $2, $3, $4, $5)`,
			req.PatternType, req.PatternDefinition, req.PatternResolution, req.PatternConfidence, req.ID)
		if err != nil {
			return fmt.Errorf("insert learned pattern: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *DoubtQueueStore) ListByStatus(ctx context.Context, status domain.DoubtStatus, limit int) ([]domain.DoubtQueueItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+doubtColumns+` FROM doubt_queue
		 WHERE status = $1
		 ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at
		 LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.DoubtQueueItem
	for rows.Next() {
		item, err := scanDoubt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *DoubtQueueStore) CountByStatus(ctx context.Context) (map[domain.DoubtStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, count(*) FROM doubt_queue GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.DoubtStatus]int)
	for rows.Next() {
		var status domain.DoubtStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *DoubtQueueStore) RequeueStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE doubt_queue SET status = 'pending', claimed_at = NULL, claimed_by = NULL
		 WHERE status = 'claimed' AND claimed_at < $1`,
		claimedBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *DoubtQueueStore) ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE doubt_queue SET status = 'expired'
		 WHERE status = 'pending' AND created_at < $1`,
		createdBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanDoubt(row pgx.Row) (*domain.DoubtQueueItem, error) {
	var (
		item       domain.DoubtQueueItem
		value      []byte
		evidence   []byte
		claimedBy  *string
		resolution *string
		resReason  *string
		resolvedBy *string
	)
	err := row.Scan(
		&item.ID, &item.ParentDecisionID, &item.FieldName, &value, &item.DoubtType, &item.Priority,
		&item.Reason, &evidence, &item.Status, &item.ClaimedAt, &claimedBy,
		&resolution, &resReason, &resolvedBy, &item.ResolvedAt, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(value) > 0 {
		if err := json.Unmarshal(value, &item.FieldValue); err != nil {
			return nil, fmt.Errorf("unmarshal field value: %w", err)
		}
	}
	if item.Evidence, err = domain.UnmarshalEvidence(evidence); err != nil {
		return nil, err
	}
	if claimedBy != nil {
		item.ClaimedBy = *claimedBy
	}
	if resolution != nil {
		item.Resolution = domain.Resolution(*resolution)
	}
	if resReason != nil {
		item.ResolutionReason = *resReason
	}
	if resolvedBy != nil {
		item.ResolvedBy = *resolvedBy
	}
	return &item, nil
}
