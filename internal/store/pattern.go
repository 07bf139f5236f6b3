package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vindexhq/vindex/internal/domain"
)

// PatternStore holds learned patterns. Rows are append/activate-only; the
// only in-place mutation is the match counter.
type PatternStore struct {
	db *pgxpool.Pool
}

func NewPatternStore(db *pgxpool.Pool) *PatternStore {
	return &PatternStore{db: db}
}

func (s *PatternStore) Create(ctx context.Context, p *domain.LearnedPattern) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO learned_patterns (pattern_type, pattern_definition, resolution, confidence)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, match_count, is_active, created_at`,
		p.Type, p.Definition, p.Resolution, p.Confidence,
	).Scan(&p.ID, &p.MatchCount, &p.IsActive, &p.CreatedAt)
}

func (s *PatternStore) GetActiveByType(ctx context.Context, t domain.PatternType, limit int) ([]domain.LearnedPattern, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, pattern_type, pattern_definition, resolution, confidence, match_count, is_active, created_at
		 FROM learned_patterns
		 WHERE pattern_type = $1 AND is_active
		 ORDER BY confidence DESC, created_at
		 LIMIT $2`,
		t, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LearnedPattern
	for rows.Next() {
		var p domain.LearnedPattern
		if err := rows.Scan(&p.ID, &p.Type, &p.Definition, &p.Resolution, &p.Confidence, &p.MatchCount, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordMatch is a single atomic counter update; concurrent validators must
// never lose increments to a read-modify-write.
func (s *PatternStore) RecordMatch(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE learned_patterns SET match_count = match_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PatternStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE learned_patterns SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PatternStore) List(ctx context.Context, limit, offset int) ([]domain.LearnedPattern, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, pattern_type, pattern_definition, resolution, confidence, match_count, is_active, created_at
		 FROM learned_patterns
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LearnedPattern
	for rows.Next() {
		var p domain.LearnedPattern
		if err := rows.Scan(&p.ID, &p.Type, &p.Definition, &p.Resolution, &p.Confidence, &p.MatchCount, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
