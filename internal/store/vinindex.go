package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vindexhq/vindex/internal/domain"
)

// VINIndexStore looks up previously approved VINs by prefix, feeding the
// pre-standard-era heuristic. The approved_vins table is populated by the
// ingestion pipeline when a vin field is approved.
type VINIndexStore struct {
	db *pgxpool.Pool
}

func NewVINIndexStore(db *pgxpool.Pool) *VINIndexStore {
	return &VINIndexStore{db: db}
}

func (s *VINIndexStore) LookupSimilar(ctx context.Context, prefix string) ([]domain.KnownVIN, error) {
	if prefix == "" {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT vin, COALESCE(model_year, 0)
		 FROM approved_vins
		 WHERE vin LIKE $1 || '%'
		 ORDER BY vin
		 LIMIT 20`,
		prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.KnownVIN
	for rows.Next() {
		var k domain.KnownVIN
		if err := rows.Scan(&k.VIN, &k.Year); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
