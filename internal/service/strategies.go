package service

import (
	"context"
	"fmt"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/vin"
)

// researchVIN re-derives the era/checksum logic of the validator, but with
// the remote decoder available. Store or decoder failures propagate as
// errors and are downgraded to inconclusive by the batch loop.
func (s *ResearchService) researchVIN(ctx context.Context, item *domain.DoubtQueueItem) (*domain.ResearchResult, error) {
	id := ""
	if raw, ok := item.FieldValue.(string); ok {
		id = vin.Normalize(raw)
	} else if ev, ok := item.Evidence.(domain.VINEvidence); ok {
		id = ev.VIN
	}
	if id == "" {
		return &domain.ResearchResult{
			Resolution: domain.ResolutionInconclusive,
			Reason:     "doubt carries no vin value",
		}, nil
	}

	if len(id) == vin.StandardLength && !vin.ValidateCheckDigit(id) {
		return &domain.ResearchResult{
			Resolution: domain.ResolutionReject,
			Reason:     "vin failed mod-11 check digit",
			Findings:   map[string]any{"vin": id},
		}, nil
	}

	prefix := vin.MatchPrefix(id)
	matches, err := s.vinIndex.LookupSimilar(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("vin prefix lookup: %w", err)
	}
	if len(matches) > 0 {
		known := make([]string, 0, len(matches))
		for _, m := range matches {
			known = append(known, m.VIN)
		}
		return &domain.ResearchResult{
			Resolution:     domain.ResolutionApprove,
			Reason:         fmt.Sprintf("prefix %s matches %d previously approved vins", prefix, len(matches)),
			Findings:       map[string]any{"matched_vins": known},
			PatternCreated: true,
			Pattern: &domain.LearnedPattern{
				Type: domain.PatternVINPrefix,
				Definition: map[string]any{
					"prefix":     prefix,
					"known_vins": len(matches),
				},
				Resolution: domain.ResolutionApprove,
				Confidence: domain.NewPatternConfidence,
			},
		}, nil
	}

	decoded, err := s.decoder.Decode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("vin decode: %w", err)
	}
	if decoded.Year != 0 && decoded.Make != "" {
		return &domain.ResearchResult{
			Resolution: domain.ResolutionApprove,
			Reason:     fmt.Sprintf("vin decodes to %d %s", decoded.Year, decoded.Make),
			Findings: map[string]any{
				"decoded_year": decoded.Year,
				"decoded_make": decoded.Make,
			},
		}, nil
	}

	return &domain.ResearchResult{
		Resolution: domain.ResolutionInconclusive,
		Reason:     "vin could not be decoded or matched",
		Findings:   map[string]any{"vin": id},
	}, nil
}

// researchYearConsistency owns the one-year tolerance rule: a single year
// of disagreement is the normal model-year vs build-year offset.
func (s *ResearchService) researchYearConsistency(_ context.Context, item *domain.DoubtQueueItem) (*domain.ResearchResult, error) {
	ev, ok := item.Evidence.(domain.YearConflictEvidence)
	if !ok {
		return &domain.ResearchResult{
			Resolution: domain.ResolutionInconclusive,
			Reason:     "doubt carries no year-conflict evidence",
		}, nil
	}

	switch {
	case ev.Diff <= 1:
		res := &domain.ResearchResult{
			Resolution: domain.ResolutionApprove,
			Reason:     "one-year offset: vin model year vs claimed build year",
			Findings: map[string]any{
				"vin_year":     ev.VINYear,
				"claimed_year": ev.ClaimedYear,
			},
		}
		if ev.Diff == 1 {
			res.PatternCreated = true
			res.Pattern = &domain.LearnedPattern{
				Type: domain.PatternModelYearOffset,
				Definition: map[string]any{
					"vin_year":     ev.VINYear,
					"claimed_year": ev.ClaimedYear,
				},
				Resolution: domain.ResolutionApprove,
				Confidence: domain.NewPatternConfidence,
			}
		}
		return res, nil
	default:
		return &domain.ResearchResult{
			Resolution: domain.ResolutionReject,
			Reason:     fmt.Sprintf("vin model year %d and claimed year %d differ by %d", ev.VINYear, ev.ClaimedYear, ev.Diff),
			Findings: map[string]any{
				"vin_year":     ev.VINYear,
				"claimed_year": ev.ClaimedYear,
				"diff":         ev.Diff,
			},
		}, nil
	}
}

// researchSalePrice re-checks a flagged price against the parent decision's
// source domain. Floor violations are rejected even at research time.
func (s *ResearchService) researchSalePrice(ctx context.Context, item *domain.DoubtQueueItem) (*domain.ResearchResult, error) {
	price, ok := toFloat(item.FieldValue)
	if !ok {
		if ev, evOK := item.Evidence.(domain.PriceEvidence); evOK {
			price, ok = ev.Price, true
		}
	}
	if !ok {
		return &domain.ResearchResult{
			Resolution: domain.ResolutionInconclusive,
			Reason:     "doubt carries no numeric price",
		}, nil
	}

	parent, err := s.decisions.GetByID(ctx, item.ParentDecisionID)
	if err != nil {
		return nil, fmt.Errorf("load parent decision: %w", err)
	}

	findings := map[string]any{"price": price, "source_domain": parent.SourceDomain}
	switch {
	case price < MinPlausiblePrice:
		return &domain.ResearchResult{
			Resolution: domain.ResolutionReject,
			Reason:     fmt.Sprintf("sale price %.0f below plausible floor", price),
			Findings:   findings,
		}, nil
	case price > HighValuePrice && s.trust.Trusted(parent.SourceDomain):
		return &domain.ResearchResult{
			Resolution: domain.ResolutionApprove,
			Reason:     "high-value sale confirmed from trusted auction house",
			Findings:   findings,
		}, nil
	case price > HighValuePrice:
		return &domain.ResearchResult{
			Resolution: domain.ResolutionInconclusive,
			Reason:     "high-value sale from untrusted source, needs manual review",
			Findings:   findings,
		}, nil
	default:
		return &domain.ResearchResult{
			Resolution: domain.ResolutionApprove,
			Reason:     "sale price within plausible range",
			Findings:   findings,
		}, nil
	}
}

// researchMileage expresses the validator's mileage rules as research
// findings. A million-mile reading cannot be settled without a human.
func (s *ResearchService) researchMileage(_ context.Context, item *domain.DoubtQueueItem) (*domain.ResearchResult, error) {
	ev, _ := item.Evidence.(domain.MileageEvidence)
	mileage, ok := toFloat(item.FieldValue)
	if !ok {
		mileage = ev.Mileage
	}

	findings := map[string]any{
		"mileage":            mileage,
		"vehicle_age":        ev.VehicleAge,
		"avg_miles_per_year": ev.AvgMilesPerYear,
	}

	if mileage > MaxPlausibleMileage {
		return &domain.ResearchResult{
			Resolution: domain.ResolutionInconclusive,
			Reason:     "odometer above one million, commercial vehicle or data error",
			Findings:   findings,
		}, nil
	}

	if ev.AvgMilesPerYear > 0 && ev.AvgMilesPerYear < CollectorAnnualMiles {
		return &domain.ResearchResult{
			Resolution:     domain.ResolutionApprove,
			Reason:         "collector-car annual mileage",
			Findings:       findings,
			PatternCreated: true,
			Pattern: &domain.LearnedPattern{
				Type: domain.PatternCollectorMileage,
				Definition: map[string]any{
					"avg_miles_per_year": ev.AvgMilesPerYear,
					"vehicle_age":        ev.VehicleAge,
				},
				Resolution: domain.ResolutionApprove,
				Confidence: domain.NewPatternConfidence,
			},
		}, nil
	}

	return &domain.ResearchResult{
		Resolution: domain.ResolutionApprove,
		Reason:     "mileage within plausible range",
		Findings:   findings,
	}, nil
}

func (s *ResearchService) researchYear(_ context.Context, item *domain.DoubtQueueItem) (*domain.ResearchResult, error) {
	year, ok := toInt(item.FieldValue)
	if !ok {
		return &domain.ResearchResult{
			Resolution: domain.ResolutionInconclusive,
			Reason:     "doubt carries no numeric year",
		}, nil
	}

	if year >= BrassEraStart && year < BrassEraEnd {
		return &domain.ResearchResult{
			Resolution:     domain.ResolutionApprove,
			Reason:         fmt.Sprintf("brass-era vehicle (%d)", year),
			Findings:       map[string]any{"year": year},
			PatternCreated: true,
			Pattern: &domain.LearnedPattern{
				Type:       domain.PatternBrassEra,
				Definition: map[string]any{"min_year": BrassEraStart, "max_year": BrassEraEnd - 1},
				Resolution: domain.ResolutionApprove,
				Confidence: domain.NewPatternConfidence,
			},
		}, nil
	}

	return &domain.ResearchResult{
		Resolution: domain.ResolutionApprove,
		Reason:     "year accepted",
		Findings:   map[string]any{"year": year},
	}, nil
}

// researchGeneric is the fallback for fields with no dedicated strategy:
// consult up to five active patterns of the matching type, record a match
// against each, and adopt the first adoptable one.
func (s *ResearchService) researchGeneric(ctx context.Context, item *domain.DoubtQueueItem) (*domain.ResearchResult, error) {
	patterns, err := s.patterns.GetActiveByType(ctx, domain.PatternType(item.FieldName), maxPatternsConsulted)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}

	for _, p := range patterns {
		if err := s.patterns.RecordMatch(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("record pattern match: %w", err)
		}
	}

	for _, p := range patterns {
		if p.Adoptable() {
			return &domain.ResearchResult{
				Resolution: p.Resolution,
				Reason:     fmt.Sprintf("adopted learned pattern %s (confidence %.2f)", p.ID, p.Confidence),
				Findings:   map[string]any{"pattern_id": p.ID.String()},
			}, nil
		}
	}

	return &domain.ResearchResult{
		Resolution: domain.ResolutionInconclusive,
		Reason:     "no matching pattern — needs manual review",
	}, nil
}
