package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/vin"
)

// Field names with dedicated validators.
const (
	FieldVIN                = "vin"
	FieldVINYearConsistency = "vin_year_consistency"
	FieldSalePrice          = "sale_price"
	FieldMileage            = "mileage"
	FieldYear               = "year"

	// fieldClaimedYear is context, not a field under validation; extractors
	// sometimes put it in the data map instead of the context object.
	fieldClaimedYear = "claimed_year"
)

// Classification thresholds. These are contracts with the upstream
// pipeline, not tuning knobs.
const (
	MinPlausiblePrice     = 100
	HighValuePrice        = 2_000_000
	MaxPlausibleMileage   = 1_000_000
	CollectorAnnualMiles  = 100
	BrassEraStart         = 1885
	BrassEraEnd           = 1920 // exclusive
)

// Validators classifies extracted field values. Stateless and safe for
// unbounded parallel use; the only shared state it touches is the pattern
// store's match counter.
type Validators struct {
	vinIndex domain.VINIndex
	matcher  PatternMatcher
	trust    domain.SourceTrust
	logger   *zap.Logger
	now      func() time.Time
}

func NewValidators(vinIndex domain.VINIndex, matcher PatternMatcher, trust domain.SourceTrust, logger *zap.Logger) *Validators {
	return &Validators{
		vinIndex: vinIndex,
		matcher:  matcher,
		trust:    trust,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateAll classifies every field of one extraction. Output order is
// deterministic (sorted by field name, synthesized checks last).
func (v *Validators) ValidateAll(ctx context.Context, extracted map[string]any, ec domain.EvalContext) []domain.FieldDecision {
	claimedYear := ec.ClaimedYear
	if claimedYear == 0 {
		claimedYear, _ = toInt(extracted[fieldClaimedYear])
	}

	names := make([]string, 0, len(extracted))
	for name := range extracted {
		if name == fieldClaimedYear {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out []domain.FieldDecision
	for _, name := range names {
		value := extracted[name]
		switch name {
		case FieldVIN:
			out = append(out, v.validateVIN(ctx, value, claimedYear))
		case FieldSalePrice:
			out = append(out, v.validateSalePrice(value, ec.SourceDomain))
		case FieldMileage:
			out = append(out, v.validateMileage(value, claimedYear))
		case FieldYear:
			out = append(out, v.validateYear(value))
		default:
			out = append(out, v.validateUnknown(ctx, name, value))
		}
	}

	if fd, ok := v.checkVINYearConsistency(extracted[FieldVIN], claimedYear); ok {
		out = append(out, fd)
	}

	return out
}

func (v *Validators) validateVIN(ctx context.Context, value any, claimedYear int) domain.FieldDecision {
	raw, ok := value.(string)
	if !ok || vin.Normalize(raw) == "" {
		return domain.FieldDecision{
			FieldName: FieldVIN,
			Value:     value,
			Decision:  domain.DecisionDoubt,
			DoubtType: domain.DoubtAnomaly,
			Reason:    "vin is missing or not a string",
		}
	}
	id := vin.Normalize(raw)

	ev := domain.VINEvidence{VIN: id, Length: len(id)}
	if len(id) == vin.StandardLength {
		ev.ChecksumValid = vin.ValidateCheckDigit(id)
		if !ev.ChecksumValid {
			// Hard constraint. No pattern is ever created from checksum
			// failures; each one is considered unique.
			return domain.FieldDecision{
				FieldName: FieldVIN,
				Value:     id,
				Decision:  domain.DecisionReject,
				Reason:    "vin failed mod-11 check digit",
				Evidence:  ev,
			}
		}
	}

	ev.PreStandardEra = vin.PreStandardEra(id, claimedYear)
	if !ev.PreStandardEra {
		return domain.FieldDecision{
			FieldName: FieldVIN,
			Value:     id,
			Decision:  domain.DecisionApprove,
			Reason:    "standard vin with valid check digit",
			Evidence:  ev,
		}
	}

	matches, err := v.vinIndex.LookupSimilar(ctx, vin.MatchPrefix(id))
	if err != nil {
		v.logger.Warn("vin prefix lookup failed", zap.String("vin", id), zap.Error(err))
	}
	if len(matches) > 0 {
		for _, m := range matches {
			ev.MatchedPrefixes = append(ev.MatchedPrefixes, m.VIN)
		}
		return domain.FieldDecision{
			FieldName: FieldVIN,
			Value:     id,
			Decision:  domain.DecisionApprove,
			Reason:    "pre-standard vin matches previously approved vins",
			Evidence:  ev,
			PatternCandidate: &domain.PatternCandidate{
				Type: domain.PatternVINPrefix,
				Definition: map[string]any{
					"prefix":     vin.MatchPrefix(id),
					"known_vins": len(matches),
				},
			},
		}
	}

	ev.DecodedYear = vin.DecodeModelYear(id)
	ev.DecodedMake = vin.ResolveMake(id)
	if ev.DecodedYear != 0 && ev.DecodedMake != "" {
		return domain.FieldDecision{
			FieldName: FieldVIN,
			Value:     id,
			Decision:  domain.DecisionApprove,
			Reason:    fmt.Sprintf("vin decodes to plausible %d %s", ev.DecodedYear, ev.DecodedMake),
			Evidence:  ev,
		}
	}

	return domain.FieldDecision{
		FieldName: FieldVIN,
		Value:     id,
		Decision:  domain.DecisionDoubt,
		DoubtType: domain.DoubtEdgeCase,
		Reason:    "pre-standard vin could not be verified synchronously",
		Evidence:  ev,
	}
}

// checkVINYearConsistency synthesizes a conflict doubt whenever the VIN's
// decoded model year disagrees with the claimed year. The validator never
// applies the one-year tolerance itself: agreement produces nothing, and
// any disagreement is queued so the research side owns the tolerance rule.
func (v *Validators) checkVINYearConsistency(vinValue any, claimedYear int) (domain.FieldDecision, bool) {
	raw, ok := vinValue.(string)
	if !ok || claimedYear == 0 {
		return domain.FieldDecision{}, false
	}
	vinYear := vin.DecodeModelYear(raw)
	if vinYear == 0 || vinYear == claimedYear {
		return domain.FieldDecision{}, false
	}

	diff := vinYear - claimedYear
	if diff < 0 {
		diff = -diff
	}
	return domain.FieldDecision{
		FieldName: FieldVINYearConsistency,
		Value:     vinYear,
		Decision:  domain.DecisionDoubt,
		DoubtType: domain.DoubtConflict,
		Reason:    fmt.Sprintf("vin model year %d disagrees with claimed year %d", vinYear, claimedYear),
		Evidence: domain.YearConflictEvidence{
			VINYear:     vinYear,
			ClaimedYear: claimedYear,
			Diff:        diff,
		},
	}, true
}

func (v *Validators) validateSalePrice(value any, sourceDomain string) domain.FieldDecision {
	price, ok := toFloat(value)
	if !ok {
		return domain.FieldDecision{
			FieldName: FieldSalePrice,
			Value:     value,
			Decision:  domain.DecisionDoubt,
			DoubtType: domain.DoubtAnomaly,
			Reason:    "sale price is not numeric",
		}
	}

	ev := domain.PriceEvidence{Price: price, SourceDomain: sourceDomain}
	switch {
	case price < MinPlausiblePrice:
		return domain.FieldDecision{
			FieldName: FieldSalePrice,
			Value:     price,
			Decision:  domain.DecisionReject,
			Reason:    fmt.Sprintf("sale price %.0f below plausible floor", price),
			Evidence:  ev,
		}
	case price > HighValuePrice:
		ev.TrustedSource = v.trust.Trusted(sourceDomain)
		if ev.TrustedSource {
			return domain.FieldDecision{
				FieldName: FieldSalePrice,
				Value:     price,
				Decision:  domain.DecisionApprove,
				Reason:    "high-value sale from trusted auction house",
				Evidence:  ev,
			}
		}
		return domain.FieldDecision{
			FieldName: FieldSalePrice,
			Value:     price,
			Decision:  domain.DecisionDoubt,
			DoubtType: domain.DoubtAnomaly,
			Reason:    "high-value sale from untrusted source",
			Evidence:  ev,
		}
	default:
		return domain.FieldDecision{
			FieldName: FieldSalePrice,
			Value:     price,
			Decision:  domain.DecisionApprove,
			Reason:    "sale price within plausible range",
			Evidence:  ev,
		}
	}
}

func (v *Validators) validateMileage(value any, claimedYear int) domain.FieldDecision {
	mileage, ok := toFloat(value)
	if !ok {
		return domain.FieldDecision{
			FieldName: FieldMileage,
			Value:     value,
			Decision:  domain.DecisionDoubt,
			DoubtType: domain.DoubtAnomaly,
			Reason:    "mileage is not numeric",
		}
	}

	ev := domain.MileageEvidence{Mileage: mileage}
	if claimedYear > 0 {
		if age := v.now().Year() - claimedYear; age > 0 {
			ev.VehicleAge = age
			ev.AvgMilesPerYear = mileage / float64(age)
		}
	}

	if mileage > MaxPlausibleMileage {
		return domain.FieldDecision{
			FieldName: FieldMileage,
			Value:     mileage,
			Decision:  domain.DecisionDoubt,
			DoubtType: domain.DoubtAnomaly,
			Reason:    "odometer above one million: commercial vehicle or data error",
			Evidence:  ev,
		}
	}

	if ev.AvgMilesPerYear > 0 && ev.AvgMilesPerYear < CollectorAnnualMiles {
		return domain.FieldDecision{
			FieldName: FieldMileage,
			Value:     mileage,
			Decision:  domain.DecisionApprove,
			Reason:    fmt.Sprintf("collector-car mileage: %.1f miles/year over %d years", ev.AvgMilesPerYear, ev.VehicleAge),
			Evidence:  ev,
			PatternCandidate: &domain.PatternCandidate{
				Type: domain.PatternCollectorMileage,
				Definition: map[string]any{
					"avg_miles_per_year": ev.AvgMilesPerYear,
					"vehicle_age":        ev.VehicleAge,
				},
			},
		}
	}

	return domain.FieldDecision{
		FieldName: FieldMileage,
		Value:     mileage,
		Decision:  domain.DecisionApprove,
		Reason:    "mileage within plausible range",
		Evidence:  ev,
	}
}

func (v *Validators) validateYear(value any) domain.FieldDecision {
	year, ok := toInt(value)
	if !ok {
		return domain.FieldDecision{
			FieldName: FieldYear,
			Value:     value,
			Decision:  domain.DecisionDoubt,
			DoubtType: domain.DoubtAnomaly,
			Reason:    "year is not numeric",
		}
	}

	if year >= BrassEraStart && year < BrassEraEnd {
		return domain.FieldDecision{
			FieldName: FieldYear,
			Value:     year,
			Decision:  domain.DecisionApprove,
			Reason:    fmt.Sprintf("brass-era vehicle (%d)", year),
			Evidence:  domain.EraEvidence{Year: year},
			PatternCandidate: &domain.PatternCandidate{
				Type:       domain.PatternBrassEra,
				Definition: map[string]any{"year": year},
			},
		}
	}

	return domain.FieldDecision{
		FieldName: FieldYear,
		Value:     year,
		Decision:  domain.DecisionApprove,
		Reason:    "year accepted",
		Evidence:  domain.EraEvidence{Year: year},
	}
}

// validateUnknown handles fields with no dedicated validator via the
// pattern matcher. A matched pattern above the adoption threshold decides
// the field; anything else is queued for research.
func (v *Validators) validateUnknown(ctx context.Context, name string, value any) domain.FieldDecision {
	p, err := v.matcher.Match(ctx, domain.PatternType(name), value)
	if err != nil {
		v.logger.Warn("pattern lookup failed", zap.String("field", name), zap.Error(err))
	}
	if p != nil && p.Adoptable() {
		decision := domain.DecisionApprove
		if p.Resolution == domain.ResolutionReject {
			decision = domain.DecisionReject
		}
		return domain.FieldDecision{
			FieldName: name,
			Value:     value,
			Decision:  decision,
			Reason:    fmt.Sprintf("matched learned pattern %s (confidence %.2f)", p.ID, p.Confidence),
			Evidence:  domain.GenericEvidence{"pattern_id": p.ID.String()},
		}
	}

	return domain.FieldDecision{
		FieldName: name,
		Value:     value,
		Decision:  domain.DecisionDoubt,
		DoubtType: domain.DoubtUnknownPattern,
		Reason:    "no validator and no adoptable pattern for field",
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
