package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/store"
	"github.com/vindexhq/vindex/internal/trust"
)

func setupValidators() (*Validators, *store.MemoryVINIndex, *store.MemoryPatternStore) {
	patterns := store.NewMemoryPatternStore()
	vinIndex := store.NewMemoryVINIndex()
	logger := zap.NewNop()

	v := NewValidators(vinIndex, NewMatcher(patterns, logger), trust.NewChecker(nil), logger)
	v.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return v, vinIndex, patterns
}

func fieldByName(t *testing.T, fields []domain.FieldDecision, name string) domain.FieldDecision {
	t.Helper()
	for _, f := range fields {
		if f.FieldName == name {
			return f
		}
	}
	t.Fatalf("no decision for field %s", name)
	return domain.FieldDecision{}
}

func TestValidateSalePrice(t *testing.T) {
	v, _, _ := setupValidators()

	cases := []struct {
		name      string
		price     any
		source    string
		want      domain.Decision
		wantDoubt domain.DoubtType
	}{
		{"below floor", float64(99), "bringatrailer.com", domain.DecisionReject, ""},
		{"high value trusted", float64(2500000), "bringatrailer.com", domain.DecisionApprove, ""},
		{"high value trusted subdomain", float64(2500000), "auctions.mecum.com", domain.DecisionApprove, ""},
		{"high value untrusted", float64(2500000), "randomclassifieds.example", domain.DecisionDoubt, domain.DoubtAnomaly},
		{"normal price", float64(45000), "randomclassifieds.example", domain.DecisionApprove, ""},
		{"exactly at floor", float64(100), "x.example", domain.DecisionApprove, ""},
		{"non-numeric", "cheap", "x.example", domain.DecisionDoubt, domain.DoubtAnomaly},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fd := v.validateSalePrice(tc.price, tc.source)
			if fd.Decision != tc.want {
				t.Fatalf("decision %s, want %s (%s)", fd.Decision, tc.want, fd.Reason)
			}
			if tc.want == domain.DecisionDoubt && fd.DoubtType != tc.wantDoubt {
				t.Fatalf("doubt type %s, want %s", fd.DoubtType, tc.wantDoubt)
			}
		})
	}
}

func TestValidateMileage(t *testing.T) {
	v, _, _ := setupValidators()

	// 1200 miles on a 1965 car: about 20 miles a year. Collector territory.
	fd := v.validateMileage(float64(1200), 1965)
	if fd.Decision != domain.DecisionApprove {
		t.Fatalf("collector mileage: %s (%s)", fd.Decision, fd.Reason)
	}
	if fd.PatternCandidate == nil || fd.PatternCandidate.Type != domain.PatternCollectorMileage {
		t.Fatal("collector mileage must surface a pattern candidate")
	}

	// Over a million is always an anomaly regardless of age.
	fd = v.validateMileage(float64(1500000), 1965)
	if fd.Decision != domain.DecisionDoubt || fd.DoubtType != domain.DoubtAnomaly {
		t.Fatalf("million-mile odometer: %s/%s", fd.Decision, fd.DoubtType)
	}

	// Ordinary usage approves without a candidate.
	fd = v.validateMileage(float64(250000), 2018)
	if fd.Decision != domain.DecisionApprove || fd.PatternCandidate != nil {
		t.Fatalf("ordinary mileage: %s, candidate=%v", fd.Decision, fd.PatternCandidate)
	}

	// No claimed year means no annual-average heuristic.
	fd = v.validateMileage(float64(50), 0)
	if fd.Decision != domain.DecisionApprove || fd.PatternCandidate != nil {
		t.Fatalf("no-year mileage: %s, candidate=%v", fd.Decision, fd.PatternCandidate)
	}
}

func TestValidateYear(t *testing.T) {
	v, _, _ := setupValidators()

	fd := v.validateYear(1905)
	if fd.Decision != domain.DecisionApprove {
		t.Fatalf("brass era: %s", fd.Decision)
	}
	if fd.PatternCandidate == nil || fd.PatternCandidate.Type != domain.PatternBrassEra {
		t.Fatal("brass-era year must surface a pattern candidate")
	}

	// 1920 is the first post-brass year.
	fd = v.validateYear(1920)
	if fd.Decision != domain.DecisionApprove || fd.PatternCandidate != nil {
		t.Fatalf("1920: %s, candidate=%v", fd.Decision, fd.PatternCandidate)
	}

	fd = v.validateYear(1975)
	if fd.Decision != domain.DecisionApprove || fd.PatternCandidate != nil {
		t.Fatalf("1975: %s, candidate=%v", fd.Decision, fd.PatternCandidate)
	}

	fd = v.validateYear("next year")
	if fd.Decision != domain.DecisionDoubt || fd.DoubtType != domain.DoubtAnomaly {
		t.Fatalf("non-numeric year: %s/%s", fd.Decision, fd.DoubtType)
	}
}

func TestValidateVIN(t *testing.T) {
	v, vinIndex, _ := setupValidators()
	ctx := context.Background()

	// Standard-era VIN with a valid check digit.
	fd := v.validateVIN(ctx, "1G1YY32G5X5114539", 1999)
	if fd.Decision != domain.DecisionApprove {
		t.Fatalf("valid standard vin: %s (%s)", fd.Decision, fd.Reason)
	}

	// A single mutated digit fails the mod-11 check and is a hard reject.
	fd = v.validateVIN(ctx, "1G1YY32G5X5114538", 1999)
	if fd.Decision != domain.DecisionReject {
		t.Fatalf("mutated vin: %s", fd.Decision)
	}
	if fd.PatternCandidate != nil {
		t.Fatal("checksum failures never produce pattern candidates")
	}

	// Pre-standard identifier matching previously approved VINs.
	vinIndex.Add("30837S101234", 1963)
	vinIndex.Add("30837S105678", 1963)
	fd = v.validateVIN(ctx, "30837S109999", 1963)
	if fd.Decision != domain.DecisionApprove {
		t.Fatalf("prefix-matched pre-standard vin: %s (%s)", fd.Decision, fd.Reason)
	}
	if fd.PatternCandidate == nil || fd.PatternCandidate.Type != domain.PatternVINPrefix {
		t.Fatal("prefix match must surface a vin_prefix candidate")
	}

	// Pre-standard by claimed year but locally decodable.
	fd = v.validateVIN(ctx, "1FABP45E3JF123456", 1979)
	if fd.Decision != domain.DecisionApprove {
		t.Fatalf("decodable pre-standard vin: %s (%s)", fd.Decision, fd.Reason)
	}

	// Unverifiable pre-standard identifier queues as an edge case.
	fd = v.validateVIN(ctx, "ENG4412X", 1955)
	if fd.Decision != domain.DecisionDoubt || fd.DoubtType != domain.DoubtEdgeCase {
		t.Fatalf("unverifiable vin: %s/%s", fd.Decision, fd.DoubtType)
	}

	// Missing or non-string values are anomalies.
	fd = v.validateVIN(ctx, 12345, 1999)
	if fd.Decision != domain.DecisionDoubt || fd.DoubtType != domain.DoubtAnomaly {
		t.Fatalf("non-string vin: %s/%s", fd.Decision, fd.DoubtType)
	}
}

func TestCheckVINYearConsistency(t *testing.T) {
	v, _, _ := setupValidators()

	// Agreement produces no synthesized field.
	if _, ok := v.checkVINYearConsistency("1G1YY32G5X5114539", 1999); ok {
		t.Fatal("agreeing years must not synthesize a conflict")
	}

	// Any disagreement queues, even one year. The tolerance rule belongs to
	// research, not the validator.
	fd, ok := v.checkVINYearConsistency("1G1YY32G5X5114539", 1998)
	if !ok || fd.Decision != domain.DecisionDoubt || fd.DoubtType != domain.DoubtConflict {
		t.Fatalf("one-year offset: ok=%v %s/%s", ok, fd.Decision, fd.DoubtType)
	}
	ev, isConflict := fd.Evidence.(domain.YearConflictEvidence)
	if !isConflict || ev.Diff != 1 {
		t.Fatalf("unexpected evidence: %+v", fd.Evidence)
	}

	fd, ok = v.checkVINYearConsistency("1G1YY32G5X5114539", 1982)
	if !ok {
		t.Fatal("large conflict must synthesize a doubt")
	}
	ev = fd.Evidence.(domain.YearConflictEvidence)
	if ev.VINYear != 1999 || ev.ClaimedYear != 1982 || ev.Diff != 17 {
		t.Fatalf("unexpected conflict evidence: %+v", ev)
	}

	// Undecodable VINs cannot conflict.
	if _, ok := v.checkVINYearConsistency("CSX2196", 1964); ok {
		t.Fatal("short vin must not synthesize a conflict")
	}
	if _, ok := v.checkVINYearConsistency("1G1YY32G5X5114539", 0); ok {
		t.Fatal("missing claimed year must not synthesize a conflict")
	}
}

func TestValidateUnknown(t *testing.T) {
	v, _, patterns := setupValidators()
	ctx := context.Background()

	// No pattern: queue for research.
	fd := v.validateUnknown(ctx, "color", "British Racing Green")
	if fd.Decision != domain.DecisionDoubt || fd.DoubtType != domain.DoubtUnknownPattern {
		t.Fatalf("no pattern: %s/%s", fd.Decision, fd.DoubtType)
	}

	// An adoptable pattern decides the field directly.
	adoptable := &domain.LearnedPattern{
		Type:       domain.PatternType("color"),
		Definition: map[string]any{"any": true},
		Resolution: domain.ResolutionApprove,
		Confidence: 0.9,
	}
	if err := patterns.Create(ctx, adoptable); err != nil {
		t.Fatalf("create pattern: %v", err)
	}

	fd = v.validateUnknown(ctx, "color", "British Racing Green")
	if fd.Decision != domain.DecisionApprove {
		t.Fatalf("adoptable pattern: %s (%s)", fd.Decision, fd.Reason)
	}

	p, _ := patterns.GetByID(adoptable.ID)
	if p.MatchCount == 0 {
		t.Fatal("consulted pattern must have its match count recorded")
	}

	// A reject pattern rejects.
	rejecting := &domain.LearnedPattern{
		Type:       domain.PatternType("listing_status"),
		Resolution: domain.ResolutionReject,
		Confidence: 0.95,
	}
	_ = patterns.Create(ctx, rejecting)
	fd = v.validateUnknown(ctx, "listing_status", "relisted")
	if fd.Decision != domain.DecisionReject {
		t.Fatalf("rejecting pattern: %s", fd.Decision)
	}

	// Below-threshold patterns are consulted but not adopted.
	weak := &domain.LearnedPattern{
		Type:       domain.PatternType("trim"),
		Resolution: domain.ResolutionApprove,
		Confidence: 0.5,
	}
	_ = patterns.Create(ctx, weak)
	fd = v.validateUnknown(ctx, "trim", "LS")
	if fd.Decision != domain.DecisionDoubt || fd.DoubtType != domain.DoubtUnknownPattern {
		t.Fatalf("weak pattern: %s/%s", fd.Decision, fd.DoubtType)
	}
	p, _ = patterns.GetByID(weak.ID)
	if p.MatchCount != 1 {
		t.Fatalf("weak pattern match count %d, want 1", p.MatchCount)
	}
}

func TestValidateAll_OrderAndClaimedYearHandling(t *testing.T) {
	v, _, _ := setupValidators()
	ctx := context.Background()

	extracted := map[string]any{
		"vin":          "1G1YY32G5X5114539",
		"sale_price":   float64(45000),
		"mileage":      float64(32000),
		"claimed_year": float64(1982),
	}

	fields := v.ValidateAll(ctx, extracted, domain.EvalContext{})
	// claimed_year is context, not a validated field; the synthesized
	// consistency check lands last.
	if len(fields) != 4 {
		t.Fatalf("got %d fields, want 4", len(fields))
	}
	wantOrder := []string{"mileage", "sale_price", "vin", "vin_year_consistency"}
	for i, name := range wantOrder {
		if fields[i].FieldName != name {
			t.Fatalf("field %d is %s, want %s", i, fields[i].FieldName, name)
		}
	}

	// The context object wins over the extracted hint.
	fields = v.ValidateAll(ctx, extracted, domain.EvalContext{ClaimedYear: 1999})
	if len(fields) != 3 {
		t.Fatalf("context claimed year should remove the conflict, got %d fields", len(fields))
	}
}
