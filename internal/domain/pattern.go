package domain

import (
	"time"

	"github.com/google/uuid"
)

// Resolution is the terminal outcome of researching one doubt. Inconclusive
// is not a field-decision value: it means "left unresolved, needs human
// review" and such doubts stay visible to operators.
type Resolution string

const (
	ResolutionApprove      Resolution = "approve"
	ResolutionReject       Resolution = "reject"
	ResolutionInconclusive Resolution = "inconclusive"
)

func ValidResolution(r string) bool {
	switch Resolution(r) {
	case ResolutionApprove, ResolutionReject, ResolutionInconclusive:
		return true
	}
	return false
}

// ValidPatternResolution reports whether r may be stored on a pattern.
// An inconclusive rule resolves nothing, so patterns only carry approve
// or reject.
func ValidPatternResolution(r string) bool {
	switch Resolution(r) {
	case ResolutionApprove, ResolutionReject:
		return true
	}
	return false
}

type PatternType string

const (
	PatternVINPrefix        PatternType = "vin_prefix"
	PatternModelYearOffset  PatternType = "model_year_offset"
	PatternCollectorMileage PatternType = "collector_low_mileage"
	PatternBrassEra         PatternType = "brass_era"
)

// NewPatternConfidence is the confidence assigned to research-created
// patterns: above the adoption threshold so a learned pattern is
// immediately actionable, below 1.0 so operators can tell learned rules
// from axioms.
const NewPatternConfidence = 0.85

// PatternAdoptThreshold is the minimum confidence at which a matched
// pattern's resolution is adopted without research.
const PatternAdoptThreshold = 0.8

// LearnedPattern is a reusable resolution rule for a class of doubts,
// created when a research outcome is judged generalizable. Existing
// patterns are never mutated except for the match_count counter.
type LearnedPattern struct {
	ID         uuid.UUID      `json:"id"`
	Type       PatternType    `json:"pattern_type"`
	Definition map[string]any `json:"pattern_definition"`
	Resolution Resolution     `json:"resolution"`
	Confidence float64        `json:"confidence"`
	MatchCount int            `json:"match_count"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Adoptable reports whether the pattern's resolution can be taken as-is.
// Inconclusive patterns are never adoptable regardless of confidence.
func (p *LearnedPattern) Adoptable() bool {
	if !p.IsActive || p.Confidence <= PatternAdoptThreshold {
		return false
	}
	return p.Resolution == ResolutionApprove || p.Resolution == ResolutionReject
}

// ResearchResult is the ephemeral outcome of one research strategy run,
// consumed immediately to resolve the doubt and optionally insert a pattern.
type ResearchResult struct {
	DoubtID        uuid.UUID       `json:"doubt_id"`
	Field          string          `json:"field"`
	Resolution     Resolution      `json:"resolution"`
	Reason         string          `json:"reason"`
	Findings       map[string]any  `json:"findings,omitempty"`
	PatternCreated bool            `json:"pattern_created"`
	Pattern        *LearnedPattern `json:"pattern,omitempty"`
}
