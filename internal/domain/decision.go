package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Decision is a field-level (and aggregate) classification outcome.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDoubt   Decision = "doubt"
	DecisionReject  Decision = "reject"
)

func ValidDecision(d string) bool {
	switch Decision(d) {
	case DecisionApprove, DecisionDoubt, DecisionReject:
		return true
	}
	return false
}

// PatternCandidate marks a field decision whose rationale is judged
// generalizable. Candidates are surfaced as evidence only; the pattern row
// itself is written by a research resolution, never by a validator.
type PatternCandidate struct {
	Type       PatternType    `json:"type"`
	Definition map[string]any `json:"definition"`
}

// FieldDecision is the immutable outcome for a single field of one
// evaluation.
type FieldDecision struct {
	FieldName        string            `json:"field_name"`
	Value            any               `json:"value"`
	Decision         Decision          `json:"decision"`
	Reason           string            `json:"reason"`
	Evidence         Evidence          `json:"evidence,omitempty"`
	DoubtType        DoubtType         `json:"doubt_type,omitempty"`
	PatternCandidate *PatternCandidate `json:"pattern_candidate,omitempty"`
}

// fieldDecisionJSON is the wire/storage form; evidence travels inside its
// kind envelope so it round-trips back to a concrete shape.
type fieldDecisionJSON struct {
	FieldName        string            `json:"field_name"`
	Value            any               `json:"value"`
	Decision         Decision          `json:"decision"`
	Reason           string            `json:"reason"`
	Evidence         json.RawMessage   `json:"evidence,omitempty"`
	DoubtType        DoubtType         `json:"doubt_type,omitempty"`
	PatternCandidate *PatternCandidate `json:"pattern_candidate,omitempty"`
}

func (f FieldDecision) MarshalJSON() ([]byte, error) {
	ev, err := MarshalEvidence(f.Evidence)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldDecisionJSON{
		FieldName:        f.FieldName,
		Value:            f.Value,
		Decision:         f.Decision,
		Reason:           f.Reason,
		Evidence:         ev,
		DoubtType:        f.DoubtType,
		PatternCandidate: f.PatternCandidate,
	})
}

func (f *FieldDecision) UnmarshalJSON(data []byte) error {
	var raw fieldDecisionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ev, err := UnmarshalEvidence(raw.Evidence)
	if err != nil {
		return err
	}
	*f = FieldDecision{
		FieldName:        raw.FieldName,
		Value:            raw.Value,
		Decision:         raw.Decision,
		Reason:           raw.Reason,
		Evidence:         ev,
		DoubtType:        raw.DoubtType,
		PatternCandidate: raw.PatternCandidate,
	}
	return nil
}

// IntelligenceDecision is the aggregate outcome of one evaluation call.
// Owned by the decision log; created once, never mutated.
type IntelligenceDecision struct {
	ID              uuid.UUID       `json:"id"`
	SourceURL       string          `json:"source_url,omitempty"`
	SourceDomain    string          `json:"source_domain,omitempty"`
	OverallDecision Decision        `json:"overall_decision"`
	ApproveCount    int             `json:"approve_count"`
	DoubtCount      int             `json:"doubt_count"`
	RejectCount     int             `json:"reject_count"`
	FieldDecisions  []FieldDecision `json:"field_decisions"`
	RejectReasons   []string        `json:"reject_reasons,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Aggregate combines per-field outcomes into one overall decision:
// any reject wins, else any doubt, else approve. Pure and total; the
// overall decision is always derived here and never set independently.
func Aggregate(sourceURL, sourceDomain string, fields []FieldDecision) *IntelligenceDecision {
	d := &IntelligenceDecision{
		SourceURL:       sourceURL,
		SourceDomain:    sourceDomain,
		OverallDecision: DecisionApprove,
		FieldDecisions:  fields,
	}

	for _, f := range fields {
		switch f.Decision {
		case DecisionReject:
			d.RejectCount++
			d.RejectReasons = append(d.RejectReasons, f.Reason)
		case DecisionDoubt:
			d.DoubtCount++
		default:
			d.ApproveCount++
		}
	}

	switch {
	case d.RejectCount > 0:
		d.OverallDecision = DecisionReject
	case d.DoubtCount > 0:
		d.OverallDecision = DecisionDoubt
	}

	return d
}

// Doubts returns the field decisions that require queueing.
func (d *IntelligenceDecision) Doubts() []FieldDecision {
	var out []FieldDecision
	for _, f := range d.FieldDecisions {
		if f.Decision == DecisionDoubt {
			out = append(out, f)
		}
	}
	return out
}
