package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestAggregate_AllApprove(t *testing.T) {
	d := Aggregate("https://example.com/listing", "example.com", []FieldDecision{
		{FieldName: "vin", Decision: DecisionApprove},
		{FieldName: "sale_price", Decision: DecisionApprove},
	})

	if d.OverallDecision != DecisionApprove {
		t.Fatalf("expected approve, got %s", d.OverallDecision)
	}
	if d.ApproveCount != 2 || d.DoubtCount != 0 || d.RejectCount != 0 {
		t.Fatalf("unexpected tallies: %d/%d/%d", d.ApproveCount, d.DoubtCount, d.RejectCount)
	}
}

func TestAggregate_RejectWinsOverDoubt(t *testing.T) {
	d := Aggregate("", "", []FieldDecision{
		{FieldName: "vin", Decision: DecisionApprove},
		{FieldName: "mileage", Decision: DecisionDoubt, DoubtType: DoubtAnomaly},
		{FieldName: "sale_price", Decision: DecisionReject, Reason: "sale price 50 below plausible floor"},
	})

	if d.OverallDecision != DecisionReject {
		t.Fatalf("expected reject, got %s", d.OverallDecision)
	}
	if len(d.RejectReasons) != 1 || d.RejectReasons[0] != "sale price 50 below plausible floor" {
		t.Fatalf("unexpected reject reasons: %v", d.RejectReasons)
	}
}

func TestAggregate_DoubtWhenNoReject(t *testing.T) {
	d := Aggregate("", "", []FieldDecision{
		{FieldName: "vin", Decision: DecisionApprove},
		{FieldName: "vin_year_consistency", Decision: DecisionDoubt, DoubtType: DoubtConflict},
	})

	if d.OverallDecision != DecisionDoubt {
		t.Fatalf("expected doubt, got %s", d.OverallDecision)
	}
}

func TestAggregate_EmptyFieldsApprove(t *testing.T) {
	d := Aggregate("", "", nil)
	if d.OverallDecision != DecisionApprove {
		t.Fatalf("expected approve for empty input, got %s", d.OverallDecision)
	}
}

// The tallies always sum to the number of input fields, and the overall
// decision depends only on which decisions are present, not their order.
func TestAggregate_TalliesAndOrderIndependence(t *testing.T) {
	fields := []FieldDecision{
		{FieldName: "a", Decision: DecisionApprove},
		{FieldName: "b", Decision: DecisionDoubt, DoubtType: DoubtAnomaly},
		{FieldName: "c", Decision: DecisionReject, Reason: "r1"},
		{FieldName: "d", Decision: DecisionDoubt, DoubtType: DoubtEdgeCase},
		{FieldName: "e", Decision: DecisionApprove},
	}

	forward := Aggregate("", "", fields)

	reversed := make([]FieldDecision, len(fields))
	for i, f := range fields {
		reversed[len(fields)-1-i] = f
	}
	backward := Aggregate("", "", reversed)

	for _, d := range []*IntelligenceDecision{forward, backward} {
		if got := d.ApproveCount + d.DoubtCount + d.RejectCount; got != len(fields) {
			t.Fatalf("tallies sum to %d, want %d", got, len(fields))
		}
		if d.OverallDecision != DecisionReject {
			t.Fatalf("expected reject, got %s", d.OverallDecision)
		}
	}
}

func TestDoubts_ReturnsOnlyDoubtFields(t *testing.T) {
	d := Aggregate("", "", []FieldDecision{
		{FieldName: "vin", Decision: DecisionApprove},
		{FieldName: "mileage", Decision: DecisionDoubt, DoubtType: DoubtAnomaly},
		{FieldName: "sale_price", Decision: DecisionReject},
		{FieldName: "color", Decision: DecisionDoubt, DoubtType: DoubtUnknownPattern},
	})

	doubts := d.Doubts()
	if len(doubts) != 2 {
		t.Fatalf("expected 2 doubts, got %d", len(doubts))
	}
	for _, f := range doubts {
		if f.Decision != DecisionDoubt {
			t.Fatalf("non-doubt field %s returned", f.FieldName)
		}
	}
}

func TestFieldDecision_JSONRoundTrip(t *testing.T) {
	fd := FieldDecision{
		FieldName: "vin_year_consistency",
		Value:     float64(1999),
		Decision:  DecisionDoubt,
		DoubtType: DoubtConflict,
		Reason:    "vin model year 1999 disagrees with claimed year 1982",
		Evidence:  YearConflictEvidence{VINYear: 1999, ClaimedYear: 1982, Diff: 17},
	}

	data, err := json.Marshal(fd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got FieldDecision
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	ev, ok := got.Evidence.(YearConflictEvidence)
	if !ok {
		t.Fatalf("evidence decoded as %T, want YearConflictEvidence", got.Evidence)
	}
	if ev.VINYear != 1999 || ev.ClaimedYear != 1982 || ev.Diff != 17 {
		t.Fatalf("evidence fields lost: %+v", ev)
	}
	if got.DoubtType != DoubtConflict {
		t.Fatalf("doubt type lost: %s", got.DoubtType)
	}
}

func TestNewDoubt_PriorityMapping(t *testing.T) {
	cases := []struct {
		doubtType DoubtType
		want      Priority
	}{
		{DoubtConflict, PriorityHigh},
		{DoubtAnomaly, PriorityMedium},
		{DoubtEdgeCase, PriorityMedium},
		{DoubtUnknownPattern, PriorityLow},
	}

	for _, tc := range cases {
		item := NewDoubt(uuid.Nil, FieldDecision{
			FieldName: "f",
			Decision:  DecisionDoubt,
			DoubtType: tc.doubtType,
		})
		if item.Priority != tc.want {
			t.Errorf("%s: priority %s, want %s", tc.doubtType, item.Priority, tc.want)
		}
		if item.Status != DoubtPending {
			t.Errorf("%s: status %s, want pending", tc.doubtType, item.Status)
		}
	}
}

func TestNewDoubt_DefaultsDoubtType(t *testing.T) {
	item := NewDoubt(uuid.Nil, FieldDecision{FieldName: "color", Decision: DecisionDoubt})
	if item.DoubtType != DoubtUnknownPattern {
		t.Fatalf("expected unknown_pattern, got %s", item.DoubtType)
	}
	if item.Priority != PriorityLow {
		t.Fatalf("expected low priority, got %s", item.Priority)
	}
}
