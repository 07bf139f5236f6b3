package domain

import (
	"time"

	"github.com/google/uuid"
)

type DoubtType string

const (
	DoubtAnomaly        DoubtType = "anomaly"
	DoubtConflict       DoubtType = "conflict"
	DoubtEdgeCase       DoubtType = "edge_case"
	DoubtUnknownPattern DoubtType = "unknown_pattern"
)

func ValidDoubtType(t string) bool {
	switch DoubtType(t) {
	case DoubtAnomaly, DoubtConflict, DoubtEdgeCase, DoubtUnknownPattern:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func ValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DefaultPriority maps a doubt type to its queue priority. Cross-field
// conflicts block downstream consumers, so they jump the queue.
func DefaultPriority(t DoubtType) Priority {
	switch t {
	case DoubtConflict:
		return PriorityHigh
	case DoubtAnomaly, DoubtEdgeCase:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type DoubtStatus string

const (
	DoubtPending  DoubtStatus = "pending"
	DoubtClaimed  DoubtStatus = "claimed"
	DoubtResolved DoubtStatus = "resolved"
	DoubtExpired  DoubtStatus = "expired"
)

// DoubtQueueItem is one ambiguous field decision awaiting research.
// Lifecycle: pending -> claimed -> resolved, or pending -> expired when it
// sits unclaimed past the retention window.
type DoubtQueueItem struct {
	ID               uuid.UUID   `json:"id"`
	ParentDecisionID uuid.UUID   `json:"parent_decision_id"`
	FieldName        string      `json:"field_name"`
	FieldValue       any         `json:"field_value"`
	DoubtType        DoubtType   `json:"doubt_type"`
	Priority         Priority    `json:"priority"`
	Reason           string      `json:"reason"`
	Evidence         Evidence    `json:"evidence,omitempty"`
	Status           DoubtStatus `json:"status"`
	ClaimedAt        *time.Time  `json:"claimed_at,omitempty"`
	ClaimedBy        string      `json:"claimed_by,omitempty"`
	Resolution       Resolution  `json:"resolution,omitempty"`
	ResolutionReason string      `json:"resolution_reason,omitempty"`
	ResolvedBy       string      `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// NewDoubt builds a pending queue item from a DOUBT field decision.
func NewDoubt(parentID uuid.UUID, f FieldDecision) *DoubtQueueItem {
	dt := f.DoubtType
	if dt == "" {
		dt = DoubtUnknownPattern
	}
	return &DoubtQueueItem{
		ParentDecisionID: parentID,
		FieldName:        f.FieldName,
		FieldValue:       f.Value,
		DoubtType:        dt,
		Priority:         DefaultPriority(dt),
		Reason:           f.Reason,
		Evidence:         f.Evidence,
		Status:           DoubtPending,
	}
}
