package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EvalContext carries cross-field hints supplied by the ingestion pipeline.
type EvalContext struct {
	SourceURL    string `json:"source_url,omitempty"`
	SourceDomain string `json:"source_domain,omitempty"`
	ClaimedYear  int    `json:"claimed_year,omitempty"`
	ClaimedMake  string `json:"claimed_make,omitempty"`
	ClaimedModel string `json:"claimed_model,omitempty"`
}

// DecisionStore is the immutable audit log of aggregate decisions.
// Create persists the decision row and its initial doubt-queue items in one
// transaction.
type DecisionStore interface {
	Create(ctx context.Context, d *IntelligenceDecision, doubts []*DoubtQueueItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*IntelligenceDecision, error)
	List(ctx context.Context, overall *Decision, limit, offset int) ([]IntelligenceDecision, error)
}

// ClaimFilter narrows which pending doubts a batch claim may take.
type ClaimFilter struct {
	Priority  *Priority
	DoubtType *DoubtType
}

// ResolveRequest is the single-transaction resolution of one claimed doubt.
// When CreatePattern is set, the learned pattern is inserted in the same
// transaction.
type ResolveRequest struct {
	ID         uuid.UUID
	Resolution Resolution
	Reason     string
	Findings   map[string]any
	ResolvedBy string

	CreatePattern     bool
	PatternType       PatternType
	PatternDefinition map[string]any
	PatternResolution Resolution
	PatternConfidence float64
}

// DoubtQueueStore is the transactional queue port. ClaimBatch must
// atomically transition matched pending items to claimed so that two
// concurrent callers never receive overlapping items. Resolve must refuse
// items that are not currently claimed.
type DoubtQueueStore interface {
	Enqueue(ctx context.Context, item *DoubtQueueItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoubtQueueItem, error)
	ClaimBatch(ctx context.Context, limit int, claimedBy string, filter ClaimFilter) ([]DoubtQueueItem, error)
	Resolve(ctx context.Context, req ResolveRequest) error
	ListByStatus(ctx context.Context, status DoubtStatus, limit int) ([]DoubtQueueItem, error)
	CountByStatus(ctx context.Context) (map[DoubtStatus]int, error)

	// Lease housekeeping, used by the sweeper only.
	RequeueStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error)
	ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error)
}

// PatternStore holds learned patterns. RecordMatch must be an atomic
// counter update in the store, not a read-modify-write from application
// code.
type PatternStore interface {
	Create(ctx context.Context, p *LearnedPattern) error
	GetActiveByType(ctx context.Context, t PatternType, limit int) ([]LearnedPattern, error)
	RecordMatch(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]LearnedPattern, error)
}

// KnownVIN is one previously approved VIN returned by a prefix lookup.
type KnownVIN struct {
	VIN  string `json:"vin"`
	Year int    `json:"year,omitempty"`
}

// VINIndex looks up approved VINs sharing a prefix, used for the
// pre-standard-era heuristic.
type VINIndex interface {
	LookupSimilar(ctx context.Context, prefix string) ([]KnownVIN, error)
}

// DecodedVIN is the best-effort result of a remote VIN decode.
type DecodedVIN struct {
	Year  int    `json:"year,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
}

// VINDecoder is the external decoding collaborator. Calls may fail; callers
// treat failures as research inconclusiveness, never as batch errors.
type VINDecoder interface {
	Decode(ctx context.Context, vin string) (*DecodedVIN, error)
}

// SourceTrust answers whether a source domain is on the trusted-auction
// allowlist.
type SourceTrust interface {
	Trusted(domain string) bool
}
