package domain

import (
	"encoding/json"
	"fmt"
)

// Evidence is the typed payload attached to a field decision or queued
// doubt. Each doubt type carries a known shape so research strategies can
// type-switch instead of probing a loose map. Serialized as JSON with a
// "kind" discriminator.
type Evidence interface {
	Kind() string
}

const (
	EvidenceKindVIN          = "vin"
	EvidenceKindYearConflict = "year_conflict"
	EvidenceKindPrice        = "price"
	EvidenceKindMileage      = "mileage"
	EvidenceKindEra          = "era"
	EvidenceKindGeneric      = "generic"
)

type VINEvidence struct {
	VIN             string   `json:"vin"`
	Length          int      `json:"length"`
	ChecksumValid   bool     `json:"checksum_valid"`
	PreStandardEra  bool     `json:"pre_standard_era"`
	DecodedYear     int      `json:"decoded_year,omitempty"`
	DecodedMake     string   `json:"decoded_make,omitempty"`
	MatchedPrefixes []string `json:"matched_prefixes,omitempty"`
}

func (VINEvidence) Kind() string { return EvidenceKindVIN }

type YearConflictEvidence struct {
	VINYear     int `json:"vin_year"`
	ClaimedYear int `json:"claimed_year"`
	Diff        int `json:"diff"`
}

func (YearConflictEvidence) Kind() string { return EvidenceKindYearConflict }

type PriceEvidence struct {
	Price         float64 `json:"price"`
	SourceDomain  string  `json:"source_domain,omitempty"`
	TrustedSource bool    `json:"trusted_source"`
}

func (PriceEvidence) Kind() string { return EvidenceKindPrice }

type MileageEvidence struct {
	Mileage         float64 `json:"mileage"`
	VehicleAge      int     `json:"vehicle_age,omitempty"`
	AvgMilesPerYear float64 `json:"avg_miles_per_year,omitempty"`
}

func (MileageEvidence) Kind() string { return EvidenceKindMileage }

type EraEvidence struct {
	Year int `json:"year"`
}

func (EraEvidence) Kind() string { return EvidenceKindEra }

// GenericEvidence carries fields the engine has no dedicated shape for.
type GenericEvidence map[string]any

func (GenericEvidence) Kind() string { return EvidenceKindGeneric }

type evidenceEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalEvidence wraps evidence in its discriminator envelope for storage.
// Nil evidence marshals to nil.
func MarshalEvidence(e Evidence) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(evidenceEnvelope{Kind: e.Kind(), Payload: payload})
}

// UnmarshalEvidence decodes an envelope back into its concrete shape.
// Unknown kinds come back as GenericEvidence so old rows stay readable.
func UnmarshalEvidence(data []byte) (Evidence, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var env evidenceEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("evidence envelope: %w", err)
	}

	var (
		e   Evidence
		err error
	)
	switch env.Kind {
	case EvidenceKindVIN:
		var v VINEvidence
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case EvidenceKindYearConflict:
		var v YearConflictEvidence
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case EvidenceKindPrice:
		var v PriceEvidence
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case EvidenceKindMileage:
		var v MileageEvidence
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case EvidenceKindEra:
		var v EraEvidence
		err = json.Unmarshal(env.Payload, &v)
		e = v
	default:
		var v GenericEvidence
		err = json.Unmarshal(env.Payload, &v)
		e = v
	}
	if err != nil {
		return nil, fmt.Errorf("evidence payload %q: %w", env.Kind, err)
	}
	return e, nil
}
