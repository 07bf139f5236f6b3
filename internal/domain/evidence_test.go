package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalEvidence_Nil(t *testing.T) {
	data, err := MarshalEvidence(nil)
	require.NoError(t, err)
	require.Nil(t, data)

	ev, err := UnmarshalEvidence(nil)
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestEvidence_RoundTripConcreteShapes(t *testing.T) {
	cases := []Evidence{
		VINEvidence{VIN: "1G1YY32G5X5114539", Length: 17, ChecksumValid: true},
		YearConflictEvidence{VINYear: 1999, ClaimedYear: 1982, Diff: 17},
		PriceEvidence{Price: 2500000, SourceDomain: "bringatrailer.com", TrustedSource: true},
		MileageEvidence{Mileage: 1200, VehicleAge: 60, AvgMilesPerYear: 20},
		EraEvidence{Year: 1905},
		GenericEvidence{"pattern_id": "abc"},
	}

	for _, in := range cases {
		data, err := MarshalEvidence(in)
		require.NoError(t, err, in.Kind())

		out, err := UnmarshalEvidence(data)
		require.NoError(t, err, in.Kind())
		require.Equal(t, in.Kind(), out.Kind())
	}
}

func TestUnmarshalEvidence_UnknownKindFallsBackToGeneric(t *testing.T) {
	raw := []byte(`{"kind":"telemetry","payload":{"odometer_source":"dash_photo"}}`)

	ev, err := UnmarshalEvidence(raw)
	require.NoError(t, err)

	g, ok := ev.(GenericEvidence)
	require.True(t, ok, "expected GenericEvidence, got %T", ev)
	require.Equal(t, "dash_photo", g["odometer_source"])
}

func TestUnmarshalEvidence_BadEnvelope(t *testing.T) {
	_, err := UnmarshalEvidence([]byte(`not json`))
	require.Error(t, err)
}
