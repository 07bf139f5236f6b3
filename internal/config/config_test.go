package config

import "testing"

func TestVPICBaseURLDefaultMatchesDecodeEndpoint(t *testing.T) {
	t.Setenv("VPIC_BASE_URL", "")

	// DecodeVin lives under /api/vehicles; a bare /api base 404s.
	got := VPICBaseURL()
	want := "https://vpic.nhtsa.dot.gov/api/vehicles"
	if got != want {
		t.Fatalf("VPICBaseURL() = %q, want %q", got, want)
	}
}

func TestVPICBaseURLOverride(t *testing.T) {
	t.Setenv("VPIC_BASE_URL", "http://localhost:9090/api/vehicles")

	if got := VPICBaseURL(); got != "http://localhost:9090/api/vehicles" {
		t.Fatalf("VPICBaseURL() = %q, want override", got)
	}
}
