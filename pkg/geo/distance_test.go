package geo

import (
	"math"
	"testing"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

func TestDistanceKnownPairs(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.LatLng
		wantM     float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.LatLng{Lat: 18.5204, Lng: 73.8567},
			b:         types.LatLng{Lat: 18.5204, Lng: 73.8567},
			wantM:     0,
			tolerance: 0.0001,
		},
		{
			name:      "one degree of latitude (~111 km)",
			a:         types.LatLng{Lat: 0, Lng: 0},
			b:         types.LatLng{Lat: 1, Lng: 0},
			wantM:     111195,
			tolerance: 100,
		},
		{
			name:      "New York to Los Angeles (~3936 km)",
			a:         types.LatLng{Lat: 40.7128, Lng: -74.0060},
			b:         types.LatLng{Lat: 34.0522, Lng: -118.2437},
			wantM:     3936000,
			tolerance: 50000,
		},
		{
			name:      "city-block scale (~130 m)",
			a:         types.LatLng{Lat: 18.520400, Lng: 73.856700},
			b:         types.LatLng{Lat: 18.521400, Lng: 73.857400},
			wantM:     133,
			tolerance: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Distance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Distance: %v", err)
			}
			if math.Abs(got-tt.wantM) > tt.tolerance {
				t.Errorf("Distance() = %f, want %f (±%f)", got, tt.wantM, tt.tolerance)
			}
		})
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := types.LatLng{Lat: 18.52, Lng: 73.85}
	b := types.LatLng{Lat: 19.07, Lng: 72.87}

	d1, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	d2, err := Distance(b, a)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("distance is not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceRejectsInvalidCoordinates(t *testing.T) {
	valid := types.LatLng{Lat: 10, Lng: 10}
	bad := []types.LatLng{
		{Lat: math.NaN(), Lng: 10},
		{Lat: 10, Lng: math.NaN()},
		{Lat: 90.0001, Lng: 0},
		{Lat: -91, Lng: 0},
		{Lat: 0, Lng: 180.5},
		{Lat: 0, Lng: -181},
	}

	for _, p := range bad {
		if _, err := Distance(valid, p); errors.As(err) == nil || errors.As(err).Code() != errors.CodeInvalidCoordinate {
			t.Fatalf("expected INVALID_COORDINATE for %+v, got %v", p, err)
		}
		if _, err := Distance(p, valid); errors.As(err) == nil || errors.As(err).Code() != errors.CodeInvalidCoordinate {
			t.Fatalf("expected INVALID_COORDINATE for %+v as first arg, got %v", p, err)
		}
	}
}

func TestValidateAcceptsBoundaryValues(t *testing.T) {
	corners := []types.LatLng{
		{Lat: 90, Lng: 180},
		{Lat: -90, Lng: -180},
		{Lat: 0, Lng: 0},
	}
	for _, p := range corners {
		if err := Validate(p); err != nil {
			t.Fatalf("Validate(%+v): %v", p, err)
		}
	}
}
