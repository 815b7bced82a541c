// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

// earthRadiusM is the mean Earth radius used for great-circle math.
const earthRadiusM = 6371000.0

// Validate rejects coordinate pairs that are NaN or outside the WGS84
// envelope (|lat| <= 90, |lng| <= 180).
func Validate(p types.LatLng) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return errors.New(errors.CodeInvalidCoordinate, "coordinate is NaN").
			WithDetails(map[string]any{"lat": p.Lat, "lng": p.Lng})
	}
	if p.Lat < -90 || p.Lat > 90 {
		return errors.New(errors.CodeInvalidCoordinate, "latitude out of bounds").
			WithDetails(map[string]any{"lat": p.Lat})
	}
	if p.Lng < -180 || p.Lng > 180 {
		return errors.New(errors.CodeInvalidCoordinate, "longitude out of bounds").
			WithDetails(map[string]any{"lng": p.Lng})
	}
	return nil
}

// Distance returns the great-circle distance in meters between two points,
// computed with the haversine formula. Both endpoints are validated first.
func Distance(a, b types.LatLng) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}

	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c, nil
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
