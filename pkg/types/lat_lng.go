package types

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// LatLng is a WGS84 coordinate pair stored in Postgres as a single
// "lat,lng" text column.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Value produces the "lat,lng" literal for Postgres.
func (c LatLng) Value() (driver.Value, error) {
	return c.String(), nil
}

// String renders the pair with full float64 round-trip precision.
func (c LatLng) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// Scan accepts the delimited text form returned by Postgres.
func (c *LatLng) Scan(value interface{}) error {
	if value == nil {
		*c = LatLng{}
		return nil
	}

	switch v := value.(type) {
	case string:
		return c.fromText(v)
	case []byte:
		return c.fromText(string(v))
	default:
		if stringer, ok := value.(fmt.Stringer); ok {
			return c.fromText(stringer.String())
		}
		return fmt.Errorf("latlng: unsupported scan type %T", value)
	}
}

func (c *LatLng) fromText(raw string) error {
	parsed, err := ParseLatLng(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseLatLng parses a "lat,lng" string. Whitespace around either
// component is tolerated; anything else is rejected.
func ParseLatLng(raw string) (LatLng, error) {
	segments := strings.Split(strings.TrimSpace(raw), ",")
	if len(segments) != 2 {
		return LatLng{}, fmt.Errorf("latlng: expected \"lat,lng\", got %q", raw)
	}

	lat, err := parseCoordinate(segments[0])
	if err != nil {
		return LatLng{}, err
	}
	lng, err := parseCoordinate(segments[1])
	if err != nil {
		return LatLng{}, err
	}

	return LatLng{Lat: lat, Lng: lng}, nil
}

func parseCoordinate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("latlng: empty coordinate")
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("latlng: parse coordinate: %w", err)
	}
	return f, nil
}
