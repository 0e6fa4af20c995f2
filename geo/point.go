// Package geo holds the great-circle distance kernel and the radius queries
// every aggregation in this module is built on.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

var (
	// ErrInvalidRadius is returned when a radius is negative, NaN or infinite.
	ErrInvalidRadius = errors.New("geo: invalid radius")
	// ErrMissingReference is returned when the reference point of a query has
	// no usable coordinate.
	ErrMissingReference = errors.New("geo: reference point has no usable coordinate")
)

// Point is a latitude/longitude pair in decimal degrees (WGS84).
// Values outside [-90, 90] / [-180, 180] are tolerated and fed through the
// distance formula as-is; only NaN and infinite values count as missing.
type Point struct {
	Lat float64
	Lon float64
}

// Locatable is anything a radius query can be run over.
type Locatable interface {
	Location() Point
}

// NaNPoint is the value used for records without a usable coordinate.
func NaNPoint() Point {
	return Point{Lat: math.NaN(), Lon: math.NaN()}
}

// Valid reports whether both coordinates are finite.
func (p Point) Valid() bool {
	return isFinite(p.Lat) && isFinite(p.Lon)
}

// InRange reports whether the point lies within the WGS84 degree ranges.
func (p Point) InRange() bool {
	return p.Valid() && p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Location lets a bare Point be used as a query candidate.
func (p Point) Location() Point { return p }

// Orb returns the point in orb's (lon, lat) order.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lon)
}

// ValidateRadius checks a caller-supplied radius in kilometres.
func ValidateRadius(radiusKm float64) error {
	if !isFinite(radiusKm) || radiusKm < 0 {
		return fmt.Errorf("%w: %v km", ErrInvalidRadius, radiusKm)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
