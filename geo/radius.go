package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// boundPad widens search bounds so candidates sitting exactly on the radius
// survive floating point error in the prefilter.
const boundPad = 1e-9

// WithinRadius returns the candidates whose distance to ref is at most
// radiusKm, in input order. Candidates without a usable coordinate are never
// within any radius.
func WithinRadius[T Locatable](ref Point, candidates []T, radiusKm float64) ([]T, error) {
	if err := ValidateRadius(radiusKm); err != nil {
		return nil, err
	}
	if !ref.Valid() {
		return nil, ErrMissingReference
	}

	var out []T
	for _, c := range candidates {
		if IsWithin(ref, c.Location(), radiusKm) {
			out = append(out, c)
		}
	}
	return out, nil
}

// CountWithin is len(WithinRadius(...)) without building the subset.
func CountWithin[T Locatable](ref Point, candidates []T, radiusKm float64) (int, error) {
	if err := ValidateRadius(radiusKm); err != nil {
		return 0, err
	}
	if !ref.Valid() {
		return 0, ErrMissingReference
	}

	n := 0
	for _, c := range candidates {
		if IsWithin(ref, c.Location(), radiusKm) {
			n++
		}
	}
	return n, nil
}

// IsWithin reports whether p lies within radiusKm of ref, boundary inclusive.
// NaN distances compare false and so are excluded.
func IsWithin(ref, p Point, radiusKm float64) bool {
	return Distance(ref, p) <= radiusKm
}

// SearchBound returns a lon/lat box guaranteed to contain every point within
// radiusKm of ref. The box degrades to the full longitude range when the
// circle reaches a pole or crosses the antimeridian, and to the whole globe
// when ref itself is outside the WGS84 ranges.
func SearchBound(ref Point, radiusKm float64) orb.Bound {
	world := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
	if !ref.InRange() {
		return world
	}

	angular := radiusKm/EarthRadiusKm*(1+boundPad) + boundPad
	if angular >= math.Pi {
		return world
	}

	dLat := toDegrees(angular)
	minLat, maxLat := ref.Lat-dLat, ref.Lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return orb.Bound{
			Min: orb.Point{-180, math.Max(minLat, -90)},
			Max: orb.Point{180, math.Min(maxLat, 90)},
		}
	}

	ratio := math.Sin(angular) / math.Cos(toRadians(ref.Lat))
	if ratio >= 1 {
		return orb.Bound{Min: orb.Point{-180, minLat}, Max: orb.Point{180, maxLat}}
	}
	dLon := toDegrees(math.Asin(ratio)) + boundPad
	minLon, maxLon := ref.Lon-dLon, ref.Lon+dLon
	if minLon < -180 || maxLon > 180 {
		minLon, maxLon = -180, 180
	}

	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}
