package geo

import "math"

// EarthRadiusKm is the mean radius of the sphere used by the haversine formula.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres between a and b.
// A missing coordinate on either side yields NaN.
func Distance(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lon1 := toRadians(a.Lon)
	lat2 := toRadians(b.Lat)
	lon2 := toRadians(b.Lon)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// rounding can push h just outside [0, 1] near antipodal points
	if h > 1 {
		h = 1
	} else if h < 0 {
		h = 0
	}

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Distances computes the distance from ref to every candidate, one output per
// candidate in input order.
func Distances(ref Point, candidates []Point) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = Distance(ref, c)
	}
	return out
}

// DistancesLatLon is Distances over parallel latitude/longitude columns.
// Columns of unequal length are evaluated up to the shorter one.
func DistancesLatLon(refLat, refLon float64, lats, lons []float64) []float64 {
	n := min(len(lats), len(lons))
	ref := Point{Lat: refLat, Lon: refLon}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = Distance(ref, Point{Lat: lats[i], Lon: lons[i]})
	}
	return out
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
