package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type site struct {
	name string
	at   Point
}

func (s site) Location() Point { return s.at }

func sitesAt(ref Point, distancesKm ...float64) []site {
	out := make([]site, len(distancesKm))
	for i, d := range distancesKm {
		out[i] = site{name: string(rune('a' + i)), at: northOf(ref, d)}
	}
	return out
}

func names(sites []site) []string {
	out := make([]string, len(sites))
	for i, s := range sites {
		out[i] = s.name
	}
	return out
}

func TestWithinRadius(t *testing.T) {
	cands := sitesAt(chicago, 0.2, 0.9, 1.5)

	got, err := WithinRadius(chicago, cands, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(got))
}

func TestWithinRadiusBoundaryIsInclusive(t *testing.T) {
	edge := site{name: "edge", at: northOf(chicago, 1.0)}
	d := Distance(chicago, edge.at)

	got, err := WithinRadius(chicago, []site{edge}, d)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWithinRadiusZeroKeepsOnlyCoincidentPoints(t *testing.T) {
	cands := []site{
		{name: "same", at: chicago},
		{name: "near", at: northOf(chicago, 0.001)},
		{name: "same-again", at: chicago},
	}
	got, err := WithinRadius(chicago, cands, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"same", "same-again"}, names(got))
}

func TestWithinRadiusEmptyCandidates(t *testing.T) {
	got, err := WithinRadius[site](chicago, nil, 1.0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithinRadiusExcludesMissingCoordinates(t *testing.T) {
	cands := []site{{name: "nan", at: NaNPoint()}, {name: "ok", at: chicago}}
	got, err := WithinRadius(chicago, cands, 1e6)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names(got))
}

func TestWithinRadiusCallerErrors(t *testing.T) {
	tests := []struct {
		name   string
		ref    Point
		radius float64
		want   error
	}{
		{"negative radius", chicago, -1, ErrInvalidRadius},
		{"nan radius", chicago, math.NaN(), ErrInvalidRadius},
		{"infinite radius", chicago, math.Inf(1), ErrInvalidRadius},
		{"missing reference", NaNPoint(), 1, ErrMissingReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WithinRadius(tt.ref, sitesAt(chicago, 0.1), tt.radius)
			assert.ErrorIs(t, err, tt.want)

			_, err = CountWithin(tt.ref, sitesAt(chicago, 0.1), tt.radius)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCountWithinMonotonicInRadius(t *testing.T) {
	cands := sitesAt(chicago, 0, 0.3, 0.5, 0.5, 0.99, 1.0, 2.5, 7, 12)
	prev := -1
	for _, r := range []float64{0, 0.1, 0.5, 1, 2, 5, 10, 20} {
		n, err := CountWithin(chicago, cands, r)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, prev, "radius %v", r)
		prev = n
	}
	assert.Equal(t, len(cands), prev)
}

func TestSearchBoundContainsCircle(t *testing.T) {
	refs := []Point{chicago, {Lat: 0, Lon: 179.999}, {Lat: 89.99, Lon: 10}, {Lat: -45, Lon: -179.5}}
	for _, ref := range refs {
		b := SearchBound(ref, 10)
		for bearing := 0.0; bearing < 360; bearing += 15 {
			p := destination(ref, bearing, 10)
			assert.True(t, b.Contains(p.Orb()), "ref %v bearing %v point %v bound %v", ref, bearing, p, b)
		}
	}
}

func TestSearchBoundOutOfRangeReferenceIsWorld(t *testing.T) {
	b := SearchBound(Point{Lat: 95, Lon: 0}, 1)
	assert.Equal(t, -180.0, b.Min.Lon())
	assert.Equal(t, 90.0, b.Max.Lat())
}

// destination walks distanceKm from p along the given bearing in degrees.
func destination(p Point, bearingDeg, distanceKm float64) Point {
	lat1, lon1 := toRadians(p.Lat), toRadians(p.Lon)
	brng := toRadians(bearingDeg)
	ang := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	lon := toDegrees(lon2)
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return Point{Lat: toDegrees(lat2), Lon: lon}
}
