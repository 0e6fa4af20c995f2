package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-features/geo"
	"property-features/models"
	"property-features/utils"
)

func fixtureListings() []*models.Listing {
	return []*models.Listing{
		listingAt("A", loop, nil),
		listingAt("B", north(loop, 0.3), models.Float(200)),
		listingAt("C", north(loop, 2.0), models.Float(300)),
		listingAt("D", geo.NaNPoint(), models.Float(120)),
		listingAt("E", geo.NaNPoint(), nil),
	}
}

func fixtureBuilder(t *testing.T, opts Options) *Builder {
	t.Helper()

	restaurants := []*models.AmenityRecord{
		restaurantAt(north(loop, 0.1), models.Float(2), models.Float(4.0)),
		restaurantAt(north(loop, 0.6), nil, models.Float(5.0)),
		restaurantAt(north(loop, 2.2), models.Float(1), models.Float(3.0)),
	}
	stores := []*models.AmenityRecord{
		storeAt(north(loop, 0.2)),
		storeAt(north(loop, 0.9)),
		storeAt(north(loop, 1.5)),
		storeAt(geo.NaNPoint()),
	}
	crimes := []*models.AmenityRecord{
		crimeAt(loop, "THEFT"),
		crimeAt(loop, "THEFT"),
		crimeAt(north(loop, 0.5), "ASSAULT"),
		crimeAt(north(loop, 2.1), "BATTERY"),
	}

	b, err := NewBuilder(utils.Discard(), opts, crimes,
		Dataset{Kind: "restaurant", Records: restaurants, MeanAttributes: []Attribute{PriceLevel, Rating}},
		Dataset{Kind: "store", Records: stores},
	)
	require.NoError(t, err)
	return b
}

func TestBuildProducesOneRowPerListingInOrder(t *testing.T) {
	listings := fixtureListings()
	table, err := fixtureBuilder(t, Options{Concurrency: 3}).Build(context.Background(), listings)
	require.NoError(t, err)

	require.Len(t, table.Rows, len(listings))
	for i, row := range table.Rows {
		assert.Same(t, listings[i], row.Listing)
	}
	assert.Equal(t, []string{"restaurant", "store"}, table.AmenityKinds)
	assert.Equal(t, []string{"avg_restaurant_price_level", "avg_restaurant_rating"}, table.MeanColumns)
}

func TestBuildRowValues(t *testing.T) {
	table, err := fixtureBuilder(t, Options{}).Build(context.Background(), fixtureListings())
	require.NoError(t, err)

	a := table.Rows[0]
	require.True(t, a.Resolved())
	require.NotNil(t, a.PricePerArea)
	assert.Equal(t, 200.0, *a.PricePerArea)
	assert.True(t, a.PriceImputed)

	assert.Equal(t, 2, a.AmenityCounts["restaurant"])
	assert.Equal(t, 2, a.AmenityCounts["store"])
	require.NotNil(t, a.AmenityMeans["avg_restaurant_price_level"])
	assert.Equal(t, 2.0, *a.AmenityMeans["avg_restaurant_price_level"])
	require.NotNil(t, a.AmenityMeans["avg_restaurant_rating"])
	assert.Equal(t, 4.5, *a.AmenityMeans["avg_restaurant_rating"])

	assert.Equal(t, 3, a.CrimeCount)
	assert.Equal(t, 1, a.Crime.ViolentCount)
	assert.Equal(t, 2, a.Crime.NonviolentCount)
	assert.Equal(t, "THEFT", a.Crime.MostPrevalent)
	assert.InDelta(t, 2.0/3.0, a.Crime.PrevalentProportion, 1e-12)

	b := table.Rows[1]
	require.NotNil(t, b.PricePerArea)
	assert.Equal(t, 200.0, *b.PricePerArea)
	assert.False(t, b.PriceImputed)
}

func TestBuildEmptyNeighbourhood(t *testing.T) {
	far := []*models.Listing{listingAt("far", geo.Point{Lat: 42.5, Lon: -88.5}, nil)}
	table, err := fixtureBuilder(t, Options{}).Build(context.Background(), far)
	require.NoError(t, err)

	row := table.Rows[0]
	assert.True(t, row.Resolved())
	assert.Nil(t, row.PricePerArea)
	assert.False(t, row.PriceImputed)
	assert.Equal(t, 0, row.AmenityCounts["store"])
	assert.Contains(t, row.AmenityMeans, "avg_restaurant_rating")
	assert.Nil(t, row.AmenityMeans["avg_restaurant_rating"])
	assert.Equal(t, models.CrimeSummary{}, row.Crime)
}

func TestBuildUnlocatedListingIsUnresolved(t *testing.T) {
	table, err := fixtureBuilder(t, Options{}).Build(context.Background(), fixtureListings())
	require.NoError(t, err)

	d := table.Rows[3]
	assert.False(t, d.Resolved())
	require.NotNil(t, d.PricePerArea, "own value passes through")
	assert.Equal(t, 120.0, *d.PricePerArea)
	assert.Nil(t, d.AmenityCounts)

	e := table.Rows[4]
	assert.False(t, e.Resolved())
	assert.Nil(t, e.PricePerArea)
}

func TestBuildIsIdempotent(t *testing.T) {
	b := fixtureBuilder(t, Options{Concurrency: 4})
	listings := fixtureListings()

	first, err := b.Build(context.Background(), listings)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), listings)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildDoesNotMutateListings(t *testing.T) {
	listings := fixtureListings()
	_, err := fixtureBuilder(t, Options{}).Build(context.Background(), listings)
	require.NoError(t, err)
	assert.Nil(t, listings[0].PricePerArea)
}

func TestBuildRowMatchesBuild(t *testing.T) {
	b := fixtureBuilder(t, Options{})
	listings := fixtureListings()
	table, err := b.Build(context.Background(), listings)
	require.NoError(t, err)

	for i := range listings {
		row, err := b.BuildRow(listings, i)
		require.NoError(t, err)
		assert.Equal(t, table.Rows[i], row, "listing %d", i)
	}

	_, err = b.BuildRow(listings, len(listings))
	assert.Error(t, err)
}

func TestBuildDatasetRadiusOverride(t *testing.T) {
	zero := 0.0
	b, err := NewBuilder(utils.Discard(), Options{RadiusKm: models.Float(10)}, nil,
		Dataset{Kind: "school", Records: []*models.AmenityRecord{storeAt(loop), storeAt(north(loop, 0.1))}, RadiusKm: &zero},
		Dataset{Kind: "hospital", Records: []*models.AmenityRecord{storeAt(north(loop, 8))}},
	)
	require.NoError(t, err)

	row, err := b.BuildRow([]*models.Listing{listingAt("x", loop, nil)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, row.AmenityCounts["school"])
	assert.Equal(t, 1, row.AmenityCounts["hospital"])
}

func TestBuildZeroRadiusIsExplicit(t *testing.T) {
	zero := models.Float(0)
	b, err := NewBuilder(utils.Discard(), Options{RadiusKm: zero, ImputeRadiusKm: zero, CrimeRadiusKm: zero},
		[]*models.AmenityRecord{crimeAt(loop, "THEFT"), crimeAt(north(loop, 0.5), "THEFT")},
		Dataset{Kind: "store", Records: []*models.AmenityRecord{storeAt(north(loop, 0.5))}},
	)
	require.NoError(t, err)

	listings := []*models.Listing{
		listingAt("a", loop, nil),
		listingAt("b", north(loop, 0.5), models.Float(300)),
	}
	table, err := b.Build(context.Background(), listings)
	require.NoError(t, err)

	a := table.Rows[0]
	assert.Equal(t, 0, a.AmenityCounts["store"], "store 0.5 km away is outside a zero radius")
	assert.Equal(t, 1, a.CrimeCount, "only the co-located incident counts")
	assert.Nil(t, a.PricePerArea, "no co-located listing to impute from")
	assert.False(t, a.PriceImputed)

	b2 := table.Rows[1]
	assert.Equal(t, 1, b2.AmenityCounts["store"])
	assert.Equal(t, 1, b2.CrimeCount)
}

func TestBuildNilRadiusUsesDefault(t *testing.T) {
	b, err := NewBuilder(utils.Discard(), Options{}, nil,
		Dataset{Kind: "store", Records: []*models.AmenityRecord{storeAt(north(loop, 0.9)), storeAt(north(loop, 1.1))}},
	)
	require.NoError(t, err)

	row, err := b.BuildRow([]*models.Listing{listingAt("x", loop, nil)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, row.AmenityCounts["store"])
}

func TestNewBuilderCallerErrors(t *testing.T) {
	neg := -0.5
	tests := []struct {
		name     string
		opts     Options
		datasets []Dataset
	}{
		{"negative radius", Options{RadiusKm: models.Float(-1)}, nil},
		{"negative crime radius", Options{CrimeRadiusKm: models.Float(-3)}, nil},
		{"negative dataset radius", Options{}, []Dataset{{Kind: "school", RadiusKm: &neg}}},
		{"missing kind", Options{}, []Dataset{{}}},
		{"duplicate kind", Options{}, []Dataset{{Kind: "school"}, {Kind: "school"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(utils.Discard(), tt.opts, nil, tt.datasets...)
			assert.Error(t, err)
		})
	}
}

func TestBuildHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fixtureBuilder(t, Options{}).Build(ctx, fixtureListings())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildLargeBatchMatchesSequential(t *testing.T) {
	var listings []*models.Listing
	for i := 0; i < 200; i++ {
		var price *float64
		if i%3 != 0 {
			price = models.Float(float64(100 + i))
		}
		listings = append(listings, listingAt(fmt.Sprint(i), north(loop, float64(i)*0.05), price))
	}

	parallel, err := fixtureBuilder(t, Options{Concurrency: 8}).Build(context.Background(), listings)
	require.NoError(t, err)
	sequential, err := fixtureBuilder(t, Options{Concurrency: 1}).Build(context.Background(), listings)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}
