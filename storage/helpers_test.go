package storage

import (
	"math"

	"property-features/geo"
	"property-features/models"
)

func sampleTable() *models.FeatureTable {
	return &models.FeatureTable{
		AmenityKinds: []string{"restaurant", "school"},
		MeanColumns:  []string{"avg_restaurant_rating"},
		Rows: []*models.FeatureRow{
			{
				Listing:       &models.Listing{ID: "L1", Address: "1 N State St", Point: geo.Point{Lat: 41.8821, Lon: -87.6278}},
				PricePerArea:  models.Float(250.5),
				PriceImputed:  true,
				AmenityCounts: map[string]int{"restaurant": 3, "school": 0},
				AmenityMeans:  map[string]*float64{"avg_restaurant_rating": models.Float(4.25)},
				CrimeCount:    4,
				Crime: models.CrimeSummary{
					ViolentCount: 1, NonviolentCount: 3, TotalCount: 4,
					MostPrevalent: "THEFT", PrevalentProportion: 0.75,
				},
			},
			{
				Listing:       &models.Listing{ID: "L2", Point: geo.Point{Lat: 41.9, Lon: -87.7}},
				AmenityCounts: map[string]int{"restaurant": 0, "school": 1},
				AmenityMeans:  map[string]*float64{"avg_restaurant_rating": nil},
			},
			{
				Listing:      &models.Listing{ID: "L3", Point: geo.Point{Lat: math.NaN(), Lon: math.NaN()}},
				PricePerArea: models.Float(100),
				Unresolved:   "reference point has no usable coordinate",
			},
		},
	}
}
