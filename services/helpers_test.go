package services

import (
	"math"

	"property-features/geo"
	"property-features/models"
)

var loop = geo.Point{Lat: 41.8781, Lon: -87.6298}

// north returns the point km kilometres due north of p.
func north(p geo.Point, km float64) geo.Point {
	return geo.Point{Lat: p.Lat + km/geo.EarthRadiusKm*180/math.Pi, Lon: p.Lon}
}

func crimeAt(p geo.Point, category string) *models.AmenityRecord {
	return &models.AmenityRecord{Kind: "crime", Point: p, Category: category}
}

func storeAt(p geo.Point) *models.AmenityRecord {
	return &models.AmenityRecord{Kind: "store", Point: p}
}

func restaurantAt(p geo.Point, priceLevel, rating *float64) *models.AmenityRecord {
	return &models.AmenityRecord{Kind: "restaurant", Point: p, PriceLevel: priceLevel, Rating: rating}
}

func listingAt(id string, p geo.Point, pricePerArea *float64) *models.Listing {
	return &models.Listing{ID: id, Point: p, PricePerArea: pricePerArea}
}
