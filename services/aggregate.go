package services

import (
	"gonum.org/v1/gonum/stat"

	"property-features/geo"
	"property-features/models"
)

// Attribute names an optional numeric field of an amenity record.
type Attribute struct {
	Name  string
	Value func(*models.AmenityRecord) *float64
}

var (
	PriceLevel = Attribute{Name: "price_level", Value: func(r *models.AmenityRecord) *float64 { return r.PriceLevel }}
	Rating     = Attribute{Name: "rating", Value: func(r *models.AmenityRecord) *float64 { return r.Rating }}
)

// CountAmenities returns how many candidates lie within radiusKm of ref.
func CountAmenities[T geo.Locatable](ref geo.Point, candidates []T, radiusKm float64) (int, error) {
	return geo.CountWithin(ref, candidates, radiusKm)
}

// MeanWithin averages value over the candidates within radiusKm of ref that
// carry a value. ok is false when no such candidate exists; the mean of an
// empty set is never reported as zero.
func MeanWithin[T geo.Locatable](ref geo.Point, candidates []T, value func(T) *float64, radiusKm float64) (mean float64, ok bool, err error) {
	nearby, err := geo.WithinRadius(ref, candidates, radiusKm)
	if err != nil {
		return 0, false, err
	}
	mean, ok = meanOf(nearby, value)
	return mean, ok, nil
}

func meanOf[T any](records []T, value func(T) *float64) (float64, bool) {
	var values []float64
	for _, r := range records {
		if v := value(r); v != nil && isDefined(*v) {
			values = append(values, *v)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, nil), true
}

func isDefined(v float64) bool {
	return v == v // NaN is the only value not equal to itself
}
