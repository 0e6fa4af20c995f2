package models

import "property-features/geo"

// RawRecord holds one unprocessed CSV row keyed by its header names.
// Cleaning and type coercion happen later in services.Cleaner.
type RawRecord struct {
	Line   int
	Fields map[string]string
}

// Listing is a cleaned property listing. PricePerArea is nil when the source
// row had no usable value.
type Listing struct {
	ID           string
	Address      string
	Point        geo.Point
	Price        *float64
	Area         *float64
	PricePerArea *float64
}

// Location satisfies geo.Locatable.
func (l *Listing) Location() geo.Point { return l.Point }

// AmenityRecord is a point of interest or a crime incident. Which attributes
// are populated depends on the dataset it came from.
type AmenityRecord struct {
	ID         string
	Kind       string
	Name       string
	Point      geo.Point
	Category   string
	Types      []string
	PriceLevel *float64
	Rating     *float64
}

// Location satisfies geo.Locatable.
func (a *AmenityRecord) Location() geo.Point { return a.Point }

// Float returns a pointer to v, for optional numeric attributes.
func Float(v float64) *float64 { return &v }
