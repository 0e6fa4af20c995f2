package models

// CrimeSummary is the per-listing digest of nearby crime incidents.
// MostPrevalent is empty when no incident lies within the radius.
type CrimeSummary struct {
	ViolentCount        int
	NonviolentCount     int
	TotalCount          int
	MostPrevalent       string
	PrevalentProportion float64
}

// HasMostPrevalent reports whether any incident was found.
func (c CrimeSummary) HasMostPrevalent() bool { return c.MostPrevalent != "" }

// FeatureRow is one listing plus everything derived for it in a single pass.
// A row is Unresolved when the listing had no usable coordinate; its derived
// cells are then undefined, except a PricePerArea the listing already carried.
type FeatureRow struct {
	Listing      *Listing
	PricePerArea *float64
	PriceImputed bool

	AmenityCounts map[string]int
	AmenityMeans  map[string]*float64
	CrimeCount    int
	Crime         CrimeSummary

	Unresolved string
}

// Resolved reports whether derived attributes were computed for the row.
func (r *FeatureRow) Resolved() bool { return r.Unresolved == "" }

// FeatureTable is the augmented listing table. Column order is carried
// explicitly so every writer emits the same layout on every run.
type FeatureTable struct {
	AmenityKinds []string
	MeanColumns  []string
	Rows         []*FeatureRow
}

// MeanColumn is the output column name for the mean of attribute over kind.
func MeanColumn(kind, attribute string) string {
	return "avg_" + kind + "_" + attribute
}

// CountColumn is the output column name for the count of kind.
func CountColumn(kind string) string {
	return "num_" + kind
}
