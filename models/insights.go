package models

// InsightReport holds summary statistics over one augmented table.
type InsightReport struct {
	TotalListings      int
	PricedListings     int
	ImputedListings    int
	UnresolvedListings int

	AveragePricePerArea float64
	MinPricePerArea     float64
	MaxPricePerArea     float64
	MostExpensive       *FeatureRow

	AverageCounts  map[string]float64
	CountOrder     []string
	PrevalentCrime map[string]int
	Correlations   map[string]float64
}
