package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"property-features/models"
	"property-features/utils"
)

// CrimeCountKey is the count key under which incidents appear in reports,
// next to the amenity kinds.
const CrimeCountKey = "crimes"

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises a feature table. Unresolved rows count toward totals
// but are left out of every average and correlation.
func (s *InsightService) Generate(table *models.FeatureTable) *models.InsightReport {
	report := &models.InsightReport{
		AverageCounts:  make(map[string]float64),
		PrevalentCrime: make(map[string]int),
		Correlations:   make(map[string]float64),
	}
	if table == nil || len(table.Rows) == 0 {
		return report
	}

	report.TotalListings = len(table.Rows)
	report.CountOrder = append(append([]string(nil), table.AmenityKinds...), CrimeCountKey)

	var resolved []*models.FeatureRow
	var priced []*models.FeatureRow
	for _, row := range table.Rows {
		if !row.Resolved() {
			report.UnresolvedListings++
		} else {
			resolved = append(resolved, row)
			if row.Crime.HasMostPrevalent() {
				report.PrevalentCrime[row.Crime.MostPrevalent]++
			}
		}
		if row.PricePerArea != nil {
			priced = append(priced, row)
			if row.PriceImputed {
				report.ImputedListings++
			}
		}
	}
	report.PricedListings = len(priced)

	if len(priced) > 0 {
		prices := make([]float64, len(priced))
		report.MinPricePerArea = *priced[0].PricePerArea
		report.MaxPricePerArea = *priced[0].PricePerArea
		report.MostExpensive = priced[0]
		for i, row := range priced {
			p := *row.PricePerArea
			prices[i] = p
			if p < report.MinPricePerArea {
				report.MinPricePerArea = p
			}
			if p > report.MaxPricePerArea {
				report.MaxPricePerArea = p
				report.MostExpensive = row
			}
		}
		report.AveragePricePerArea = round2(stat.Mean(prices, nil))
		report.MinPricePerArea = round2(report.MinPricePerArea)
		report.MaxPricePerArea = round2(report.MaxPricePerArea)
	}

	for _, col := range report.CountOrder {
		var counts, xs, ys []float64
		for _, row := range resolved {
			n := float64(countFor(row, col))
			counts = append(counts, n)
			if row.PricePerArea != nil {
				xs = append(xs, n)
				ys = append(ys, *row.PricePerArea)
			}
		}
		if len(counts) > 0 {
			report.AverageCounts[col] = round2(stat.Mean(counts, nil))
		}
		// constant columns have no defined correlation
		if len(xs) > 1 {
			if r := stat.Correlation(xs, ys, nil); !math.IsNaN(r) {
				report.Correlations[col] = r
			}
		}
	}

	s.logger.Debug("[insights] %d rows, %d priced, %d imputed, %d unresolved",
		report.TotalListings, report.PricedListings, report.ImputedListings, report.UnresolvedListings)
	return report
}

func countFor(row *models.FeatureRow, col string) int {
	if col == CrimeCountKey {
		return row.CrimeCount
	}
	return row.AmenityCounts[col]
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 58)
	thin := strings.Repeat("─", 58)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 NEIGHBOURHOOD FEATURE INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings             : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  With price per area  : \033[1m%d\033[0m (%d imputed)\n", r.PricedListings, r.ImputedListings)
	fmt.Fprintf(w, "  Without coordinates  : \033[1m%d\033[0m\n", r.UnresolvedListings)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price per Area\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average : \033[1;32m$%.2f\033[0m\n", r.AveragePricePerArea)
		fmt.Fprintf(w, "  Minimum : \033[1;32m$%.2f\033[0m\n", r.MinPricePerArea)
		fmt.Fprintf(w, "  Maximum : \033[1;32m$%.2f\033[0m\n", r.MaxPricePerArea)
		if r.MostExpensive != nil {
			fmt.Fprintf(w, "  Priciest: %s\n", truncate(r.MostExpensive.Listing.ID, 48))
		}
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Amenities per Listing\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, col := range r.CountOrder {
		corr := "     n/a"
		if c, ok := r.Correlations[col]; ok {
			corr = fmt.Sprintf("%+8.3f", c)
		}
		fmt.Fprintf(w, "  %-20s avg %8.2f   corr(price) %s\n", models.CountColumn(col), r.AverageCounts[col], corr)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Most Prevalent Crime Nearby\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.PrevalentCrime) == 0 {
		fmt.Fprintf(w, "  No crime data\n")
	} else {
		type labelCount struct {
			label string
			count int
		}
		var lcs []labelCount
		for label, n := range r.PrevalentCrime {
			lcs = append(lcs, labelCount{label, n})
		}
		sort.Slice(lcs, func(i, j int) bool {
			if lcs[i].count != lcs[j].count {
				return lcs[i].count > lcs[j].count
			}
			return lcs[i].label < lcs[j].label
		})
		for _, lc := range lcs {
			bar := strings.Repeat("█", min(lc.count, 40))
			fmt.Fprintf(w, "  %-28s %s (%d)\n", truncate(lc.label, 26), bar, lc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
