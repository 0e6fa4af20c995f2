package services

import (
	"bytes"
	"testing"
	"unicode/utf8"

	"property-features/models"
	"property-features/utils"
)

func sampleTable() *models.FeatureTable {
	row := func(id string, price *float64, imputed bool, stores, crimes int, prevalent string) *models.FeatureRow {
		return &models.FeatureRow{
			Listing:       &models.Listing{ID: id},
			PricePerArea:  price,
			PriceImputed:  imputed,
			AmenityCounts: map[string]int{"store": stores},
			CrimeCount:    crimes,
			Crime:         models.CrimeSummary{MostPrevalent: prevalent},
		}
	}
	return &models.FeatureTable{
		AmenityKinds: []string{"store"},
		Rows: []*models.FeatureRow{
			row("a", models.Float(100), false, 1, 40, "THEFT"),
			row("b", models.Float(200), true, 2, 30, "THEFT"),
			row("c", models.Float(300), false, 3, 20, "BATTERY"),
			row("d", nil, false, 4, 10, ""),
			{Listing: &models.Listing{ID: "e"}, PricePerArea: models.Float(999), Unresolved: "no coordinate"},
		},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	r := svc.Generate(sampleTable())

	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.PricedListings != 4 {
		t.Errorf("PricedListings: got %d, want 4", r.PricedListings)
	}
	if r.ImputedListings != 1 {
		t.Errorf("ImputedListings: got %d, want 1", r.ImputedListings)
	}
	if r.UnresolvedListings != 1 {
		t.Errorf("UnresolvedListings: got %d, want 1", r.UnresolvedListings)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	r := svc.Generate(sampleTable())

	if r.AveragePricePerArea != 399.75 {
		t.Errorf("AveragePricePerArea: got %.2f, want 399.75", r.AveragePricePerArea)
	}
	if r.MinPricePerArea != 100 || r.MaxPricePerArea != 999 {
		t.Errorf("Min/Max: got %.2f/%.2f, want 100/999", r.MinPricePerArea, r.MaxPricePerArea)
	}
	if r.MostExpensive == nil || r.MostExpensive.Listing.ID != "e" {
		t.Errorf("MostExpensive: got %+v, want listing e", r.MostExpensive)
	}
}

func TestInsightAveragesAndCorrelations(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	r := svc.Generate(sampleTable())

	if got := r.AverageCounts["store"]; got != 2.5 {
		t.Errorf("AverageCounts[store]: got %.2f, want 2.5", got)
	}
	if got := r.AverageCounts[CrimeCountKey]; got != 25 {
		t.Errorf("AverageCounts[crimes]: got %.2f, want 25", got)
	}
	if got := r.Correlations["store"]; got < 0.999 {
		t.Errorf("store/price correlation: got %.4f, want 1", got)
	}
	if got := r.Correlations[CrimeCountKey]; got > -0.999 {
		t.Errorf("crime/price correlation: got %.4f, want -1", got)
	}
	if r.PrevalentCrime["THEFT"] != 2 || r.PrevalentCrime["BATTERY"] != 1 {
		t.Errorf("PrevalentCrime: got %v", r.PrevalentCrime)
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}

	var buf bytes.Buffer
	svc.Print(&buf, r)
	if !bytes.Contains(buf.Bytes(), []byte("No price data available")) {
		t.Errorf("empty report should say there is no price data")
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleTable()))

	for _, want := range []string{"num_store", "num_crimes", "THEFT", "$399.75"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"THEFT", 10, "THEFT"},
		{"Café Ñandú", 10, "Café Ñandú"},
		{"Café Ñandú Chicago", 10, "Café Ña..."},
		{"数据数据数据", 5, "数据..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q; want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
		}
	}
}
