package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/google/uuid"

	"property-features/models"
)

// Fixed output columns. Amenity count and mean columns sit between
// priceImputedCol and the crime columns in table order.
const (
	idCol           = "id"
	addressCol      = "address"
	latitudeCol     = "latitude"
	longitudeCol    = "longitude"
	pricePerAreaCol = "price_per_area"
	priceImputedCol = "price_imputed"
	crimeCountCol   = "num_crimes"
	violentCol      = "violent_crime_count"
	nonviolentCol   = "nonviolent_crime_count"
	prevalentCol    = "most_prevalent_crime"
	proportionCol   = "crime_proportion"
	unresolvedCol   = "unresolved"
)

// Header returns the output column names for table.
func Header(table *models.FeatureTable) []string {
	h := []string{idCol, addressCol, latitudeCol, longitudeCol, pricePerAreaCol, priceImputedCol}
	for _, kind := range table.AmenityKinds {
		h = append(h, models.CountColumn(kind))
	}
	h = append(h, table.MeanColumns...)
	return append(h, crimeCountCol, violentCol, nonviolentCol, prevalentCol, proportionCol, unresolvedCol)
}

// Record renders one row in Header order. Undefined values are empty cells.
func Record(table *models.FeatureTable, row *models.FeatureRow) []string {
	l := row.Listing
	rec := []string{
		l.ID,
		l.Address,
		formatFloat(l.Point.Lat),
		formatFloat(l.Point.Lon),
		formatOptional(row.PricePerArea),
		strconv.FormatBool(row.PriceImputed),
	}

	resolved := row.Resolved()
	for _, kind := range table.AmenityKinds {
		rec = append(rec, formatCount(row.AmenityCounts[kind], resolved))
	}
	for _, col := range table.MeanColumns {
		rec = append(rec, formatOptional(row.AmenityMeans[col]))
	}

	proportion := ""
	if row.Crime.HasMostPrevalent() {
		proportion = formatFloat(row.Crime.PrevalentProportion)
	}
	return append(rec,
		formatCount(row.CrimeCount, resolved),
		formatCount(row.Crime.ViolentCount, resolved),
		formatCount(row.Crime.NonviolentCount, resolved),
		row.Crime.MostPrevalent,
		proportion,
		row.Unresolved,
	)
}

// EncodeCSV writes the header and every row of table to w.
func EncodeCSV(w io.Writer, table *models.FeatureTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(table)); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range table.Rows {
		if err := cw.Write(Record(table, row)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// featureMessage is the JSON shape of one row on the message bus.
type featureMessage struct {
	RunID          string              `json:"run_id"`
	Row            int                 `json:"row"`
	ID             string              `json:"id"`
	Address        string              `json:"address,omitempty"`
	Latitude       *float64            `json:"latitude"`
	Longitude      *float64            `json:"longitude"`
	PricePerArea   *float64            `json:"price_per_area"`
	PriceImputed   bool                `json:"price_imputed"`
	AmenityCounts  map[string]int      `json:"amenity_counts,omitempty"`
	AmenityMeans   map[string]*float64 `json:"amenity_means,omitempty"`
	CrimeCount     int                 `json:"num_crimes"`
	Violent        int                 `json:"violent_crime_count"`
	Nonviolent     int                 `json:"nonviolent_crime_count"`
	MostPrevalent  string              `json:"most_prevalent_crime,omitempty"`
	CrimeShare     *float64            `json:"crime_proportion"`
	UnresolvedNote string              `json:"unresolved,omitempty"`
}

func newFeatureMessage(runID uuid.UUID, i int, row *models.FeatureRow) featureMessage {
	m := featureMessage{
		RunID:          runID.String(),
		Row:            i,
		ID:             row.Listing.ID,
		Address:        row.Listing.Address,
		Latitude:       finite(row.Listing.Point.Lat),
		Longitude:      finite(row.Listing.Point.Lon),
		PricePerArea:   row.PricePerArea,
		PriceImputed:   row.PriceImputed,
		AmenityCounts:  row.AmenityCounts,
		AmenityMeans:   row.AmenityMeans,
		CrimeCount:     row.CrimeCount,
		Violent:        row.Crime.ViolentCount,
		Nonviolent:     row.Crime.NonviolentCount,
		MostPrevalent:  row.Crime.MostPrevalent,
		UnresolvedNote: row.Unresolved,
	}
	if row.Crime.HasMostPrevalent() {
		m.CrimeShare = models.Float(row.Crime.PrevalentProportion)
	}
	return m
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatCount(n int, defined bool) string {
	if !defined {
		return ""
	}
	return strconv.Itoa(n)
}

// finite maps NaN and infinities to nil for nullable sinks.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
