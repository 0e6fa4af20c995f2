package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"property-features/geo"
	"property-features/models"
	"property-features/utils"
)

var (
	// numberRegexp captures the first numeric value in a free-form cell
	numberRegexp = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	// typeTokenRegexp captures quoted items of a string-encoded list
	typeTokenRegexp = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
)

// Header aliases, lower-case. The first match wins.
var (
	colLatitude     = []string{"latitude", "lat"}
	colLongitude    = []string{"longitude", "lon", "lng"}
	colPricePerArea = []string{"price_per_area", "price_per_sq_ft", "price_per_sqft"}
	colPrice        = []string{"price"}
	colArea         = []string{"sq_ft", "sqft", "area"}
	colID           = []string{"id", "url"}
	colAddress      = []string{"address"}
	colName         = []string{"name"}
	colPriceLevel   = []string{"price level", "price_level"}
	colRating       = []string{"rating"}
	colTotalRatings = []string{"total ratings", "total_ratings", "user_ratings_total"}
	colStatus       = []string{"business status", "business_status"}
	colTypes        = []string{"types"}
	colCategory     = []string{"primary_type", "crime type", "category"}
)

// Cleaner turns raw CSV rows into typed records. Unparsable cells become
// missing values; rows are never rejected for a bad cell alone.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// CleanListings converts raw listing rows. Listings are never deduplicated.
// When no price-per-area column is present it is derived from price and area.
func (c *Cleaner) CleanListings(raw []*models.RawRecord) []*models.Listing {
	result := make([]*models.Listing, 0, len(raw))
	missing := 0

	for _, r := range raw {
		l := &models.Listing{
			ID:           normaliseText(field(r, colID...)),
			Address:      normaliseText(field(r, colAddress...)),
			Point:        c.parsePoint(r),
			Price:        c.parseNumber(field(r, colPrice...)),
			Area:         c.parseNumber(field(r, colArea...)),
			PricePerArea: c.parseNumber(field(r, colPricePerArea...)),
		}
		if l.ID == "" {
			l.ID = l.Address
		}
		if l.ID == "" {
			l.ID = fmt.Sprintf("line-%d", r.Line)
		}
		if l.PricePerArea == nil && l.Price != nil && l.Area != nil && *l.Area > 0 {
			l.PricePerArea = models.Float(*l.Price / *l.Area)
		}
		if !l.Point.Valid() {
			missing++
		}
		result = append(result, l)
	}

	if missing > 0 {
		c.logger.Warn("[cleaner] %d of %d listings have no usable coordinate", missing, len(raw))
	}
	c.logger.Info("[cleaner] Cleaned %d listings", len(result))
	return result
}

// CleanAmenities converts raw point-of-interest rows of one kind, dropping
// exact duplicate rows. With a non-empty allowedTypes, each row's Types list
// is filtered to that set and rows left with no type are dropped.
func (c *Cleaner) CleanAmenities(kind string, raw []*models.RawRecord, allowedTypes []string) []*models.AmenityRecord {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[normaliseType(t)] = struct{}{}
	}

	seen := make(map[string]struct{})
	result := make([]*models.AmenityRecord, 0, len(raw))
	dups, filtered := 0, 0

	for _, r := range raw {
		key := rowKey(r)
		if _, dup := seen[key]; dup {
			dups++
			continue
		}
		seen[key] = struct{}{}

		types := parseTypes(field(r, colTypes...))
		if len(allowed) > 0 {
			types = filterTypes(types, allowed)
			if len(types) == 0 {
				filtered++
				continue
			}
		}

		result = append(result, &models.AmenityRecord{
			ID:         fmt.Sprintf("%s-%d", kind, r.Line),
			Kind:       kind,
			Name:       normaliseText(field(r, colName...)),
			Point:      c.parsePoint(r),
			Types:      types,
			PriceLevel: c.parseNumber(field(r, colPriceLevel...)),
			Rating:     c.parseRating(field(r, colRating...)),
		})
	}

	c.logger.Info("[cleaner] %s: cleaned %d → %d records (duplicates %d, filtered by type %d)",
		kind, len(raw), len(result), dups, filtered)
	return result
}

// CleanCrimes converts raw incident rows. Labels are trimmed and upper-cased.
func (c *Cleaner) CleanCrimes(raw []*models.RawRecord) []*models.AmenityRecord {
	result := make([]*models.AmenityRecord, 0, len(raw))
	unlabelled := 0

	for _, r := range raw {
		rec := &models.AmenityRecord{
			ID:       normaliseText(field(r, colID...)),
			Kind:     "crime",
			Point:    c.parsePoint(r),
			Category: NormaliseCategory(field(r, colCategory...)),
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("crime-%d", r.Line)
		}
		if rec.Category == "" {
			unlabelled++
		}
		result = append(result, rec)
	}

	if unlabelled > 0 {
		c.logger.Warn("[cleaner] %d incidents have no category and count as %s", unlabelled, UnknownCategory)
	}
	c.logger.Info("[cleaner] Cleaned %d crime incidents", len(result))
	return result
}

func (c *Cleaner) parsePoint(r *models.RawRecord) geo.Point {
	return geo.Point{
		Lat: c.parseCoordinate(field(r, colLatitude...)),
		Lon: c.parseCoordinate(field(r, colLongitude...)),
	}
}

// parseCoordinate parses a decimal degree value; anything else is NaN.
func (c *Cleaner) parseCoordinate(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseNumber extracts the first number from a cell such as "$1,250,000"
// or "2". Cells without digits ("Price information not available") are nil.
func (c *Cleaner) parseNumber(raw string) *float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	match := numberRegexp.FindString(cleaned)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseRating is parseNumber restricted to the 0.0–5.0 range.
func (c *Cleaner) parseRating(raw string) *float64 {
	v := c.parseNumber(raw)
	if v == nil || *v < 0 || *v > 5 {
		return nil
	}
	return v
}

// parseTypes reads a string-encoded list like "['restaurant', 'food']" or a
// plain comma-separated one. Items are trimmed and lower-cased.
func parseTypes(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var items []string
	if strings.HasPrefix(raw, "[") {
		for _, m := range typeTokenRegexp.FindAllStringSubmatch(raw, -1) {
			items = append(items, m[1]+m[2])
		}
	} else {
		items = strings.Split(raw, ",")
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		if t := normaliseType(it); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func filterTypes(types []string, allowed map[string]struct{}) []string {
	var out []string
	for _, t := range types {
		if _, ok := allowed[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func normaliseType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// field returns the first non-empty cell among the given header aliases.
func field(r *models.RawRecord, names ...string) string {
	for _, n := range names {
		if v, ok := r.Fields[n]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// rowKey identifies a place by the columns that describe it. Columns that
// only record how it was found, such as the query city or its types, are
// left out so one place returned by two searches collapses to one row.
func rowKey(r *models.RawRecord) string {
	var sb strings.Builder
	for _, names := range [][]string{
		colName, colStatus, colAddress, colPriceLevel, colRating, colTotalRatings, colLatitude, colLongitude,
	} {
		sb.WriteString(normaliseText(field(r, names...)))
		sb.WriteByte(0)
	}
	return sb.String()
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
