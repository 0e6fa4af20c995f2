package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"property-features/geo"
	"property-features/models"
)

// UnknownCategory labels incidents that arrived without a category. It belongs
// to neither set but still counts toward totals.
const UnknownCategory = "UNKNOWN"

// ErrOverlappingCategories is returned when a label is both violent and nonviolent.
var ErrOverlappingCategories = errors.New("crime categories overlap")

// Chicago Police Department primary types.
var (
	ChicagoViolent = []string{
		"ASSAULT", "BATTERY", "CRIMINAL SEXUAL ASSAULT", "SEX OFFENSE",
		"WEAPONS VIOLATION", "ROBBERY", "HOMICIDE", "ARSON", "KIDNAPPING",
		"STALKING", "OFFENSE INVOLVING CHILDREN", "INTIMIDATION", "HUMAN TRAFFICKING",
	}
	ChicagoNonviolent = []string{
		"MOTOR VEHICLE THEFT", "CRIMINAL DAMAGE", "BURGLARY", "DECEPTIVE PRACTICE",
		"THEFT", "OTHER OFFENSE", "PUBLIC PEACE VIOLATION", "LIQUOR LAW VIOLATION",
		"CONCEALED CARRY LICENSE VIOLATION", "PUBLIC INDECENCY", "OBSCENITY",
		"GAMBLING", "OTHER NARCOTIC VIOLATION", "NON-CRIMINAL", "CRIMINAL TRESPASS",
	}
)

// CategorySets holds the two fixed, disjoint label sets used to split crime
// counts. Labels outside both sets are still counted toward totals and can
// still be the most prevalent category.
type CategorySets struct {
	violent    map[string]struct{}
	nonviolent map[string]struct{}
}

// NewCategorySets builds the sets. Labels are matched after trimming and
// upper-casing, the same normalisation the cleaner applies to incidents.
func NewCategorySets(violent, nonviolent []string) (*CategorySets, error) {
	c := &CategorySets{
		violent:    toSet(violent),
		nonviolent: toSet(nonviolent),
	}

	var overlap []string
	for label := range c.violent {
		if _, ok := c.nonviolent[label]; ok {
			overlap = append(overlap, label)
		}
	}
	if len(overlap) > 0 {
		sort.Strings(overlap)
		return nil, fmt.Errorf("%w: %s", ErrOverlappingCategories, strings.Join(overlap, ", "))
	}
	return c, nil
}

// DefaultCategorySets returns the Chicago sets.
func DefaultCategorySets() *CategorySets {
	c, err := NewCategorySets(ChicagoViolent, ChicagoNonviolent)
	if err != nil {
		panic(err)
	}
	return c
}

// IsViolent reports whether label is in the violent set.
func (c *CategorySets) IsViolent(label string) bool {
	_, ok := c.violent[NormaliseCategory(label)]
	return ok
}

// IsNonviolent reports whether label is in the nonviolent set.
func (c *CategorySets) IsNonviolent(label string) bool {
	_, ok := c.nonviolent[NormaliseCategory(label)]
	return ok
}

// Summarize digests the incidents within radiusKm of ref.
//
// The most prevalent category is the one with the highest count; ties go to
// the lexicographically smallest label so results never depend on input order.
func (c *CategorySets) Summarize(ref geo.Point, crimes []*models.AmenityRecord, radiusKm float64) (models.CrimeSummary, error) {
	nearby, err := geo.WithinRadius(ref, crimes, radiusKm)
	if err != nil {
		return models.CrimeSummary{}, err
	}
	return c.summarizeNearby(nearby), nil
}

func (c *CategorySets) summarizeNearby(nearby []*models.AmenityRecord) models.CrimeSummary {
	var summary models.CrimeSummary
	if len(nearby) == 0 {
		return summary
	}

	counts := make(map[string]int)
	for _, r := range nearby {
		label := NormaliseCategory(r.Category)
		if label == "" {
			label = UnknownCategory
		}
		counts[label]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := ""
	for _, label := range labels {
		n := counts[label]
		summary.TotalCount += n
		if _, ok := c.violent[label]; ok {
			summary.ViolentCount += n
		}
		if _, ok := c.nonviolent[label]; ok {
			summary.NonviolentCount += n
		}
		if best == "" || n > counts[best] {
			best = label
		}
	}

	summary.MostPrevalent = best
	summary.PrevalentProportion = float64(counts[best]) / float64(summary.TotalCount)
	return summary
}

// NormaliseCategory trims and upper-cases a crime label.
func NormaliseCategory(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

func toSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l = NormaliseCategory(l); l != "" {
			set[l] = struct{}{}
		}
	}
	return set
}
