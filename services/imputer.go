package services

import (
	"fmt"

	"property-features/geo"
)

// ImputeIfMissing returns records[target]'s own value when it has one.
// Otherwise it returns the mean value of the other records within radiusKm
// of the target; ok is false when none of them carries a value.
//
// The target is excluded from its own neighbourhood by position, so two
// distinct records at the same coordinate still see each other.
func ImputeIfMissing[T geo.Locatable](target int, records []T, value func(T) *float64, radiusKm float64) (v float64, ok bool, err error) {
	if target < 0 || target >= len(records) {
		return 0, false, fmt.Errorf("impute: target %d out of range [0, %d)", target, len(records))
	}
	if err := geo.ValidateRadius(radiusKm); err != nil {
		return 0, false, err
	}
	if own := value(records[target]); own != nil && isDefined(*own) {
		return *own, true, nil
	}

	ref := records[target].Location()
	if !ref.Valid() {
		return 0, false, geo.ErrMissingReference
	}

	var neighbours []T
	for i, r := range records {
		if i != target && geo.IsWithin(ref, r.Location(), radiusKm) {
			neighbours = append(neighbours, r)
		}
	}
	v, ok = meanOf(neighbours, value)
	return v, ok, nil
}

// imputeFromPositions is ImputeIfMissing over neighbour positions already
// found by an index query.
func imputeFromPositions[T any](target int, records []T, positions []int, value func(T) *float64) (float64, bool) {
	neighbours := make([]T, 0, len(positions))
	for _, pos := range positions {
		if pos != target {
			neighbours = append(neighbours, records[pos])
		}
	}
	return meanOf(neighbours, value)
}
