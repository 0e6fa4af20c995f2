package geo

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	pointTolerance   = 1e-9
)

type indexEntry struct {
	rect rtreego.Rect
	pos  int
}

func (e indexEntry) Bounds() rtreego.Rect {
	return e.rect
}

// Index answers repeated radius queries over one immutable candidate table.
// Candidates inside the WGS84 ranges go into an R-tree keyed on (lon, lat);
// out-of-range ones are kept aside and checked exactly on every query.
// Candidates with no usable coordinate are dropped.
//
// An Index is safe for concurrent queries once built.
type Index[T Locatable] struct {
	items    []T
	tree     *rtreego.Rtree
	outliers []int
	missing  int
}

// NewIndex builds an Index over items. The slice is retained, not copied.
func NewIndex[T Locatable](items []T) *Index[T] {
	ix := &Index[T]{
		items: items,
		tree:  rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
	}

	for i, it := range items {
		p := it.Location()
		switch {
		case !p.Valid():
			ix.missing++
		case !p.InRange():
			ix.outliers = append(ix.outliers, i)
		default:
			ix.tree.Insert(indexEntry{
				rect: rtreego.Point{p.Lon, p.Lat}.ToRect(pointTolerance),
				pos:  i,
			})
		}
	}
	return ix
}

// Len is the number of items the index was built from.
func (ix *Index[T]) Len() int { return len(ix.items) }

// Missing is the number of items skipped for lacking a coordinate.
func (ix *Index[T]) Missing() int { return ix.missing }

// Within returns the items within radiusKm of ref, in their original order,
// so results never depend on tree layout.
func (ix *Index[T]) Within(ref Point, radiusKm float64) ([]T, error) {
	positions, err := ix.positionsWithin(ref, radiusKm)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(positions))
	for i, pos := range positions {
		out[i] = ix.items[pos]
	}
	return out, nil
}

// WithinPositions is Within returning positions into the indexed slice.
func (ix *Index[T]) WithinPositions(ref Point, radiusKm float64) ([]int, error) {
	return ix.positionsWithin(ref, radiusKm)
}

// Count returns how many items lie within radiusKm of ref.
func (ix *Index[T]) Count(ref Point, radiusKm float64) (int, error) {
	positions, err := ix.positionsWithin(ref, radiusKm)
	if err != nil {
		return 0, err
	}
	return len(positions), nil
}

func (ix *Index[T]) positionsWithin(ref Point, radiusKm float64) ([]int, error) {
	if err := ValidateRadius(radiusKm); err != nil {
		return nil, err
	}
	if !ref.Valid() {
		return nil, ErrMissingReference
	}

	var positions []int
	rect, err := boundToRect(SearchBound(ref, radiusKm))
	if err != nil {
		// degenerate box, fall back to a full scan
		for i, it := range ix.items {
			if IsWithin(ref, it.Location(), radiusKm) {
				positions = append(positions, i)
			}
		}
		return positions, nil
	}

	for _, hit := range ix.tree.SearchIntersect(rect) {
		pos := hit.(indexEntry).pos
		if IsWithin(ref, ix.items[pos].Location(), radiusKm) {
			positions = append(positions, pos)
		}
	}
	for _, pos := range ix.outliers {
		if IsWithin(ref, ix.items[pos].Location(), radiusKm) {
			positions = append(positions, pos)
		}
	}

	sort.Ints(positions)
	return positions, nil
}

func boundToRect(b orb.Bound) (rtreego.Rect, error) {
	lengths := []float64{b.Max.Lon() - b.Min.Lon(), b.Max.Lat() - b.Min.Lat()}
	return rtreego.NewRect(rtreego.Point{b.Min.Lon(), b.Min.Lat()}, lengths)
}
