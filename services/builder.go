package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"property-features/geo"
	"property-features/models"
	"property-features/utils"
)

// DefaultRadiusKm is the search radius used when a caller does not pick one.
const DefaultRadiusKm = 1.0

// Dataset is one amenity table to aggregate against every listing.
// MeanAttributes is non-empty for restaurant-like kinds. RadiusKm, when set,
// overrides the builder's default radius for this dataset only.
type Dataset struct {
	Kind           string
	Records        []*models.AmenityRecord
	MeanAttributes []Attribute
	RadiusKm       *float64
}

// Options configures a Builder. A nil radius selects DefaultRadiusKm; any
// other value, zero included, is used as given.
type Options struct {
	RadiusKm       *float64
	ImputeRadiusKm *float64
	CrimeRadiusKm  *float64
	Concurrency    int
	Categories     *CategorySets
}

type preparedDataset struct {
	Dataset
	radiusKm float64
	index    *geo.Index[*models.AmenityRecord]
}

// Builder assembles the feature table. Amenity and crime tables are indexed
// once at construction and only read afterwards, so one Builder can serve
// concurrent Build calls.
type Builder struct {
	logger         *utils.Logger
	opts           Options
	imputeRadiusKm float64
	crimeRadiusKm  float64
	datasets       []preparedDataset
	crime          *geo.Index[*models.AmenityRecord]
	kinds          []string
	meanColumns    []string
}

// NewBuilder validates the options and indexes every dataset. Radius errors
// and duplicate kinds are caller errors and fail here, before any work runs.
func NewBuilder(logger *utils.Logger, opts Options, crime []*models.AmenityRecord, datasets ...Dataset) (*Builder, error) {
	radius := orDefault(opts.RadiusKm)
	imputeRadius := orDefault(opts.ImputeRadiusKm)
	crimeRadius := orDefault(opts.CrimeRadiusKm)
	if opts.Categories == nil {
		opts.Categories = DefaultCategorySets()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = runtime.NumCPU()
	}

	for name, r := range map[string]float64{
		"radius": radius, "impute radius": imputeRadius, "crime radius": crimeRadius,
	} {
		if err := geo.ValidateRadius(r); err != nil {
			return nil, fmt.Errorf("builder: %s: %w", name, err)
		}
	}

	b := &Builder{
		logger:         logger,
		opts:           opts,
		imputeRadiusKm: imputeRadius,
		crimeRadiusKm:  crimeRadius,
		crime:          geo.NewIndex(crime),
	}

	seen := make(map[string]struct{})
	for _, ds := range datasets {
		if ds.Kind == "" {
			return nil, errors.New("builder: dataset kind is required")
		}
		if _, dup := seen[ds.Kind]; dup {
			return nil, fmt.Errorf("builder: duplicate dataset kind %q", ds.Kind)
		}
		seen[ds.Kind] = struct{}{}

		dsRadius := radius
		if ds.RadiusKm != nil {
			dsRadius = *ds.RadiusKm
		}
		if err := geo.ValidateRadius(dsRadius); err != nil {
			return nil, fmt.Errorf("builder: dataset %q: %w", ds.Kind, err)
		}

		ix := geo.NewIndex(ds.Records)
		if ix.Missing() > 0 {
			logger.Warn("[builder] %s: %d of %d records have no coordinate and are ignored",
				ds.Kind, ix.Missing(), ix.Len())
		}

		b.datasets = append(b.datasets, preparedDataset{Dataset: ds, radiusKm: dsRadius, index: ix})
		b.kinds = append(b.kinds, ds.Kind)
		for _, attr := range ds.MeanAttributes {
			b.meanColumns = append(b.meanColumns, models.MeanColumn(ds.Kind, attr.Name))
		}
	}

	if b.crime.Missing() > 0 {
		logger.Warn("[builder] crime: %d of %d incidents have no coordinate and are ignored",
			b.crime.Missing(), b.crime.Len())
	}
	return b, nil
}

// Build computes one row per listing, in input order. A listing that cannot
// be located yields an unresolved row rather than an error. The only errors
// are ctx ending before the table is complete.
func (b *Builder) Build(ctx context.Context, listings []*models.Listing) (*models.FeatureTable, error) {
	table := b.newTable(len(listings))
	own := geo.NewIndex(listings)
	pool := utils.NewWorkerPool(b.opts.Concurrency)

	b.logger.Info("[builder] Building features for %d listings across %d datasets (%d workers)",
		len(listings), len(b.datasets), pool.Size())

	for i := range listings {
		if ctx.Err() != nil {
			break
		}
		i := i
		pool.Submit(func() {
			table.Rows[i] = b.buildRow(own, listings, i)
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}

	unresolved := 0
	for _, row := range table.Rows {
		if !row.Resolved() {
			unresolved++
		}
	}
	if unresolved > 0 {
		b.logger.Warn("[builder] %d of %d listings could not be located", unresolved, len(listings))
	}
	b.logger.Info("[builder] Feature table complete: %d rows", len(table.Rows))
	return table, nil
}

// BuildRow computes the row for listings[i] alone. It indexes the listing
// table on every call; use Build for whole tables.
func (b *Builder) BuildRow(listings []*models.Listing, i int) (*models.FeatureRow, error) {
	if i < 0 || i >= len(listings) {
		return nil, fmt.Errorf("builder: listing %d out of range [0, %d)", i, len(listings))
	}
	return b.buildRow(geo.NewIndex(listings), listings, i), nil
}

// Columns returns the amenity kinds and mean columns in output order.
func (b *Builder) Columns() (kinds, means []string) {
	return append([]string(nil), b.kinds...), append([]string(nil), b.meanColumns...)
}

func (b *Builder) newTable(n int) *models.FeatureTable {
	kinds, means := b.Columns()
	return &models.FeatureTable{
		AmenityKinds: kinds,
		MeanColumns:  means,
		Rows:         make([]*models.FeatureRow, n),
	}
}

func (b *Builder) buildRow(own *geo.Index[*models.Listing], listings []*models.Listing, i int) *models.FeatureRow {
	listing := listings[i]
	row := unresolvedRow(listing, "")

	ref := listing.Location()
	if !ref.Valid() {
		row.Unresolved = geo.ErrMissingReference.Error()
		b.logger.Debug("[builder] listing %s: no usable coordinate", listingLabel(listing, i))
		return row
	}

	if err := b.fillRow(row, own, listings, i, ref); err != nil {
		b.logger.Warn("[builder] listing %s: %v", listingLabel(listing, i), err)
		return unresolvedRow(listing, err.Error())
	}
	return row
}

// unresolvedRow carries only what needs no neighbourhood: the listing's own
// price per area, when it has one.
func unresolvedRow(listing *models.Listing, reason string) *models.FeatureRow {
	row := &models.FeatureRow{Listing: listing, Unresolved: reason}
	if own := listing.PricePerArea; own != nil && isDefined(*own) {
		row.PricePerArea = models.Float(*own)
	}
	return row
}

func (b *Builder) fillRow(row *models.FeatureRow, own *geo.Index[*models.Listing], listings []*models.Listing, i int, ref geo.Point) error {
	if row.PricePerArea == nil {
		positions, err := own.WithinPositions(ref, b.imputeRadiusKm)
		if err != nil {
			return fmt.Errorf("impute price per area: %w", err)
		}
		if v, ok := imputeFromPositions(i, listings, positions, listingPricePerArea); ok {
			row.PricePerArea = models.Float(v)
			row.PriceImputed = true
		}
	}

	row.AmenityCounts = make(map[string]int, len(b.datasets))
	row.AmenityMeans = make(map[string]*float64, len(b.meanColumns))
	for _, ds := range b.datasets {
		nearby, err := ds.index.Within(ref, ds.radiusKm)
		if err != nil {
			return fmt.Errorf("%s: %w", ds.Kind, err)
		}
		row.AmenityCounts[ds.Kind] = len(nearby)

		for _, attr := range ds.MeanAttributes {
			var mean *float64
			if v, ok := meanOf(nearby, attr.Value); ok {
				mean = models.Float(v)
			}
			row.AmenityMeans[models.MeanColumn(ds.Kind, attr.Name)] = mean
		}
	}

	crimes, err := b.crime.Within(ref, b.crimeRadiusKm)
	if err != nil {
		return fmt.Errorf("crime: %w", err)
	}
	row.CrimeCount = len(crimes)
	row.Crime = b.opts.Categories.summarizeNearby(crimes)
	return nil
}

func listingPricePerArea(l *models.Listing) *float64 { return l.PricePerArea }

func listingLabel(l *models.Listing, i int) string {
	if l.ID != "" {
		return l.ID
	}
	return fmt.Sprintf("#%d", i)
}

func orDefault(r *float64) float64 {
	if r == nil {
		return DefaultRadiusKm
	}
	return *r
}
