package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"property-features/geo"
	"property-features/models"
	"property-features/utils"
)

const (
	featureColumns = 16
	batchSize      = 50
)

// PostgresWriter persists feature tables to PostgreSQL, one set of rows per run.
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter. The initial ping is retried.
func NewPostgresWriter(ctx context.Context, dsn string, retry utils.RetryConfig, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, logger: logger}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listing_features (
			run_id                 UUID             NOT NULL,
			row_index              INTEGER          NOT NULL,
			listing_id             TEXT             NOT NULL,
			address                TEXT             NOT NULL DEFAULT '',
			latitude               DOUBLE PRECISION,
			longitude              DOUBLE PRECISION,
			price_per_area         DOUBLE PRECISION,
			price_imputed          BOOLEAN          NOT NULL DEFAULT FALSE,
			amenity_counts         JSONB,
			amenity_means          JSONB,
			num_crimes             INTEGER,
			violent_crime_count    INTEGER,
			nonviolent_crime_count INTEGER,
			most_prevalent_crime   TEXT,
			crime_proportion       DOUBLE PRECISION,
			unresolved             TEXT,
			created_at             TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			PRIMARY KEY (run_id, row_index)
		);

		CREATE INDEX IF NOT EXISTS idx_listing_features_listing ON listing_features(listing_id);
		CREATE INDEX IF NOT EXISTS idx_listing_features_price   ON listing_features(price_per_area);
	`)
	return err
}

// Write inserts every row of table under runID in a single transaction.
func (pw *PostgresWriter) Write(ctx context.Context, runID uuid.UUID, table *models.FeatureTable) error {
	if len(table.Rows) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(table.Rows); start += batchSize {
		end := min(start+batchSize, len(table.Rows))
		query, args, err := insertBatch(runID, start, table.Rows[start:end])
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert rows %d-%d: %w", start, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	pw.logger.Info("[postgres] Stored %d rows for run %s", len(table.Rows), runID)
	return nil
}

// insertBatch builds one multi-row INSERT. offset is the table index of batch[0].
func insertBatch(runID uuid.UUID, offset int, batch []*models.FeatureRow) (string, []interface{}, error) {
	valueArgs := make([]interface{}, 0, len(batch)*featureColumns)

	for idx, row := range batch {
		counts, means, err := encodeAggregates(row)
		if err != nil {
			return "", nil, fmt.Errorf("postgres: encode row %d: %w", offset+idx, err)
		}

		var crimeCount, violent, nonviolent interface{}
		if row.Resolved() {
			crimeCount, violent, nonviolent = row.CrimeCount, row.Crime.ViolentCount, row.Crime.NonviolentCount
		}
		var prevalent, proportion, unresolved interface{}
		if row.Crime.HasMostPrevalent() {
			prevalent, proportion = row.Crime.MostPrevalent, row.Crime.PrevalentProportion
		}
		if !row.Resolved() {
			unresolved = row.Unresolved
		}

		valueArgs = append(valueArgs,
			runID.String(), offset+idx, row.Listing.ID, row.Listing.Address,
			nullFloat(row.Listing.Point.Lat), nullFloat(row.Listing.Point.Lon),
			row.PricePerArea, row.PriceImputed,
			counts, means, crimeCount, violent, nonviolent,
			prevalent, proportion, unresolved)
	}

	query := fmt.Sprintf(`
		INSERT INTO listing_features (
			run_id, row_index, listing_id, address, latitude, longitude,
			price_per_area, price_imputed, amenity_counts, amenity_means,
			num_crimes, violent_crime_count, nonviolent_crime_count,
			most_prevalent_crime, crime_proportion, unresolved
		)
		VALUES %s
	`, placeholders(len(batch), featureColumns))
	return query, valueArgs, nil
}

// placeholders returns "($1,...,$cols),(...)" for rows tuples.
func placeholders(rows, cols int) string {
	tuples := make([]string, rows)
	for r := 0; r < rows; r++ {
		cells := make([]string, cols)
		for c := 0; c < cols; c++ {
			cells[c] = fmt.Sprintf("$%d", r*cols+c+1)
		}
		tuples[r] = "(" + strings.Join(cells, ",") + ")"
	}
	return strings.Join(tuples, ",")
}

// encodeAggregates returns the JSONB cells, or nils for an unresolved row.
func encodeAggregates(row *models.FeatureRow) (counts, means interface{}, err error) {
	if !row.Resolved() {
		return nil, nil, nil
	}
	c, err := json.Marshal(row.AmenityCounts)
	if err != nil {
		return nil, nil, err
	}
	m, err := json.Marshal(row.AmenityMeans)
	if err != nil {
		return nil, nil, err
	}
	return string(c), string(m), nil
}

func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// FetchRun reads back the rows stored for runID in table order. kinds and
// means give the column layout of the returned table.
func (pw *PostgresWriter) FetchRun(ctx context.Context, runID uuid.UUID, kinds, means []string) (*models.FeatureTable, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT listing_id, address, latitude, longitude, price_per_area, price_imputed,
		       amenity_counts, amenity_means, num_crimes, violent_crime_count,
		       nonviolent_crime_count, most_prevalent_crime, crime_proportion, unresolved
		FROM listing_features
		WHERE run_id = $1
		ORDER BY row_index
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch run: %w", err)
	}
	defer rows.Close()

	table := &models.FeatureTable{AmenityKinds: kinds, MeanColumns: means}
	for rows.Next() {
		l := &models.Listing{}
		row := &models.FeatureRow{Listing: l}
		var (
			lat, lon, price, proportion sql.NullFloat64
			counts, meansJSON           []byte
			crimes, violent, nonviolent sql.NullInt64
			prevalent, unresolved       sql.NullString
		)
		if err := rows.Scan(
			&l.ID, &l.Address, &lat, &lon, &price, &row.PriceImputed,
			&counts, &meansJSON, &crimes, &violent, &nonviolent,
			&prevalent, &proportion, &unresolved,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}

		l.Point = geo.Point{Lat: orNaN(lat), Lon: orNaN(lon)}
		if price.Valid {
			row.PricePerArea = models.Float(price.Float64)
			if !row.PriceImputed {
				l.PricePerArea = models.Float(price.Float64)
			}
		}
		row.Unresolved = unresolved.String
		if counts != nil {
			if err := json.Unmarshal(counts, &row.AmenityCounts); err != nil {
				return nil, fmt.Errorf("postgres: decode amenity_counts: %w", err)
			}
		}
		if meansJSON != nil {
			if err := json.Unmarshal(meansJSON, &row.AmenityMeans); err != nil {
				return nil, fmt.Errorf("postgres: decode amenity_means: %w", err)
			}
		}
		row.CrimeCount = int(crimes.Int64)
		row.Crime = models.CrimeSummary{
			ViolentCount:        int(violent.Int64),
			NonviolentCount:     int(nonviolent.Int64),
			TotalCount:          int(crimes.Int64),
			MostPrevalent:       prevalent.String,
			PrevalentProportion: proportion.Float64,
		}
		table.Rows = append(table.Rows, row)
	}
	return table, rows.Err()
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
