package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"property-features/config"
	"property-features/models"
	"property-features/services"
	"property-features/storage"
	"property-features/utils"
)

type runOptions struct {
	skipPostgres bool
	insights     bool
}

// run executes one pipeline pass: read, clean, build, write. Only the CSV
// output is required to succeed; other sinks log their failures.
func run(ctx context.Context, cfg *config.Config, opts runOptions, logger *utils.Logger, out io.Writer) error {
	logger.Info("=== Listing feature builder starting ===")
	logger.Info("Config: radius %.2f km | impute radius %.2f km | crime radius %.2f km | concurrency %d",
		cfg.RadiusKm, cfg.ImputeRadiusKm, cfg.CrimeRadiusKm, cfg.MaxConcurrency)

	if err := cfg.Validate(); err != nil {
		return err
	}
	categories, err := config.LoadCategories(cfg.CategoriesFile)
	if err != nil {
		return err
	}

	reader := storage.NewCSVReader(logger)
	cleaner := services.NewCleaner(logger)

	raw, err := reader.Read(cfg.Resolve(cfg.ListingsFile))
	if err != nil {
		return fmt.Errorf("listings: %w", err)
	}
	listings := cleaner.CleanListings(raw)
	if len(listings) == 0 {
		return fmt.Errorf("listings: %s has no rows", cfg.ListingsFile)
	}

	datasets, err := loadDatasets(cfg, reader, cleaner)
	if err != nil {
		return err
	}

	var crimes []*models.AmenityRecord
	if cfg.CrimeFile != "" {
		raw, err := reader.Read(cfg.Resolve(cfg.CrimeFile))
		if err != nil {
			return fmt.Errorf("crimes: %w", err)
		}
		crimes = cleaner.CleanCrimes(raw)
	}

	builder, err := services.NewBuilder(logger, services.Options{
		RadiusKm:       models.Float(cfg.RadiusKm),
		ImputeRadiusKm: models.Float(cfg.ImputeRadiusKm),
		CrimeRadiusKm:  models.Float(cfg.CrimeRadiusKm),
		Concurrency:    cfg.MaxConcurrency,
		Categories:     categories,
	}, crimes, datasets...)
	if err != nil {
		return err
	}

	table, err := builder.Build(ctx, listings)
	if err != nil {
		return err
	}

	runID := uuid.New()
	logger.Info("Run %s: writing %d rows", runID, len(table.Rows))

	csvWriter, err := storage.NewCSVWriter(cfg.OutputPath)
	if err != nil {
		return err
	}
	if err := csvWriter.Write(ctx, runID, table); err != nil {
		_ = csvWriter.Close()
		return err
	}
	if err := csvWriter.Close(); err != nil {
		return fmt.Errorf("csv: close: %w", err)
	}
	logger.Info("Feature table saved to %s", cfg.OutputPath)

	retry := utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
	report := table

	if !opts.skipPostgres {
		pg, err := storage.NewPostgresWriter(ctx, cfg.DSN(), retry, logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Use --skip-postgres to run without a database")
		} else {
			defer pg.Close()
			if err := pg.Write(ctx, runID, table); err != nil {
				logger.Error("PostgreSQL write failed: %v", err)
			} else if stored, err := pg.FetchRun(ctx, runID, table.AmenityKinds, table.MeanColumns); err != nil {
				logger.Error("Failed to fetch run from DB for insights: %v", err)
			} else {
				report = stored
			}
		}
	}

	for _, sink := range optionalSinks(cfg, retry, logger) {
		if err := sink.Write(ctx, runID, table); err != nil {
			logger.Error("Sink write failed: %v", err)
		}
		if err := sink.Close(); err != nil {
			logger.Warn("Sink close failed: %v", err)
		}
	}

	if opts.insights {
		insights := services.NewInsightService(logger)
		insights.Print(out, insights.Generate(report))
	}
	fmt.Fprintf(out, "  Done. Run %s → %s\n\n", runID, cfg.OutputPath)
	return nil
}

// loadDatasets reads and cleans every configured amenity file, in config order.
func loadDatasets(cfg *config.Config, reader storage.RecordReader, cleaner *services.Cleaner) ([]services.Dataset, error) {
	datasets := make([]services.Dataset, 0, len(cfg.AmenityFiles))
	for _, af := range cfg.AmenityFiles {
		raw, err := reader.Read(cfg.Resolve(af.Path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", af.Kind, err)
		}
		ds := services.Dataset{
			Kind:    af.Kind,
			Records: cleaner.CleanAmenities(af.Kind, raw, cfg.AllowedTypes[af.Kind]),
		}
		if cfg.IsRestaurant(af.Kind) {
			ds.MeanAttributes = []services.Attribute{services.PriceLevel, services.Rating}
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// optionalSinks returns the writers enabled by the environment.
func optionalSinks(cfg *config.Config, retry utils.RetryConfig, logger *utils.Logger) []storage.FeatureWriter {
	var sinks []storage.FeatureWriter
	if cfg.MinioEndpoint != "" {
		s3, err := storage.NewS3Writer(storage.S3Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, retry, logger)
		if err != nil {
			logger.Error("MinIO disabled: %v", err)
		} else {
			sinks = append(sinks, s3)
		}
	}
	if cfg.KafkaBroker != "" {
		sinks = append(sinks, storage.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaTopic, retry, logger))
	}
	return sinks
}
