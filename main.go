package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"property-features/config"
	"property-features/utils"
)

var flags struct {
	radius       float64
	imputeRadius float64
	crimeRadius  float64
	concurrency  int
	categories   string
	output       string
	skipPostgres bool
	insights     bool
}

var Cmd = &cobra.Command{
	Use:   "featuretable",
	Short: "Augment house listings with neighbourhood amenity and crime features",
	Long: "Reads a listings CSV plus point-of-interest and crime CSVs, counts what lies within " +
		"a radius of every listing, imputes missing price per area from nearby listings, and " +
		"writes the augmented table to CSV and any configured sinks.",
	SilenceUsage: true,
	RunE:         runCmd,
}

func init() {
	f := Cmd.Flags()
	f.Float64Var(&flags.radius, "radius", 0, "amenity search radius in km (overrides RADIUS_KM)")
	f.Float64Var(&flags.imputeRadius, "impute-radius", 0, "price imputation radius in km (overrides IMPUTE_RADIUS_KM)")
	f.Float64Var(&flags.crimeRadius, "crime-radius", 0, "crime search radius in km (overrides CRIME_RADIUS_KM)")
	f.IntVar(&flags.concurrency, "concurrency", 0, "worker count, 0 for one per CPU (overrides MAX_CONCURRENCY)")
	f.StringVar(&flags.categories, "categories", "", "YAML file with violent/nonviolent crime labels")
	f.StringVar(&flags.output, "output", "", "output CSV path (overrides OUTPUT_PATH)")
	f.BoolVar(&flags.skipPostgres, "skip-postgres", false, "do not store the table in PostgreSQL")
	f.BoolVar(&flags.insights, "insights", true, "print a summary report after the run")
}

func main() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	applyFlags(cmd, cfg)

	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))
	ctx, cancel := utils.SignalContext(context.Background(), logger)
	defer cancel()

	return run(ctx, cfg, runOptions{skipPostgres: flags.skipPostgres, insights: flags.insights}, logger, os.Stdout)
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("radius") {
		cfg.RadiusKm = flags.radius
	}
	if f.Changed("impute-radius") {
		cfg.ImputeRadiusKm = flags.imputeRadius
	}
	if f.Changed("crime-radius") {
		cfg.CrimeRadiusKm = flags.crimeRadius
	}
	if f.Changed("concurrency") {
		cfg.MaxConcurrency = flags.concurrency
	}
	if f.Changed("categories") {
		cfg.CategoriesFile = flags.categories
	}
	if f.Changed("output") {
		cfg.OutputPath = flags.output
	}
}
