package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AmenityFile names one point-of-interest CSV and the kind it is counted as.
type AmenityFile struct {
	Kind string
	Path string
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataDir         string
	ListingsFile    string
	AmenityFiles    []AmenityFile
	RestaurantKinds []string
	CrimeFile       string
	CategoriesFile  string
	AllowedTypes    map[string][]string

	RadiusKm       float64
	ImputeRadiusKm float64
	CrimeRadiusKm  float64
	MaxConcurrency int
	MaxRetries     int

	OutputPath string
	LogLevel   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	KafkaBroker string
	KafkaTopic  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		DataDir:         getEnv("DATA_DIR", "./data"),
		ListingsFile:    getEnv("LISTINGS_FILE", "house_listings.csv"),
		AmenityFiles:    parseAmenityFiles(getEnv("AMENITY_FILES", defaultAmenityFiles)),
		RestaurantKinds: getEnvList("RESTAURANT_KINDS", []string{"restaurant"}),
		CrimeFile:       getEnv("CRIME_FILE", "crimes.csv"),
		CategoriesFile:  getEnv("CATEGORIES_FILE", ""),
		AllowedTypes:    parseAllowedTypes(getEnv("ALLOWED_TYPES", defaultAllowedTypes)),

		RadiusKm:       getEnvFloat("RADIUS_KM", 1.0),
		ImputeRadiusKm: getEnvFloat("IMPUTE_RADIUS_KM", 1.0),
		CrimeRadiusKm:  getEnvFloat("CRIME_RADIUS_KM", 1.0),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 0),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		OutputPath: getEnv("OUTPUT_PATH", "./output/listing_features.csv"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "features"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "features123"),
		PostgresDB:       getEnv("POSTGRES_DB", "housing_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "listing-features"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		KafkaBroker: getEnv("KAFKA_BROKER", ""),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "listing-features"),
	}
}

const (
	defaultAmenityFiles = "restaurant=restaurants.csv,grocery=grocery_stores.csv," +
		"school=schools.csv,hospital=hospitals.csv,transit=transit_stations.csv"
	defaultAllowedTypes = "restaurant=restaurant|food|cafe|bar|meal_takeaway|bakery," +
		"grocery=grocery_or_supermarket|supermarket|convenience_store"
)

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Resolve joins a data file name onto DataDir unless it is already absolute.
func (c *Config) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// IsRestaurant reports whether a kind gets price-level and rating means.
func (c *Config) IsRestaurant(kind string) bool {
	for _, k := range c.RestaurantKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Validate rejects settings the builder would refuse later anyway, so the
// failure surfaces before any file is read.
func (c *Config) Validate() error {
	for name, r := range map[string]float64{
		"RADIUS_KM": c.RadiusKm, "IMPUTE_RADIUS_KM": c.ImputeRadiusKm, "CRIME_RADIUS_KM": c.CrimeRadiusKm,
	} {
		if r < 0 {
			return fmt.Errorf("config: %s must not be negative, got %v", name, r)
		}
	}
	if c.ListingsFile == "" {
		return fmt.Errorf("config: LISTINGS_FILE is required")
	}
	seen := make(map[string]struct{})
	for _, af := range c.AmenityFiles {
		if _, dup := seen[af.Kind]; dup {
			return fmt.Errorf("config: amenity kind %q listed twice", af.Kind)
		}
		seen[af.Kind] = struct{}{}
	}
	return nil
}

// parseAmenityFiles reads "kind=path,kind=path". Entries without a kind or
// path are skipped.
func parseAmenityFiles(raw string) []AmenityFile {
	var out []AmenityFile
	for _, entry := range strings.Split(raw, ",") {
		kind, path, ok := strings.Cut(strings.TrimSpace(entry), "=")
		kind, path = strings.TrimSpace(kind), strings.TrimSpace(path)
		if !ok || kind == "" || path == "" {
			continue
		}
		out = append(out, AmenityFile{Kind: kind, Path: path})
	}
	return out
}

// parseAllowedTypes reads "kind=type|type,kind=type".
func parseAllowedTypes(raw string) map[string][]string {
	out := make(map[string][]string)
	for _, entry := range strings.Split(raw, ",") {
		kind, types, ok := strings.Cut(strings.TrimSpace(entry), "=")
		kind = strings.TrimSpace(kind)
		if !ok || kind == "" {
			continue
		}
		for _, t := range strings.Split(types, "|") {
			if t = strings.TrimSpace(t); t != "" {
				out[kind] = append(out[kind], t)
			}
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
