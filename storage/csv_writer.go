package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"property-features/models"
)

// CSVWriter writes the feature table to a CSV file. The file is the
// authoritative output of a run; runID is not part of it so that repeated
// runs over the same inputs produce identical files.
// It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	return &CSVWriter{file: f}, nil
}

// Write replaces the file contents with table.
func (c *CSVWriter) Write(_ context.Context, _ uuid.UUID, table *models.FeatureTable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.file.Truncate(0); err != nil {
		return fmt.Errorf("csv: truncate: %w", err)
	}
	if _, err := c.file.Seek(0, 0); err != nil {
		return fmt.Errorf("csv: seek: %w", err)
	}
	return EncodeCSV(c.file, table)
}

// Close closes the underlying file.
func (c *CSVWriter) Close() error {
	return c.file.Close()
}
