package storage

import (
	"context"

	"github.com/google/uuid"

	"property-features/models"
)

// FeatureWriter is the interface any output sink must satisfy. runID
// identifies one invocation of the pipeline; sinks that keep history use it
// to tell runs apart.
type FeatureWriter interface {
	Write(ctx context.Context, runID uuid.UUID, table *models.FeatureTable) error
	Close() error
}

// RecordReader loads raw rows from a tabular source.
type RecordReader interface {
	Read(path string) ([]*models.RawRecord, error)
}
