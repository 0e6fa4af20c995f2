package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"property-features/models"
	"property-features/utils"
)

// ObjectStore is the subset of *minio.Client the S3 writer needs.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Config holds the connection settings for an S3-compatible store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix is prepended to every object key.
	Prefix string
}

// S3Writer uploads each run's feature table as a CSV object.
type S3Writer struct {
	store  ObjectStore
	bucket string
	prefix string
	retry  utils.RetryConfig
	logger *utils.Logger
}

// NewS3Writer connects to the MinIO endpoint in cfg.
func NewS3Writer(cfg S3Config, retry utils.RetryConfig, logger *utils.Logger) (*S3Writer, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3: endpoint, access key and secret key are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	logger.Info("[s3] Using endpoint %s, bucket %s", cfg.Endpoint, cfg.Bucket)
	return NewS3WriterWithStore(client, cfg.Bucket, cfg.Prefix, retry, logger), nil
}

// NewS3WriterWithStore wraps an existing store.
func NewS3WriterWithStore(store ObjectStore, bucket, prefix string, retry utils.RetryConfig, logger *utils.Logger) *S3Writer {
	return &S3Writer{store: store, bucket: bucket, prefix: prefix, retry: retry, logger: logger}
}

// Write encodes table as CSV and stores it under a key derived from runID.
// The bucket is created on first use.
func (s *S3Writer) Write(ctx context.Context, runID uuid.UUID, table *models.FeatureTable) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, table); err != nil {
		return fmt.Errorf("s3: %w", err)
	}
	data := buf.Bytes()
	key := objectKey(s.prefix, runID)

	err := s.retry.Do(ctx, "s3 upload "+key, func(ctx context.Context) error {
		_, err := s.store.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "text/csv"})
		return err
	})
	if err != nil {
		return fmt.Errorf("s3: %w", err)
	}

	s.logger.Info("[s3] Stored %d rows in %s/%s", len(table.Rows), s.bucket, key)
	return nil
}

func (s *S3Writer) ensureBucket(ctx context.Context) error {
	exists, err := s.store.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("s3: check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.store.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("s3: create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// Close is a no-op.
func (s *S3Writer) Close() error { return nil }

// objectKey is "<prefix>/features/<runID>.csv" with the prefix optional.
func objectKey(prefix string, runID uuid.UUID) string {
	prefix = strings.Trim(prefix, "/")
	return path.Join(prefix, "features", runID.String()+".csv")
}
