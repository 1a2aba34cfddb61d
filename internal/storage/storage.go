// Package storage provides the MinIO-backed store for meter photos received
// over the webhook. Uploaded objects are addressed by a deterministic key and
// exposed through a plain object URL that the OCR collaborator can fetch.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"telemetry_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStore uploads and downloads meter photos.
type ImageStore interface {
	// Upload stores the image bytes under the given object key and returns
	// the object URL.
	Upload(ctx context.Context, objectKey string, data []byte) (string, error)
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context) error
}

// MinIOStore implements ImageStore using MinIO.
type MinIOStore struct {
	client   *minio.Client
	endpoint string
	secure   bool
	bucket   string
}

// NewMinIOStore creates a new MinIO image store.
func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOStore{
		client:   client,
		endpoint: cfg.GetMinIOEndpoint(),
		secure:   cfg.GetMinIOUseSSL(),
		bucket:   cfg.GetMinioBucketMeterImages(),
	}, nil
}

// EnsureBucketExists creates the meter-image bucket if it doesn't exist.
func (s *MinIOStore) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// Upload stores the image and returns its object URL.
func (s *MinIOStore) Upload(ctx context.Context, objectKey string, data []byte) (string, error) {
	contentType := http.DetectContentType(data)

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", objectKey, err)
	}

	return s.objectURL(objectKey), nil
}

func (s *MinIOStore) objectURL(objectKey string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	endpoint := strings.TrimRight(s.endpoint, "/")
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, s.bucket, objectKey)
}
