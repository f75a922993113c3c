package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the connection settings for an S3-compatible store
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base, defaults to the endpoint
	PublicURL string
}

// Minio is a Storage backed by a MinIO (or any S3-compatible) bucket
type Minio struct {
	client    *minio.Client
	bucket    string
	publicURL string
	log       hclog.Logger
}

// NewMinio connects to the endpoint and makes sure the bucket exists
func NewMinio(ctx context.Context, cfg MinioConfig, log hclog.Logger) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("unable to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("unable to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("Created bucket", "bucket", cfg.Bucket)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &Minio{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: joinURL(publicURL, cfg.Bucket),
		log:       log,
	}, nil
}

func (m *Minio) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	key, err := CleanPath(path)
	if err != nil {
		return err
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	}
	// If-None-Match: * makes the put fail instead of replacing an existing object
	opts.SetMatchETagExcept("*")

	_, err = m.client.PutObject(ctx, m.bucket, key, r, size, opts)
	if err != nil {
		if minio.ToErrorResponse(err).Code == minio.PreconditionFailed {
			return ErrObjectExists
		}
		return fmt.Errorf("unable to upload object: %w", err)
	}

	m.log.Debug("Uploaded object", "bucket", m.bucket, "key", key, "size", size)
	return nil
}

func (m *Minio) Remove(ctx context.Context, path string) error {
	key, err := CleanPath(path)
	if err != nil {
		return err
	}

	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("unable to remove object: %w", err)
	}
	return nil
}

func (m *Minio) Exists(ctx context.Context, path string) (bool, error) {
	key, err := CleanPath(path)
	if err != nil {
		return false, err
	}

	_, err = m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == minio.NoSuchKey {
			return false, nil
		}
		return false, fmt.Errorf("unable to stat object: %w", err)
	}
	return true, nil
}

func (m *Minio) PublicURL(path string) string {
	return joinURL(m.publicURL, path)
}
