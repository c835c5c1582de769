package storage

import (
	"context"
	"fmt"
	"io"
)

type Config struct {
	Driver   string // fs|s3|gcs
	BasePath string // fs
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// Open builds the MediaStore selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (MediaStore, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewFSStore(cfg.BasePath)
	case "s3", "minio":
		return NewS3Store(ctx, S3Config{Bucket: cfg.Bucket, Region: cfg.Region, Endpoint: cfg.Endpoint, Prefix: cfg.Prefix})
	case "gcs":
		return NewGCSStore(ctx, GCSConfig{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	default:
		return nil, fmt.Errorf("unsupported media driver: %s", cfg.Driver)
	}
}

// Close releases backend clients held by s. Stores without any are left alone.
func Close(s MediaStore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
