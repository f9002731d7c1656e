// Package miniostorage provides structure to work with minio-storage
package miniostorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/UnendingLoop/Dehazer/internal/config"
	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/storage/bucketpolicy"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioImageStorage struct {
	bucket     string
	region     string
	publicBase string
	client     *minio.Client
}

func NewMinioClient(cfg config.StorageConfig) (*MinioImageStorage, error) {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "images"
		log.Printf("Bucket name is empty. Using default value %q...", bucket)
	}

	// создаем клиента - сеть тут не трогается
	strg, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	base := cfg.PublicBase
	if base == "" {
		base = strings.TrimRight(strg.EndpointURL().String(), "/") + "/" + bucket
	}

	return &MinioImageStorage{bucket: bucket, region: cfg.Region, publicBase: base, client: strg}, nil
}

func (s *MinioImageStorage) Bucket() string {
	return s.bucket
}

func (s *MinioImageStorage) Upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error {
	if !opts.Upsert {
		_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
		switch {
		case err == nil:
			return fmt.Errorf("%w: %q", model.ErrObjectExists, key)
		case isNoBucket(err):
			return fmt.Errorf("%w: %q", model.ErrBucketMissing, s.bucket)
		case !isNotFound(err):
			return fmt.Errorf("%w: stat %q: %v", model.ErrUploadFailed, key, err)
		}
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: opts.ContentType,
	}); err != nil {
		if isNoBucket(err) {
			return fmt.Errorf("%w: %q", model.ErrBucketMissing, s.bucket)
		}
		return fmt.Errorf("%w: put %q: %v", model.ErrUploadFailed, key, err)
	}

	return nil
}

func (s *MinioImageStorage) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapReadErr(key, err)
	}
	defer closeFileFlow(obj)

	// GetObject ленивый - реальная ошибка всплывает только при чтении
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapReadErr(key, err)
	}

	return data, nil
}

func (s *MinioImageStorage) PublicURL(key string) (string, error) {
	if key == "" || s.publicBase == "" {
		return "", fmt.Errorf("%w: %q", model.ErrURLUnavailable, key)
	}
	return s.publicBase + "/" + key, nil
}

func (s *MinioImageStorage) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list buckets: %v", model.ErrStorageUnavailable, err)
	}

	res := make([]string, 0, len(buckets))
	for _, b := range buckets {
		res = append(res, b.Name)
	}
	return res, nil
}

func (s *MinioImageStorage) CreateBucket(ctx context.Context, name string, opts model.BucketOptions) error {
	err := s.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: s.region})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return fmt.Errorf("%w: create bucket %q: %v", model.ErrStorageUnavailable, name, err)
	}

	if !opts.Public {
		return nil
	}
	return s.SetPublicRead(ctx, name)
}

// SetPublicRead (re)applies the anonymous-read policy; safe to call on an existing bucket.
func (s *MinioImageStorage) SetPublicRead(ctx context.Context, name string) error {
	if err := s.client.SetBucketPolicy(ctx, name, bucketpolicy.PublicRead(name)); err != nil {
		return fmt.Errorf("%w: set policy on %q: %v", model.ErrStorageUnavailable, name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject", "NotFound":
		return true
	}
	return false
}

func isNoBucket(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchBucket"
}

func mapReadErr(key string, err error) error {
	if isNoBucket(err) {
		return fmt.Errorf("%w: reading %q", model.ErrBucketMissing, key)
	}
	if isNotFound(err) {
		return fmt.Errorf("%w: %q", model.ErrObjectNotFound, key)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: get %q: %v", model.ErrStorageUnavailable, key, err)
}

func closeFileFlow(res io.ReadCloser) {
	if err := res.Close(); err != nil {
		log.Println("Storage failed to close fileflow:", err)
	}
}
