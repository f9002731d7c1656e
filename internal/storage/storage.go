// Package storage picks the object-store driver and waits for it to come up
package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/config"
	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/storage/miniostorage"
	"github.com/UnendingLoop/Dehazer/internal/storage/s3storage"
)

// ObjectStore - единый контракт драйверов хранилища
type ObjectStore interface {
	Bucket() string
	Upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error
	Download(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) (string, error)
	ListBuckets(ctx context.Context) ([]string, error)
	CreateBucket(ctx context.Context, name string, opts model.BucketOptions) error
	SetPublicRead(ctx context.Context, name string) error
}

func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case config.DriverMinio, "":
		s, err := miniostorage.NewMinioClient(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverS3:
		s, err := s3storage.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// WaitReady pings the store until it answers or attempts run out. It never fails hard:
// the provisioning step on the request path covers a store that comes up later.
func WaitReady(ctx context.Context, store ObjectStore, attempts int, delay time.Duration) bool {
	for i := 1; i <= attempts; i++ {
		log.Println("Connecting to IMG-storage...")
		_, err := store.ListBuckets(ctx)
		if err == nil {
			log.Println("Successfully connected IMG-storage!")
			return true
		}
		log.Printf("IMG-storage is not ready (try %d/%d): %v\nNext retry in %v...", i, attempts, err, delay)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}
	return false
}
