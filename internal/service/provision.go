package service

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/mwlogger"
	"golang.org/x/sync/singleflight"
)

// BucketManager - операции уровня аккаунта хранилища
type BucketManager interface {
	ListBuckets(ctx context.Context) ([]string, error)
	CreateBucket(ctx context.Context, name string, opts model.BucketOptions) error
	SetPublicRead(ctx context.Context, name string) error
}

// BucketProvisioner makes sure the bucket exists and is publicly readable. Provision is
// the explicit start-up step; EnsureBucket is the request-path guard and is free once
// provisioning has succeeded, until Invalidate is called.
type BucketProvisioner struct {
	store  BucketManager
	bucket string
	ready  atomic.Bool
	group  singleflight.Group
}

func NewBucketProvisioner(store BucketManager, bucket string) *BucketProvisioner {
	return &BucketProvisioner{store: store, bucket: bucket}
}

func (p *BucketProvisioner) Bucket() string {
	return p.bucket
}

func (p *BucketProvisioner) Ready() bool {
	return p.ready.Load()
}

// Invalidate makes the next EnsureBucket go to the store again; called when the store
// reports that the bucket is gone.
func (p *BucketProvisioner) Invalidate() {
	p.ready.Store(false)
}

// Provision checks the bucket list, creates the bucket if absent and applies public-read access.
func (p *BucketProvisioner) Provision(ctx context.Context) error {
	_, err, _ := p.group.Do(p.bucket, func() (any, error) {
		return nil, p.provision(ctx)
	})
	return err
}

func (p *BucketProvisioner) EnsureBucket(ctx context.Context) error {
	if p.ready.Load() {
		return nil
	}
	return p.Provision(ctx)
}

func (p *BucketProvisioner) provision(ctx context.Context) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if p.bucket == "" {
		return fmt.Errorf("%w: empty bucket name", model.ErrStorageUnavailable)
	}

	buckets, err := p.store.ListBuckets(ctx)
	if err != nil {
		return classify(err, model.ErrStorageUnavailable)
	}

	if !slices.Contains(buckets, p.bucket) {
		logger.Info().Str("bucket", p.bucket).Msg("Bucket is absent, creating it")
		if err := p.store.CreateBucket(ctx, p.bucket, model.BucketOptions{Public: true}); err != nil {
			return classify(err, model.ErrStorageUnavailable)
		}
	} else if err := p.store.SetPublicRead(ctx, p.bucket); err != nil {
		// существующий бакет мог быть создан приватным
		return classify(err, model.ErrStorageUnavailable)
	}

	p.ready.Store(true)
	return nil
}
