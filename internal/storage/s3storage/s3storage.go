// Package s3storage implements the object store on top of aws-sdk-go-v2
package s3storage

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
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type S3ImageStorage struct {
	bucket     string
	region     string
	publicBase string
	client     *s3.Client
}

func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*S3ImageStorage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := endpointURL(cfg)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBase
	switch {
	case base != "":
	case endpoint != "":
		base = endpoint + "/" + cfg.Bucket
	default:
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3ImageStorage{
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: strings.TrimRight(base, "/"),
		client:     client,
	}, nil
}

// endpointURL returns "" for real AWS, where the SDK resolves endpoints itself.
func endpointURL(cfg config.StorageConfig) string {
	ep := strings.TrimRight(cfg.Endpoint, "/")
	if ep == "" || strings.HasSuffix(ep, "amazonaws.com") {
		return ""
	}
	if strings.HasPrefix(ep, "http://") || strings.HasPrefix(ep, "https://") {
		return ep
	}
	if cfg.UseSSL {
		return "https://" + ep
	}
	return "http://" + ep
}

func (s *S3ImageStorage) Bucket() string {
	return s.bucket
}

func (s *S3ImageStorage) Upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error {
	if !opts.Upsert {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		switch {
		case err == nil:
			return fmt.Errorf("%w: %q", model.ErrObjectExists, key)
		case isNoBucket(err):
			return fmt.Errorf("%w: %q", model.ErrBucketMissing, s.bucket)
		case !isNotFound(err):
			return fmt.Errorf("%w: head %q: %v", model.ErrUploadFailed, key, err)
		}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isNoBucket(err) {
			return fmt.Errorf("%w: %q", model.ErrBucketMissing, s.bucket)
		}
		return fmt.Errorf("%w: put %q: %v", model.ErrUploadFailed, key, err)
	}
	return nil
}

func (s *S3ImageStorage) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoBucket(err) {
			return nil, fmt.Errorf("%w: reading %q", model.ErrBucketMissing, key)
		}
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %q", model.ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("%w: get %q: %v", model.ErrStorageUnavailable, key, err)
	}
	defer func() {
		if err := out.Body.Close(); err != nil {
			log.Println("Storage failed to close fileflow:", err)
		}
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", model.ErrStorageUnavailable, key, err)
	}
	return data, nil
}

func (s *S3ImageStorage) PublicURL(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", model.ErrURLUnavailable)
	}
	return s.publicBase + "/" + key, nil
}

func (s *S3ImageStorage) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("%w: list buckets: %v", model.ErrStorageUnavailable, err)
	}

	res := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		res = append(res, aws.ToString(b.Name))
	}
	return res, nil
}

func (s *S3ImageStorage) CreateBucket(ctx context.Context, name string, opts model.BucketOptions) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 не принимает LocationConstraint
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if !errors.As(err, &owned) {
			return fmt.Errorf("%w: create bucket %q: %v", model.ErrStorageUnavailable, name, err)
		}
	}

	if !opts.Public {
		return nil
	}
	return s.SetPublicRead(ctx, name)
}

// SetPublicRead (re)applies the anonymous-read policy; safe to call on an existing bucket.
func (s *S3ImageStorage) SetPublicRead(ctx context.Context, name string) error {
	if _, err := s.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(name),
		Policy: aws.String(bucketpolicy.PublicRead(name)),
	}); err != nil {
		return fmt.Errorf("%w: set policy on %q: %v", model.ErrStorageUnavailable, name, err)
	}
	return nil
}

func isNoBucket(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
