// Package service provides business-logic for the app: the dehaze processing endpoint core
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/imageproc"
	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/mwlogger"
	"github.com/wb-go/wbf/retry"
)

const successMessage = "Image processed successfully"

type DehazeService struct {
	storage       ObjectStore
	fetcher       RemoteFetcher
	processor     imageproc.Processor
	provisioner   *BucketProvisioner
	publisher     EventPublisher
	derivedPrefix string
}

func NewDehazeService(strg ObjectStore, f RemoteFetcher, proc imageproc.Processor, prov *BucketProvisioner, pub EventPublisher, derivedPrefix string) *DehazeService {
	if pub == nil {
		pub = NoopPublisher{}
	}
	return &DehazeService{
		storage:       strg,
		fetcher:       f,
		processor:     proc,
		provisioner:   prov,
		publisher:     pub,
		derivedPrefix: derivedPrefix,
	}
}

// ObjectStore - контракт для работы с хранилищем
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error
	PublicURL(key string) (string, error)
}

// RemoteFetcher - контракт для скачивания картинок по URL
type RemoteFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// EventPublisher - контракт для работы с очередью
type EventPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// NoopPublisher - ЗАГЛУШКА, когда кафка не настроена
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error {
	return nil
}

// Стратегия ретрая отправки уведомления - запрос не должен висеть на кафке долго
var eventRetryStrategy = retry.Strategy{
	Attempts: 3,
	Delay:    500 * time.Millisecond,
	Backoff:  2,
}

// Dehaze resolves ref to bytes, runs the processor, stores the derived object and
// returns its public URL. Every error returned wraps one of the model taxonomy errors.
func (s *DehazeService) Dehaze(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	derivedKey, err := s.DerivedKey(ref)
	if err != nil {
		return nil, err
	}

	// бакет должен существовать до того как мы отдадим клиенту хоть один URL
	if err := s.provisioner.EnsureBucket(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ensure bucket")
		return nil, err
	}

	src, err := s.resolve(ctx, ref)
	if err != nil {
		logger.Error().Err(err).Str("ref", ref.String()).Msg("Failed to resolve source image")
		s.forgetBucket(err)
		return nil, err
	}

	out, err := s.processor.Process(ctx, src)
	if err != nil {
		logger.Error().Err(err).Str("processor", s.processor.Name()).Msg("Processor failed")
		return nil, fmt.Errorf("%w: processing failed: %v", model.ErrUnexpected, err)
	}

	ct := imageproc.DetectContentType(out)
	derivedKey = withExt(derivedKey, ct)
	opts := model.UploadOptions{ContentType: ct, Upsert: true}
	if err := s.upload(ctx, derivedKey, out, opts); err != nil {
		logger.Error().Err(err).Str("key", derivedKey).Msg("Failed to save derived image in Storage")
		return nil, classify(err, model.ErrUploadFailed)
	}

	url, err := s.storage.PublicURL(derivedKey)
	if err != nil || url == "" {
		logger.Error().Err(err).Str("key", derivedKey).Msg("Failed to get public URL")
		return nil, fmt.Errorf("%w: %q", model.ErrURLUnavailable, derivedKey)
	}

	res := &model.Result{
		Success:           true,
		Message:           successMessage,
		OriginalPath:      ref.Value(),
		ProcessedPath:     derivedKey,
		ProcessedImageURL: url,
	}
	s.notify(ctx, res)

	logger.Info().Str("original", res.OriginalPath).Str("processed", res.ProcessedPath).Msg("Image processed")
	return res, nil
}

// DerivedKey prefixes the file name of the reference with DERIVED_PREFIX. A local key keeps
// its directory, so "a/x.jpg" and "b/x.jpg" never share a derived object; a remote URL maps
// to its last path segment. No hashing: repeated calls overwrite the same object.
func (s *DehazeService) DerivedKey(ref model.ImageRef) (string, error) {
	var dir, base string
	if ref.IsRemote() {
		base = ref.BaseName()
	} else {
		dir, base = path.Split(ref.Value())
	}
	if base == "" || base == "." || base == "/" {
		return "", fmt.Errorf("%w: no file name in %s", model.ErrInvalidReference, ref)
	}
	return dir + s.derivedPrefix + base, nil
}

// withExt swaps the key extension when the processor changed the image format
// (normalize always answers PNG). Unknown content types leave the key as is.
func withExt(key, contentType string) string {
	want, ok := model.GetImageFileExt[contentType]
	if !ok || model.ContentTypeByName(key) == contentType {
		return key
	}
	return strings.TrimSuffix(key, path.Ext(key)) + want
}

// upload пишет результат; если бакет пропал - пересоздаем его и пробуем еще раз
func (s *DehazeService) upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error {
	err := s.storage.Upload(ctx, key, data, opts)
	if !errors.Is(err, model.ErrBucketMissing) {
		return err
	}

	s.provisioner.Invalidate()
	if err := s.provisioner.EnsureBucket(ctx); err != nil {
		return err
	}
	return s.storage.Upload(ctx, key, data, opts)
}

func (s *DehazeService) forgetBucket(err error) {
	if errors.Is(err, model.ErrBucketMissing) {
		s.provisioner.Invalidate()
	}
}

func (s *DehazeService) resolve(ctx context.Context, ref model.ImageRef) ([]byte, error) {
	if ref.IsRemote() {
		data, err := s.fetcher.Fetch(ctx, ref.Value())
		if err != nil {
			return nil, classify(err, model.ErrFetchFailed)
		}
		return data, nil
	}

	data, err := s.storage.Download(ctx, ref.Value())
	if err != nil {
		return nil, classify(err, model.ErrStorageUnavailable)
	}
	return data, nil
}

func (s *DehazeService) notify(ctx context.Context, res *model.Result) {
	logger := mwlogger.LoggerFromContext(ctx)

	payload, err := json.Marshal(model.ProcessedEvent{
		OriginalPath:      res.OriginalPath,
		ProcessedPath:     res.ProcessedPath,
		ProcessedImageURL: res.ProcessedImageURL,
		ProcessedAt:       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal processed-event")
		return
	}

	// уведомление не влияет на ответ клиенту
	if err := s.publisher.SendWithRetry(ctx, eventRetryStrategy, []byte(res.ProcessedPath), payload); err != nil {
		logger.Warn().Err(err).Str("key", res.ProcessedPath).Msg("Failed to publish processed-event")
	}
}

// classify keeps taxonomy errors as they are and wraps anything else into fallback.
func classify(err error, fallback error) error {
	if model.ErrorClass(err) != "unexpected" || errors.Is(err, model.ErrUnexpected) {
		return err
	}
	return fmt.Errorf("%w: %v", fallback, err)
}
