// Package workflow is the client side of dehazing: it hands an image over to the
// processing endpoint and normalizes whatever happens into a model.Result.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/imageproc"
	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/mwlogger"
	"github.com/google/uuid"
)

const (
	msgUploadFailed   = "Failed to upload image"
	msgNoUploadURL    = "Could not get uploaded image URL"
	msgProcessFailed  = "Failed to process image"
	msgUnexpectedFail = "An unexpected error occurred"
)

// ObjectStore - то, что клиенту нужно от хранилища
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error
	PublicURL(key string) (string, error)
}

type Invoker interface {
	Invoke(ctx context.Context, imagePath string) (*model.Result, error)
}

type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type Service struct {
	store   ObjectStore
	invoker Invoker
	now     func() time.Time
}

func NewService(store ObjectStore, inv Invoker) *Service {
	return &Service{store: store, invoker: inv, now: time.Now}
}

// SubmitUpload uploads f under a time-stamped key and asks the endpoint to process it.
// It never returns an error: failures come back as Result{Success: false}.
func (s *Service) SubmitUpload(ctx context.Context, f UploadFile) (res *model.Result) {
	logger := mwlogger.LoggerFromContext(ctx)
	defer recoverInto(ctx, &res)

	if len(f.Data) == 0 {
		logger.Error().Str("file", f.Name).Msg("Empty file provided")
		return model.FailedResult(msgUploadFailed)
	}

	if f.ContentType == "" {
		f.ContentType = imageproc.DetectContentType(f.Data)
	}
	key := s.uploadKey(f)
	ct := f.ContentType

	// шаг 1: кладем оригинал в бакет
	if err := s.store.Upload(ctx, key, f.Data, model.UploadOptions{ContentType: ct, Upsert: false}); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Error uploading image")
		return model.FailedResult(msgUploadFailed)
	}

	// шаг 2: публичный URL оригинала
	origURL, err := s.store.PublicURL(key)
	if err != nil || origURL == "" {
		logger.Error().Err(err).Str("key", key).Msg("Could not get uploaded image URL")
		return model.FailedResult(msgNoUploadURL)
	}

	// шаг 3: вызов эндпоинта
	out, err := s.invoker.Invoke(ctx, key)
	if err != nil {
		return invokeFailure(ctx, err)
	}

	out.ImageURL = origURL
	out.Error = ""
	return out
}

// SubmitSample forwards an already resolvable sample path straight to the endpoint.
func (s *Service) SubmitSample(ctx context.Context, samplePath string) (res *model.Result) {
	defer recoverInto(ctx, &res)

	if strings.TrimSpace(samplePath) == "" {
		return model.FailedResult(fmt.Sprintf("%s: %v", msgProcessFailed, model.ErrMissingInput))
	}

	out, err := s.invoker.Invoke(ctx, samplePath)
	if err != nil {
		return invokeFailure(ctx, err)
	}

	out.ImageURL = samplePath
	out.Error = ""
	return out
}

func (s *Service) uploadKey(f UploadFile) string {
	name := filepath.Base(strings.ReplaceAll(f.Name, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" || name == "." || name == "/" {
		ext, ok := model.GetImageFileExt[f.ContentType]
		if !ok {
			ext = ".jpg"
		}
		name = uuid.NewString() + ext
	}
	return fmt.Sprintf("%d_%s", s.now().UnixMilli(), name)
}

func invokeFailure(ctx context.Context, err error) *model.Result {
	logger := mwlogger.LoggerFromContext(ctx)

	if errors.Is(err, ErrMalformedResponse) {
		logger.Error().Err(err).Msg("Malformed response from dehaze endpoint")
		return model.FailedResult(msgUnexpectedFail)
	}

	logger.Error().Err(err).Msg("Error calling dehaze endpoint")
	detail := strings.TrimPrefix(err.Error(), ErrInvokeFailed.Error()+": ")
	return model.FailedResult(fmt.Sprintf("%s: %s", msgProcessFailed, detail))
}

func recoverInto(ctx context.Context, res **model.Result) {
	if r := recover(); r != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Interface("panic", r).Msg("Dehaze workflow crashed")
		*res = model.FailedResult(msgUnexpectedFail)
	}
}
