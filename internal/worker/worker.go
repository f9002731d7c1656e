// Package worker contains the async dehaze worker: it reads dehaze requests from the queue
// and runs them through the same service the HTTP endpoint uses
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/UnendingLoop/Dehazer/internal/metrics"
	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/mwlogger"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

var ErrBadMessage = errors.New("undecodable dehaze request")

type Dehazer interface {
	Dehaze(ctx context.Context, ref model.ImageRef) (*model.Result, error)
}

// Committer - часть консьюмера, нужная воркеру
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

// Worker commits every message it has finished with, including the ones that kept failing
// after all retry attempts: delivery is at-most-once past the in-worker retry.
type Worker struct {
	service      Dehazer
	queue        <-chan kafkago.Message
	consumer     Committer
	samplePrefix string
	retry        retry.Strategy
}

func NewWorkerInstance(svc Dehazer, q <-chan kafkago.Message, cons Committer, samplePrefix string, rs retry.Strategy) *Worker {
	if rs.Attempts < 1 {
		rs.Attempts = 1
	}
	return &Worker{service: svc, queue: q, consumer: cons, samplePrefix: samplePrefix, retry: rs}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg kafkago.Message) {
	logger := zlog.Logger.With().
		Str("topic", msg.Topic).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Logger()
	ctx = mwlogger.WithLogger(ctx, logger)

	stopped, err := w.processWithRetry(ctx, msg)
	if stopped {
		// оффсет не двигаем - после рестарта сообщение придет снова
		logger.Warn().Err(err).Msg("Worker is stopping, dehaze request left uncommitted")
		return
	}
	metrics.ObserveDehaze(model.ErrorClass(err))

	switch {
	case err == nil:
	case retryable(err):
		logger.Error().Err(err).Int("attempts", w.retry.Attempts).Msg("Dehaze request failed after all attempts, dropping")
	default:
		logger.Warn().Err(err).Msg("Dropping dehaze request")
	}

	if err := w.consumer.Commit(ctx, msg); err != nil {
		logger.Error().Err(err).Msg("Failed to commit queue-message")
	}
}

// processWithRetry повторяет только временные ошибки; stopped - контекст отменен во время паузы
func (w *Worker) processWithRetry(ctx context.Context, msg kafkago.Message) (stopped bool, err error) {
	res := retry.DoContext(ctx, w.retry, func() error {
		err = w.process(ctx, msg)
		if retryable(err) {
			logger := mwlogger.LoggerFromContext(ctx)
			logger.Warn().Err(err).Msg("Dehaze attempt failed")
			return err
		}
		return nil
	})
	if res != nil && ctx.Err() != nil {
		return true, res
	}
	return false, err
}

func (w *Worker) process(ctx context.Context, msg kafkago.Message) error {
	path, err := imagePath(msg)
	if err != nil {
		return err
	}

	ref, err := model.ParseImageRef(path, w.samplePrefix)
	if err != nil {
		return err
	}

	res, err := w.service.Dehaze(ctx, ref)
	if err != nil {
		return err
	}

	logger := mwlogger.LoggerFromContext(ctx)
	logger.Info().Str("processed", res.ProcessedPath).Str("url", res.ProcessedImageURL).Msg("Queued image processed")
	return nil
}

// imagePath берет путь из JSON-значения, а при пустом значении - из ключа сообщения
func imagePath(msg kafkago.Message) (string, error) {
	if len(msg.Value) == 0 {
		return string(msg.Key), nil
	}

	var req model.DehazeRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if strings.TrimSpace(req.ImagePath) == "" {
		return string(msg.Key), nil
	}
	return req.ImagePath, nil
}

func retryable(err error) bool {
	switch model.ErrorClass(err) {
	case "storage_unavailable", "upload_failed", "url_unavailable":
		return true
	}
	return false
}
