// Package imageproc provides the pluggable dehaze step: process(bytes) -> bytes.
package imageproc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/UnendingLoop/Dehazer/internal/config"
)

// Processor - контракт шага обработки; модель подключается через него
type Processor interface {
	Name() string
	Process(ctx context.Context, data []byte) ([]byte, error)
}

func New(cfg config.ProcessorConfig) (Processor, error) {
	switch cfg.Kind {
	case config.ProcessorPassthrough, "":
		return Passthrough{}, nil
	case config.ProcessorNormalize:
		return NewNormalizer(ModelInputSide, ModelInputSide), nil
	case config.ProcessorRemote:
		return NewRemoteModel(cfg.ModelURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported processor %q", cfg.Kind)
	}
}

// Passthrough returns the input unchanged; no dehazing model is wired yet.
type Passthrough struct{}

func (Passthrough) Name() string { return config.ProcessorPassthrough }

func (Passthrough) Process(_ context.Context, data []byte) ([]byte, error) {
	return data, nil
}

// DetectContentType sniffs the content type of processed bytes.
func DetectContentType(data []byte) string {
	return http.DetectContentType(data)
}
