package imageproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/UnendingLoop/Dehazer/internal/config"
	"github.com/disintegration/imaging"
)

// ModelInputSide - сторона квадрата, который ждет AOD-сеть
const ModelInputSide = 256

// Normalizer brings an image to the model input shape: fixed size, PNG.
type Normalizer struct {
	width  int
	height int
}

func NewNormalizer(w, h int) Normalizer {
	return Normalizer{width: w, height: h}
}

func (Normalizer) Name() string { return config.ProcessorNormalize }

func (n Normalizer) Process(_ context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image provided to Normalizer")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to DEcode image in Normalizer: %w", err)
	}

	resized := imaging.Resize(img, n.width, n.height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to ENcode image in Normalizer: %w", err)
	}
	return buf.Bytes(), nil
}
