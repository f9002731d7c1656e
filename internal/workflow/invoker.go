package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/model"
)

var (
	ErrInvokeFailed      = errors.New("endpoint invocation failed")
	ErrMalformedResponse = errors.New("malformed endpoint response")
)

// maxResponseBody - ответ эндпоинта это небольшой JSON
const maxResponseBody = 1 << 20

// HTTPInvoker calls the processing endpoint with {"imagePath": ...}.
type HTTPInvoker struct {
	endpoint string
	client   *http.Client
}

func NewHTTPInvoker(endpoint string, timeout time.Duration) *HTTPInvoker {
	return &HTTPInvoker{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

func (i *HTTPInvoker) Invoke(ctx context.Context, imagePath string) (*model.Result, error) {
	payload, err := json.Marshal(model.DehazeRequest{ImagePath: imagePath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvokeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvokeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvokeFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrInvokeFailed, err)
	}

	var res model.Result
	decodeErr := json.Unmarshal(raw, &res)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := fmt.Sprintf("status %d", resp.StatusCode)
		if decodeErr == nil && res.Error != "" {
			detail = res.Error
		}
		return nil, fmt.Errorf("%w: %s", ErrInvokeFailed, detail)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if !res.Success || res.ProcessedImageURL == "" {
		return nil, fmt.Errorf("%w: success=%t, processedImageUrl=%q", ErrMalformedResponse, res.Success, res.ProcessedImageURL)
	}

	return &res, nil
}
