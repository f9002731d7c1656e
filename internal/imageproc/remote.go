package imageproc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/config"
	"github.com/UnendingLoop/Dehazer/internal/model"
)

// RemoteModel sends the image to a model server (multipart field "file") and returns
// the image it answers with.
type RemoteModel struct {
	url    string
	client *http.Client
}

func NewRemoteModel(url string, timeout time.Duration) *RemoteModel {
	return &RemoteModel{url: url, client: &http.Client{Timeout: timeout}}
}

func (*RemoteModel) Name() string { return config.ProcessorRemote }

func (m *RemoteModel) Process(ctx context.Context, data []byte) ([]byte, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "input"+extByContent(data))
	if err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, &body)
	if err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("model answered with status %d", resp.StatusCode)
	}
	if !strings.HasPrefix(DetectContentType(out), "image/") {
		return nil, fmt.Errorf("model answered with non-image payload (%d bytes)", len(out))
	}

	return out, nil
}

func extByContent(data []byte) string {
	if ext, ok := model.GetImageFileExt[DetectContentType(data)]; ok {
		return ext
	}
	return ".jpg"
}
