package workflow

import (
	"context"

	"github.com/UnendingLoop/Dehazer/internal/model"
)

type mockStore struct {
	uploadFn    func(ctx context.Context, key string, data []byte, opts model.UploadOptions) error
	publicURLFn func(key string) (string, error)
}

func (m *mockStore) Upload(ctx context.Context, key string, data []byte, opts model.UploadOptions) error {
	return m.uploadFn(ctx, key, data, opts)
}

func (m *mockStore) PublicURL(key string) (string, error) {
	return m.publicURLFn(key)
}

type mockInvoker struct {
	invokeFn func(ctx context.Context, imagePath string) (*model.Result, error)
}

func (m *mockInvoker) Invoke(ctx context.Context, imagePath string) (*model.Result, error) {
	return m.invokeFn(ctx, imagePath)
}
