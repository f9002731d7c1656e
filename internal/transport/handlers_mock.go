package transport

import (
	"context"

	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/gin-gonic/gin"
)

type mockDehazeService struct {
	dehazeFn func(ctx context.Context, ref model.ImageRef) (*model.Result, error)
}

func (m *mockDehazeService) Dehaze(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
	return m.dehazeFn(ctx, ref)
}

func init() {
	gin.SetMode(gin.TestMode)
}
