package main

import (
	"context"

	"github.com/UnendingLoop/Dehazer/internal/model"
)

type ProcessingService interface {
	Dehaze(ctx context.Context, ref model.ImageRef) (*model.Result, error)
	DerivedKey(ref model.ImageRef) (string, error)
}
