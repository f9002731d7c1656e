package main

import (
	"context"

	"github.com/UnendingLoop/Dehazer/internal/model"
)

type WorkerDehazeService interface {
	Dehaze(ctx context.Context, ref model.ImageRef) (*model.Result, error)
}
