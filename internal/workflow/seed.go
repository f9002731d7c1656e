package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/mwlogger"
)

// Seed uploads every hazy_* image found in dir into the bucket under its file name,
// overwriting what is there. It returns the number of uploaded files.
func Seed(ctx context.Context, store ObjectStore, dir string) (int, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read samples dir %q: %w", dir, err)
	}

	var (
		uploaded int
		errs     []error
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, model.SampleNamePrefix) {
			continue
		}
		ct := model.ContentTypeByName(name)
		if !strings.HasPrefix(ct, "image/") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("read %q: %w", name, err))
			continue
		}

		if err := store.Upload(ctx, name, data, model.UploadOptions{ContentType: ct, Upsert: true}); err != nil {
			errs = append(errs, fmt.Errorf("upload %q: %w", name, err))
			continue
		}
		logger.Info().Str("key", name).Int("bytes", len(data)).Msg("Sample uploaded")
		uploaded++
	}

	return uploaded, errors.Join(errs...)
}
