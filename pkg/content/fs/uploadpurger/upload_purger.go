package uploadpurger

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"time"

	"github.com/go-courier/logr"

	"github.com/ociworks/distkit/pkg/content/fs/driver"
	"github.com/ociworks/distkit/pkg/content/fs/layout"
)

// Purge removes staged uploads whose startedat is older than expiresIn.
// Abandoned sessions would otherwise grow the uploads tree without bound,
// so this pass is part of the store's correctness, not housekeeping.
func Purge(ctx context.Context, d driver.Driver, expiresIn time.Duration) error {
	expiredAt := time.Now().Add(-expiresIn)

	for su, err := range stagedUploads(ctx, d) {
		if err != nil {
			return err
		}

		if su.startedAt.Before(expiredAt) {
			logr.FromContext(ctx).WithValues(
				slog.String("upload", su.id),
				slog.Time("startedAt", su.startedAt),
			).Info("purging")

			if err := d.Delete(ctx, su.path); err != nil {
				return err
			}
		}
	}

	return nil
}

type stagedUpload struct {
	id        string
	path      string
	startedAt time.Time
}

func stagedUploads(ctx context.Context, d driver.Driver) iter.Seq2[*stagedUpload, error] {
	return func(yield func(*stagedUpload, error) bool) {
		err := d.WalkDir(ctx, layout.Default.UploadsPath(), func(p string, dirEntry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if p == "." {
				return nil
			}

			if dirEntry.IsDir() {
				su := &stagedUpload{
					id:   p,
					path: layout.Default.UploadRootPath(p),
				}

				startedAt, _ := d.GetContent(ctx, layout.Default.UploadStartedAtPath(su.id))
				if len(startedAt) > 0 {
					su.startedAt, _ = time.Parse(time.RFC3339, string(startedAt))
				}

				if !yield(su, nil) {
					return fs.SkipAll
				}

				return fs.SkipDir
			}

			return nil
		})
		if err != nil {
			if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.ErrNotExist) {
				return
			}
			yield(nil, err)
		}
	}
}
