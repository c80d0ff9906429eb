package driver

import (
	"context"
	"io"
	"io/fs"

	"github.com/octohelm/unifs/pkg/filesystem"
)

// Driver is the narrow surface the content store needs from a storage
// medium. Everything above it addresses opaque paths only; the backing
// filesystem may be local disk or any unifs-supported object store.
type Driver interface {
	WalkDir(ctx context.Context, path string, fn fs.WalkDirFunc) error
	Stat(ctx context.Context, path string) (filesystem.FileInfo, error)

	Reader(ctx context.Context, path string) (io.ReadSeekCloser, error)
	Writer(ctx context.Context, path string, append bool) (FileWriter, error)

	Delete(ctx context.Context, path string) error

	// Move renames oldPath to newPath, creating parent directories. This is
	// the single atomic publish step of the stage-then-relocate pattern.
	Move(ctx context.Context, oldPath string, newPath string) error

	GetContent(ctx context.Context, path string) ([]byte, error)
	PutContent(ctx context.Context, path string, data []byte) error
}

type FileWriter interface {
	io.WriteCloser
	Size() int64
	Cancel(context.Context) error
	Commit(context.Context) error
}
