package fs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/octohelm/unifs/pkg/filesystem"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/content/fs/layout"
)

// NewBlobStore opens the global content-addressable store rooted at fsys,
// outside of any repository scope.
func NewBlobStore(fsys filesystem.FileSystem) content.BlobStore {
	return &blobStore{workspace: newWorkspace(fsys, layout.Default)}
}

// blobStore is the global content-addressable store. Content is staged
// under uploads/{id} and becomes addressable only once the digest is
// confirmed and the data file is renamed into blobs/.
type blobStore struct {
	workspace *workspace
}

var _ content.DigestIterable = &blobStore{}

func (bs *blobStore) checkAlgorithm(dgst digest.Digest) error {
	if !dgst.Algorithm().Available() {
		return &content.ErrDigestAlgorithmUnknown{Digest: dgst}
	}
	return nil
}

func (bs *blobStore) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	if err := bs.checkAlgorithm(dgst); err != nil {
		return nil, err
	}

	s, err := bs.workspace.Stat(ctx, bs.workspace.layout.BlobDataPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrBlobUnknown{Digest: dgst}
		}
		return nil, err
	}

	return &manifestv1.Descriptor{
		Digest: dgst,
		Size:   s.Size(),
	}, nil
}

func (bs *blobStore) Open(ctx context.Context, dgst digest.Digest) (io.ReadSeekCloser, error) {
	if err := bs.checkAlgorithm(dgst); err != nil {
		return nil, err
	}

	file, err := bs.workspace.Reader(ctx, bs.workspace.layout.BlobDataPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrBlobUnknown{Digest: dgst}
		}
		return nil, err
	}
	return file, nil
}

func (bs *blobStore) Remove(ctx context.Context, dgst digest.Digest) error {
	return bs.workspace.Delete(ctx, bs.workspace.layout.BlobRootPath(dgst))
}

func (bs *blobStore) Writer(ctx context.Context) (content.BlobWriter, error) {
	id := uuid.New().String()
	startedAt := time.Now().UTC()

	if err := bs.workspace.PutContent(ctx, bs.workspace.layout.UploadStartedAtPath(id), []byte(startedAt.Format(time.RFC3339))); err != nil {
		return nil, err
	}

	stagingPath := bs.workspace.layout.UploadDataPath(id)

	fileWriter, err := bs.workspace.Writer(ctx, stagingPath, false)
	if err != nil {
		return nil, err
	}

	return &blobWriter{
		ctx:       ctx,
		id:        id,
		startedAt: startedAt,
		workspace: bs.workspace,
		resumable: true,

		path:       stagingPath,
		fileWriter: fileWriter,
		digester:   digest.SHA256.Digester(),
	}, nil
}

func (bs *blobStore) Resume(ctx context.Context, id string) (content.BlobWriter, error) {
	startedAtBytes, err := bs.workspace.GetContent(ctx, bs.workspace.layout.UploadStartedAtPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrBlobUploadUnknown{ID: id}
		}
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339, string(startedAtBytes))
	if err != nil {
		return nil, err
	}

	stagingPath := bs.workspace.layout.UploadDataPath(id)

	fileWriter, err := bs.workspace.Writer(ctx, stagingPath, true)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrBlobUploadUnknown{ID: id}
		}
		return nil, err
	}

	bw := &blobWriter{
		ctx:       ctx,
		id:        id,
		startedAt: startedAt,
		workspace: bs.workspace,
		resumable: true,

		path:       stagingPath,
		fileWriter: fileWriter,
		digester:   digest.SHA256.Digester(),
	}

	if err := bw.restoreDigestState(ctx); err != nil {
		return nil, err
	}

	return bw, nil
}

// Digests walks blobs/{algorithm}/{hex[:2]}/{hex}/data and yields every
// committed digest.
func (bs *blobStore) Digests(ctx context.Context) iter.Seq2[digest.Digest, error] {
	return func(yield func(digest.Digest, error) bool) {
		err := bs.workspace.WalkDir(ctx, bs.workspace.layout.BlobsPath(), func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if p == "." || d.IsDir() {
				return nil
			}

			dir, base := path.Split(p)
			if base != "data" {
				return nil
			}

			parentDir, hex := path.Split(strings.TrimSuffix(dir, "/"))
			alg := path.Dir(strings.TrimSuffix(parentDir, "/"))

			dgst := digest.NewDigestFromHex(alg, hex)
			if err := dgst.Validate(); err != nil {
				return fmt.Errorf("invalid digest at %s: %w", p, err)
			}

			if !yield(dgst, nil) {
				return fs.SkipAll
			}

			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			yield("", err)
		}
	}
}
