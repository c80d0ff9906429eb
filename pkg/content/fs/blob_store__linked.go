package fs

import (
	"context"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"strings"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
)

func newLinkedBlobStore(w *workspace, named reference.Named) *linkedBlobStore {
	return &linkedBlobStore{
		workspace: w,
		named:     named,
		blobStore: &blobStore{workspace: w},
		linksPathFunc: func() string {
			return w.layout.RepositoryLayersPath(named)
		},
		linkPathFunc: func(dgst digest.Digest) string {
			return w.layout.RepositoryLayerLinkPath(named, dgst)
		},
		errUnknownFunc: func(dgst digest.Digest) error {
			return &content.ErrBlobUnknown{Digest: dgst}
		},
	}
}

func newLinkedBlobStoreAsManifestStore(w *workspace, named reference.Named) *linkedBlobStore {
	return &linkedBlobStore{
		workspace: w,
		named:     named,
		blobStore: &blobStore{workspace: w},
		linksPathFunc: func() string {
			return w.layout.RepositoryManifestRevisionsPath(named)
		},
		linkPathFunc: func(dgst digest.Digest) string {
			return w.layout.RepositoryManifestRevisionLinkPath(named, dgst)
		},
		errUnknownFunc: func(dgst digest.Digest) error {
			return &content.ErrManifestUnknownRevision{
				Name:     named.Name(),
				Revision: dgst,
			}
		},
	}
}

// linkedBlobStore scopes the global store to one repository through link
// files. A repository never owns content; it holds references, which is
// what keeps cross-repository mounts and garbage collection well-defined.
type linkedBlobStore struct {
	workspace      *workspace
	named          reference.Named
	blobStore      *blobStore
	linksPathFunc  func() string
	linkPathFunc   func(dgst digest.Digest) string
	errUnknownFunc func(dgst digest.Digest) error
}

var _ content.LinkedDigestIterable = &linkedBlobStore{}

func (lbs *linkedBlobStore) linked(ctx context.Context, dgst digest.Digest) error {
	if _, err := lbs.workspace.Stat(ctx, lbs.linkPathFunc(dgst)); err != nil {
		if os.IsNotExist(err) {
			return lbs.errUnknownFunc(dgst)
		}
		return err
	}
	return nil
}

func (lbs *linkedBlobStore) link(ctx context.Context, dgst digest.Digest) error {
	return lbs.workspace.PutContent(ctx, lbs.linkPathFunc(dgst), []byte(dgst))
}

func (lbs *linkedBlobStore) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	if err := lbs.linked(ctx, dgst); err != nil {
		return nil, err
	}
	return lbs.blobStore.Info(ctx, dgst)
}

func (lbs *linkedBlobStore) Open(ctx context.Context, dgst digest.Digest) (io.ReadSeekCloser, error) {
	if err := lbs.linked(ctx, dgst); err != nil {
		return nil, err
	}
	return lbs.blobStore.Open(ctx, dgst)
}

// Remove drops only this repository's reference. Global content is left
// for garbage collection to reclaim once no repository links remain.
func (lbs *linkedBlobStore) Remove(ctx context.Context, dgst digest.Digest) error {
	return lbs.workspace.Delete(ctx, path.Dir(lbs.linkPathFunc(dgst)))
}

func (lbs *linkedBlobStore) Writer(ctx context.Context) (content.BlobWriter, error) {
	w, err := lbs.blobStore.Writer(ctx)
	if err != nil {
		return nil, err
	}

	return &linkedBlobWriter{
		linkedBlobStore: lbs,
		BlobWriter:      w,
	}, nil
}

func (lbs *linkedBlobStore) Resume(ctx context.Context, id string) (content.BlobWriter, error) {
	w, err := lbs.blobStore.Resume(ctx, id)
	if err != nil {
		return nil, err
	}

	return &linkedBlobWriter{
		linkedBlobStore: lbs,
		BlobWriter:      w,
	}, nil
}

// Mount links content already referenced by the from repository into this
// one. No bytes move; only a link file is written.
func (lbs *linkedBlobStore) Mount(ctx context.Context, from reference.Named, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	sourceLink := lbs.workspace.layout.RepositoryLayerLinkPath(from, dgst)
	if _, err := lbs.workspace.Stat(ctx, sourceLink); err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrBlobUnknown{Digest: dgst}
		}
		return nil, err
	}

	desc, err := lbs.blobStore.Info(ctx, dgst)
	if err != nil {
		return nil, err
	}

	if err := lbs.link(ctx, desc.Digest); err != nil {
		return nil, err
	}

	return desc, nil
}

var _ content.Mounter = &linkedBlobStore{}

// LinkedDigests walks {algorithm}/{hex}/link under this repository's link
// root, yielding each referenced digest with the link's mod time.
func (lbs *linkedBlobStore) LinkedDigests(ctx context.Context) iter.Seq2[content.LinkedDigest, error] {
	return func(yield func(content.LinkedDigest, error) bool) {
		err := lbs.workspace.WalkDir(ctx, lbs.linksPathFunc(), func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if p == "." || d.IsDir() {
				return nil
			}

			if path.Base(p) != "link" {
				return nil
			}

			dir, _ := path.Split(p)
			parentDir, hex := path.Split(strings.TrimSuffix(dir, "/"))
			alg := path.Base(strings.TrimSuffix(parentDir, "/"))

			dgst := digest.NewDigestFromHex(alg, hex)
			if err := dgst.Validate(); err != nil {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			if !yield(content.LinkedDigest{Digest: dgst, ModTime: info.ModTime()}, nil) {
				return fs.SkipAll
			}

			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			yield(content.LinkedDigest{}, err)
		}
	}
}

type linkedBlobWriter struct {
	content.BlobWriter

	linkedBlobStore *linkedBlobStore
}

func (w *linkedBlobWriter) Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	d, err := w.BlobWriter.Commit(ctx, expected)
	if err != nil {
		return nil, err
	}

	if err := w.linkedBlobStore.link(ctx, d.Digest); err != nil {
		return nil, err
	}

	return d, nil
}
