package content

import (
	"context"
	"io"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
)

type BlobStore interface {
	Ingester
	Provider
	Remover
}

type Provider interface {
	// Info is a cheap existence/size check. It never reads blob content.
	Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error)
	// Open returns the committed content. The reader is seekable so callers
	// can serve range requests without buffering the blob.
	Open(ctx context.Context, dgst digest.Digest) (io.ReadSeekCloser, error)
}

type Ingester interface {
	Writer(ctx context.Context) (BlobWriter, error)
	Resume(ctx context.Context, id string) (BlobWriter, error)
}

type Remover interface {
	// Remove deletes committed content. Only garbage collection calls this;
	// the upload path never does, since a blob may be referenced by many
	// manifests across repositories.
	Remove(ctx context.Context, dgst digest.Digest) error
}

// Mounter links content already committed under another repository into
// this one without moving bytes.
type Mounter interface {
	Mount(ctx context.Context, from reference.Named, dgst digest.Digest) (*manifestv1.Descriptor, error)
}

// BlobWriter stages content under a private identity until Commit
// publishes it under its digest. The digest is computed incrementally as
// bytes arrive.
type BlobWriter interface {
	io.WriteCloser

	ID() string
	Digest(ctx context.Context) digest.Digest
	Size(ctx context.Context) int64

	Cancel(ctx context.Context) error

	// Commit verifies staged content against expected (when a digest or
	// size is claimed) and publishes it atomically. When the digest already
	// exists the staged bytes are discarded and the existing descriptor is
	// returned.
	Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error)
}
