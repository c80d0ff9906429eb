package content

import (
	"context"
	"iter"
	"time"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

// LinkedDigest is a repository-scoped reference to global content,
// together with the time the reference was last touched.
type LinkedDigest struct {
	Digest  digest.Digest
	ModTime time.Time
}

type LinkedDigestIterable interface {
	LinkedDigests(ctx context.Context) iter.Seq2[LinkedDigest, error]
}

// DigestIterable enumerates every committed blob digest globally.
type DigestIterable interface {
	Digests(ctx context.Context) iter.Seq2[digest.Digest, error]
}

type RepositoryNameIterable interface {
	RepositoryNames(ctx context.Context) iter.Seq2[reference.Named, error]
}
