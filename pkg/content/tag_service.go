package content

import (
	"context"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
)

// TagIndex is the name→digest mapping service the registry core consumes.
// It owns no content, only bindings, and is assumed to be independently
// durable with at least read-your-writes consistency per client.
type TagIndex interface {
	Lookup(ctx context.Context, named reference.Named, tag string) (digest.Digest, error)
	Upsert(ctx context.Context, named reference.Named, tag string, dgst digest.Digest) error
	Delete(ctx context.Context, named reference.Named, tag string) error
	All(ctx context.Context, named reference.Named) ([]string, error)
}

// TagService is the repository-scoped view over the TagIndex.
type TagService interface {
	Get(ctx context.Context, tag string) (*manifestv1.Descriptor, error)
	// Tag points tag at desc. The manifest must already exist; re-pointing
	// is a last-writer-wins overwrite.
	Tag(ctx context.Context, tag string, desc manifestv1.Descriptor) error
	Untag(ctx context.Context, tag string) error
	All(ctx context.Context) ([]string, error)
}

type TagList struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

func (TagList) ContentType() string {
	return "application/json"
}
