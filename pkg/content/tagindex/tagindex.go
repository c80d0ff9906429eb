package tagindex

import (
	"context"

	"github.com/distribution/reference"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
)

// NewTagService scopes a TagIndex to one repository. Tagging requires the
// manifest revision to exist already, so a tag can never dangle at
// creation time.
func NewTagService(named reference.Named, idx content.TagIndex, manifests content.ManifestService) content.TagService {
	return &tagService{
		named:     named,
		idx:       idx,
		manifests: manifests,
	}
}

type tagService struct {
	named     reference.Named
	idx       content.TagIndex
	manifests content.ManifestService
}

func (t *tagService) Get(ctx context.Context, tag string) (*manifestv1.Descriptor, error) {
	dgst, err := t.idx.Lookup(ctx, t.named, tag)
	if err != nil {
		return nil, err
	}
	return t.manifests.Info(ctx, dgst)
}

func (t *tagService) Tag(ctx context.Context, tag string, desc manifestv1.Descriptor) error {
	info, err := t.manifests.Info(ctx, desc.Digest)
	if err != nil {
		return err
	}
	return t.idx.Upsert(ctx, t.named, tag, info.Digest)
}

func (t *tagService) Untag(ctx context.Context, tag string) error {
	return t.idx.Delete(ctx, t.named, tag)
}

func (t *tagService) All(ctx context.Context) ([]string, error) {
	return t.idx.All(ctx, t.named)
}
