package fs

import (
	"context"

	"github.com/distribution/reference"

	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/content/tagindex"
)

type repository struct {
	named     reference.Named
	namespace *namespace
}

func (r *repository) Named() reference.Named {
	return r.named
}

func (r *repository) Blobs(ctx context.Context) (content.BlobStore, error) {
	return newLinkedBlobStore(r.namespace.workspace, r.named), nil
}

func (r *repository) Manifests(ctx context.Context) (content.ManifestService, error) {
	return &manifestService{
		revisions:         newLinkedBlobStoreAsManifestStore(r.namespace.workspace, r.named),
		layers:            newLinkedBlobStore(r.namespace.workspace, r.named),
		allowedMediaTypes: r.namespace.allowedMediaTypes,
	}, nil
}

func (r *repository) Tags(ctx context.Context) (content.TagService, error) {
	manifests, err := r.Manifests(ctx)
	if err != nil {
		return nil, err
	}

	return tagindex.NewTagService(r.named, r.namespace.tagIndex, manifests), nil
}
