package content

import (
	"context"

	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
)

type ManifestService interface {
	Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error)
	Get(ctx context.Context, dgst digest.Digest) (manifestv1.Manifest, error)
	// Put validates that every referenced config, layer and child manifest
	// already exists before the manifest is stored. Re-putting identical
	// bytes is a no-op success.
	Put(ctx context.Context, manifest manifestv1.Manifest) (digest.Digest, error)
	Delete(ctx context.Context, dgst digest.Digest) error
}
