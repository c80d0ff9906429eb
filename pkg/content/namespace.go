package content

import (
	"context"

	"github.com/distribution/reference"
)

type Namespace interface {
	Repository(ctx context.Context, named reference.Named) (Repository, error)
}

type Repository interface {
	Named() reference.Named
	Manifests(ctx context.Context) (ManifestService, error)
	Tags(ctx context.Context) (TagService, error)
	Blobs(ctx context.Context) (BlobStore, error)
}

type namespaceContextKey struct{}

func NamespaceInjectContext(ctx context.Context, ns Namespace) context.Context {
	return context.WithValue(ctx, namespaceContextKey{}, ns)
}

func NamespaceFromContext(ctx context.Context) (Namespace, bool) {
	ns, ok := ctx.Value(namespaceContextKey{}).(Namespace)
	return ns, ok
}
