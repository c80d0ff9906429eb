package collect

import (
	"context"
	"errors"

	"github.com/opencontainers/go-digest"

	"github.com/ociworks/distkit/pkg/content"
)

func Catalogs(ctx context.Context, ns content.Namespace) (catalogs []string, err error) {
	i, ok := ns.(content.RepositoryNameIterable)
	if !ok {
		return nil, &content.ErrNotImplemented{Reason: errors.New("RepositoryNameIterable of Namespace")}
	}

	for n, e := range i.RepositoryNames(ctx) {
		if e != nil {
			return nil, e
		}
		catalogs = append(catalogs, n.Name())
	}

	return
}

func Manifests(ctx context.Context, manifestService content.ManifestService) (digests []digest.Digest, err error) {
	i, ok := manifestService.(content.LinkedDigestIterable)
	if !ok {
		return nil, &content.ErrNotImplemented{Reason: errors.New("LinkedDigestIterable of ManifestService")}
	}

	for ld, e := range i.LinkedDigests(ctx) {
		if e != nil {
			return nil, e
		}
		digests = append(digests, ld.Digest)
	}

	return
}

func Layers(ctx context.Context, blobStore content.BlobStore) (digests []digest.Digest, err error) {
	i, ok := blobStore.(content.LinkedDigestIterable)
	if !ok {
		return nil, &content.ErrNotImplemented{Reason: errors.New("LinkedDigestIterable of BlobStore")}
	}

	for ld, e := range i.LinkedDigests(ctx) {
		if e != nil {
			return nil, e
		}
		digests = append(digests, ld.Digest)
	}

	return
}

func Blobs(ctx context.Context, ns content.Namespace) (digests []digest.Digest, err error) {
	i, ok := ns.(content.DigestIterable)
	if !ok {
		return nil, &content.ErrNotImplemented{Reason: errors.New("DigestIterable of Namespace")}
	}

	for dgst, e := range i.Digests(ctx) {
		if e != nil {
			return nil, e
		}
		digests = append(digests, dgst)
	}

	return
}
