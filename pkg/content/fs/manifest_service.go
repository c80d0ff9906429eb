package fs

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"

	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
)

var _ content.ManifestService = &manifestService{}

type manifestService struct {
	revisions *linkedBlobStore
	layers    *linkedBlobStore

	// empty means every recognized schema is accepted
	allowedMediaTypes []string
}

func (m *manifestService) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	return m.revisions.Info(ctx, dgst)
}

func (m *manifestService) Delete(ctx context.Context, dgst digest.Digest) error {
	return m.revisions.Remove(ctx, dgst)
}

func (m *manifestService) Get(ctx context.Context, dgst digest.Digest) (manifestv1.Manifest, error) {
	info, err := m.revisions.Info(ctx, dgst)
	if err != nil {
		return nil, err
	}

	blob, err := m.revisions.Open(ctx, info.Digest)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	raw, err := io.ReadAll(blob)
	if err != nil {
		return nil, err
	}

	return manifestv1.FromBytes(raw)
}

func (m *manifestService) Put(ctx context.Context, manifest manifestv1.Manifest) (digest.Digest, error) {
	payload, err := manifestv1.From(manifest)
	if err != nil {
		return "", err
	}

	raw, dgst, err := payload.Payload()
	if err != nil {
		return "", err
	}

	if len(m.allowedMediaTypes) > 0 && !slices.Contains(m.allowedMediaTypes, payload.Type()) {
		return "", &content.ErrManifestMediaTypeUnsupported{MediaType: payload.Type()}
	}

	// identical bytes already stored: no-op success
	if _, err := m.revisions.Info(ctx, dgst); err == nil {
		return dgst, nil
	}

	if err := m.verifyReferences(ctx, payload); err != nil {
		return "", err
	}

	w, err := m.revisions.Writer(ctx)
	if err != nil {
		return "", err
	}
	defer w.Close()

	if _, err := w.Write(raw); err != nil {
		return "", err
	}

	d, err := w.Commit(ctx, manifestv1.Descriptor{Digest: dgst})
	if err != nil {
		return "", err
	}

	return d.Digest, nil
}

// verifyReferences is the referential-integrity gate: a manifest may only
// be stored once every digest it points at resolves. The first missing
// reference fails the put and nothing is written.
func (m *manifestService) verifyReferences(ctx context.Context, payload *manifestv1.Payload) error {
	isIndex := manifestv1.IsIndex(payload.Type())

	for ref := range payload.References() {
		var err error
		if isIndex {
			_, err = m.revisions.Info(ctx, ref.Digest)
		} else {
			_, err = m.layers.Info(ctx, ref.Digest)
		}
		if err == nil {
			continue
		}

		var blobUnknown *content.ErrBlobUnknown
		var revisionUnknown *content.ErrManifestUnknownRevision
		if errors.As(err, &blobUnknown) || errors.As(err, &revisionUnknown) {
			return &content.ErrManifestBlobUnknown{Digest: ref.Digest}
		}
		return err
	}

	return nil
}

func (m *manifestService) LinkedDigests(ctx context.Context) iter.Seq2[content.LinkedDigest, error] {
	return m.revisions.LinkedDigests(ctx)
}

var _ content.LinkedDigestIterable = &manifestService{}
