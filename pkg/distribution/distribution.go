// Package distribution drives the push and pull flows of the registry
// against a content.Namespace, keeping the protocol ordering rules in one
// place: blobs before manifests, manifests before tags.
package distribution

import (
	"context"
	"io"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/content/util"
	"github.com/ociworks/distkit/pkg/uploadsession"
)

func New(namespace content.Namespace, sessions *uploadsession.Manager) *Distribution {
	return &Distribution{
		namespace: namespace,
		sessions:  sessions,
	}
}

type Distribution struct {
	namespace content.Namespace
	sessions  *uploadsession.Manager
}

func (d *Distribution) Sessions() *uploadsession.Manager {
	return d.sessions
}

// Resolve maps a tag or digest reference to the manifest descriptor it
// names. A digest reference is answered from the manifest store alone; the
// tag index is only consulted for tags, so pulls by digest stay correct
// even when the index lags.
func (d *Distribution) Resolve(ctx context.Context, named reference.Named, tagOrDigest string) (*manifestv1.Descriptor, error) {
	repository, err := d.namespace.Repository(ctx, named)
	if err != nil {
		return nil, err
	}

	manifests, err := repository.Manifests(ctx)
	if err != nil {
		return nil, err
	}

	if dgst, err := digest.Parse(tagOrDigest); err == nil {
		return manifests.Info(ctx, dgst)
	}

	tags, err := repository.Tags(ctx)
	if err != nil {
		return nil, err
	}

	return tags.Get(ctx, tagOrDigest)
}

// PullManifest resolves ref and returns the stored manifest.
func (d *Distribution) PullManifest(ctx context.Context, named reference.Named, tagOrDigest string) (manifestv1.Manifest, *manifestv1.Descriptor, error) {
	desc, err := d.Resolve(ctx, named, tagOrDigest)
	if err != nil {
		return nil, nil, err
	}

	repository, err := d.namespace.Repository(ctx, named)
	if err != nil {
		return nil, nil, err
	}

	manifests, err := repository.Manifests(ctx)
	if err != nil {
		return nil, nil, err
	}

	m, err := manifests.Get(ctx, desc.Digest)
	if err != nil {
		return nil, nil, err
	}

	return m, desc, nil
}

// OpenBlob returns a reader over the blob, optionally limited to rng for
// partial downloads. The descriptor carries the full size either way.
func (d *Distribution) OpenBlob(ctx context.Context, named reference.Named, dgst digest.Digest, rng *util.Range) (io.ReadCloser, *manifestv1.Descriptor, error) {
	repository, err := d.namespace.Repository(ctx, named)
	if err != nil {
		return nil, nil, err
	}

	blobs, err := repository.Blobs(ctx)
	if err != nil {
		return nil, nil, err
	}

	desc, err := blobs.Info(ctx, dgst)
	if err != nil {
		return nil, nil, err
	}

	rsc, err := blobs.Open(ctx, dgst)
	if err != nil {
		return nil, nil, err
	}

	if rng == nil || rng.IsZero() {
		return rsc, desc, nil
	}

	section, err := rng.Section(rsc)
	if err != nil {
		_ = rsc.Close()
		return nil, nil, err
	}

	return &sectionReadCloser{Reader: section, Closer: rsc}, desc, nil
}

type sectionReadCloser struct {
	io.Reader
	io.Closer
}

// PushBlob uploads the whole of r as one session and verifies it against
// expected. Chunked transfers go through the session manager directly.
func (d *Distribution) PushBlob(ctx context.Context, named reference.Named, r io.Reader, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	repository, err := d.namespace.Repository(ctx, named)
	if err != nil {
		return nil, err
	}

	s, err := d.sessions.Start(ctx, repository)
	if err != nil {
		return nil, err
	}

	if _, err := s.Append(ctx, r, 0); err != nil {
		_ = s.Cancel(ctx)
		return nil, err
	}

	return s.Finalize(ctx, expected)
}

// MountBlob links a blob already held by the source repository into the
// target without transferring bytes. When the source does not hold the
// blob, the fallback session is returned for a regular upload.
func (d *Distribution) MountBlob(ctx context.Context, named reference.Named, from reference.Named, dgst digest.Digest) (*manifestv1.Descriptor, *uploadsession.Session, error) {
	repository, err := d.namespace.Repository(ctx, named)
	if err != nil {
		return nil, nil, err
	}

	return d.sessions.StartOrMount(ctx, repository, from, dgst)
}

// PushManifest stores the manifest, gated on every referenced blob and
// child manifest already existing, then optionally points a tag at it.
func (d *Distribution) PushManifest(ctx context.Context, named reference.Named, m manifestv1.Manifest, tag string) (digest.Digest, error) {
	repository, err := d.namespace.Repository(ctx, named)
	if err != nil {
		return "", err
	}

	manifests, err := repository.Manifests(ctx)
	if err != nil {
		return "", err
	}

	dgst, err := manifests.Put(ctx, m)
	if err != nil {
		return "", err
	}

	if tag == "" {
		return dgst, nil
	}

	tags, err := repository.Tags(ctx)
	if err != nil {
		return "", err
	}

	if err := tags.Tag(ctx, tag, manifestv1.Descriptor{Digest: dgst}); err != nil {
		return "", err
	}

	return dgst, nil
}

// DeleteManifest removes the manifest revision and any tags pointing at it.
func (d *Distribution) DeleteManifest(ctx context.Context, named reference.Named, dgst digest.Digest) error {
	repository, err := d.namespace.Repository(ctx, named)
	if err != nil {
		return err
	}

	tags, err := repository.Tags(ctx)
	if err != nil {
		return err
	}

	all, err := tags.All(ctx)
	if err == nil {
		for _, tag := range all {
			desc, err := tags.Get(ctx, tag)
			if err != nil {
				continue
			}
			if desc.Digest == dgst {
				if err := tags.Untag(ctx, tag); err != nil {
					return err
				}
			}
		}
	}

	manifests, err := repository.Manifests(ctx)
	if err != nil {
		return err
	}

	return manifests.Delete(ctx, dgst)
}
