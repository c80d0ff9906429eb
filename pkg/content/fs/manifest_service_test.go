package fs_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/distribution/reference"
	"github.com/octohelm/unifs/pkg/filesystem/local"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
	ocispecs "github.com/opencontainers/image-spec/specs-go"
	specv1 "github.com/opencontainers/image-spec/specs-go/v1"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
	contentfs "github.com/ociworks/distkit/pkg/content/fs"
)

func mustPushBlob(t *testing.T, ctx context.Context, blobs content.BlobStore, data string) manifestv1.Descriptor {
	t.Helper()

	w, err := blobs.Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	_, _ = io.Copy(w, bytes.NewBufferString(data))

	d, err := w.Commit(ctx, manifestv1.Descriptor{Digest: digest.FromString(data)})
	testingx.Expect(t, err, testingx.Be[error](nil))

	return *d
}

func TestManifestService(t *testing.T) {
	ctx := context.Background()

	ns := contentfs.NewNamespace(local.NewFS(t.TempDir()))

	named, err := reference.WithName("test/app")
	testingx.Expect(t, err, testingx.Be[error](nil))

	repo, err := ns.Repository(ctx, named)
	testingx.Expect(t, err, testingx.Be[error](nil))

	blobs, err := repo.Blobs(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	manifests, err := repo.Manifests(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	t.Run("put with missing references is refused", func(t *testing.T) {
		m := manifestv1.OciManifest{
			Versioned: ocispecs.Versioned{SchemaVersion: 2},
			MediaType: specv1.MediaTypeImageManifest,
			Config: manifestv1.Descriptor{
				MediaType: specv1.MediaTypeImageConfig,
				Digest:    digest.FromString("never pushed"),
				Size:      12,
			},
		}

		_, err := manifests.Put(ctx, m)
		testingx.Expect(t, errors.As(err, new(*content.ErrManifestBlobUnknown)), testingx.Be(true))
	})

	config := mustPushBlob(t, ctx, blobs, `{"architecture":"amd64"}`)
	config.MediaType = specv1.MediaTypeImageConfig

	layer := mustPushBlob(t, ctx, blobs, "layer-0-bytes")
	layer.MediaType = specv1.MediaTypeImageLayerGzip

	m := manifestv1.OciManifest{
		Versioned: ocispecs.Versioned{SchemaVersion: 2},
		MediaType: specv1.MediaTypeImageManifest,
		Config:    config,
		Layers:    []manifestv1.Descriptor{layer},
	}

	t.Run("put once references exist", func(t *testing.T) {
		dgst, err := manifests.Put(ctx, m)
		testingx.Expect(t, err, testingx.Be[error](nil))

		t.Run("info", func(t *testing.T) {
			d, err := manifests.Info(ctx, dgst)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Digest, testingx.Be(dgst))
		})

		t.Run("get returns same references", func(t *testing.T) {
			got, err := manifests.Get(ctx, dgst)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, got.Type(), testingx.Be(specv1.MediaTypeImageManifest))

			refs := make([]digest.Digest, 0, 2)
			for d := range got.References() {
				refs = append(refs, d.Digest)
			}
			testingx.Expect(t, refs, testingx.Equal([]digest.Digest{config.Digest, layer.Digest}))
		})

		t.Run("re-put identical manifest is a no-op success", func(t *testing.T) {
			again, err := manifests.Put(ctx, m)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, again, testingx.Be(dgst))
		})

		t.Run("tag then resolve", func(t *testing.T) {
			tags, err := repo.Tags(ctx)
			testingx.Expect(t, err, testingx.Be[error](nil))

			err = tags.Tag(ctx, "v1", manifestv1.Descriptor{Digest: dgst})
			testingx.Expect(t, err, testingx.Be[error](nil))

			d, err := tags.Get(ctx, "v1")
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Digest, testingx.Be(dgst))

			all, err := tags.All(ctx)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, all, testingx.Equal([]string{"v1"}))

			t.Run("untag", func(t *testing.T) {
				err := tags.Untag(ctx, "v1")
				testingx.Expect(t, err, testingx.Be[error](nil))

				_, err = tags.Get(ctx, "v1")
				testingx.Expect(t, errors.As(err, new(*content.ErrTagUnknown)), testingx.Be(true))
			})
		})

		t.Run("delete revision", func(t *testing.T) {
			err := manifests.Delete(ctx, dgst)
			testingx.Expect(t, err, testingx.Be[error](nil))

			_, err = manifests.Info(ctx, dgst)
			testingx.Expect(t, errors.As(err, new(*content.ErrManifestUnknownRevision)), testingx.Be(true))
		})
	})

	t.Run("tagging an unknown manifest is refused", func(t *testing.T) {
		tags, err := repo.Tags(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		err = tags.Tag(ctx, "ghost", manifestv1.Descriptor{Digest: digest.FromString("nope")})
		testingx.Expect(t, errors.As(err, new(*content.ErrManifestUnknownRevision)), testingx.Be(true))
	})
}

func TestManifestServiceMediaTypePolicy(t *testing.T) {
	ctx := context.Background()

	ns := contentfs.NewNamespace(
		local.NewFS(t.TempDir()),
		contentfs.WithAllowedMediaTypes(specv1.MediaTypeImageManifest, specv1.MediaTypeImageIndex),
	)

	named, err := reference.WithName("test/app")
	testingx.Expect(t, err, testingx.Be[error](nil))

	repo, err := ns.Repository(ctx, named)
	testingx.Expect(t, err, testingx.Be[error](nil))

	manifests, err := repo.Manifests(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	m := manifestv1.DockerManifest{
		Versioned: ocispecs.Versioned{SchemaVersion: 2},
		MediaType: manifestv1.DockerMediaTypeManifest,
	}

	_, err = manifests.Put(ctx, m)
	testingx.Expect(t, errors.As(err, new(*content.ErrManifestMediaTypeUnsupported)), testingx.Be(true))
}
